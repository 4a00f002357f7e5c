package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/goccy/go-json"
)

type Users struct {
	s Sender
}

func NewUsers(s Sender) *Users { return &Users{s: s} }

type userEnvelope struct {
	User *models.Identity `json:"user"`
}

// Me fetches the identity bound to the current credential.
func (u *Users) Me(ctx context.Context) (*models.Identity, error) {
	var out userEnvelope
	if err := get(ctx, u.s, "/users/me", &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, errEmptyUser
	}
	return out.User, nil
}

// UserProfile is another user's public profile.
type UserProfile struct {
	Identity   models.Identity
	VideoCount int
}

func (u *Users) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	var out struct {
		User json.RawMessage `json:"user"`
	}
	if err := get(ctx, u.s, "/users/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	if len(out.User) == 0 || string(out.User) == "null" {
		return nil, errEmptyUser
	}

	var p UserProfile
	if err := json.Unmarshal(out.User, &p.Identity); err != nil {
		return nil, err
	}
	var counts struct {
		VideoCount int `json:"videoCount"`
	}
	if err := json.Unmarshal(out.User, &counts); err != nil {
		return nil, err
	}
	p.VideoCount = counts.VideoCount
	return &p, nil
}

// UpdateMe changes the display name and date of birth. An empty dob
// clears it.
func (u *Users) UpdateMe(ctx context.Context, name, dob string) (*models.Identity, error) {
	body := map[string]any{"name": name, "dob": nil}
	if dob != "" {
		body["dob"] = dob
	}

	var out userEnvelope
	if err := call(ctx, u.s, http.MethodPut, "/users/me", body, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, errEmptyUser
	}
	return out.User, nil
}

// DeleteMe deletes the account. The caller must end the session afterwards.
func (u *Users) DeleteMe(ctx context.Context) error {
	return call(ctx, u.s, http.MethodDelete, "/users/me", nil, nil)
}

// UploadPhoto sends a profile photo as a multipart form; photo is streamed.
func (u *Users) UploadPhoto(ctx context.Context, fileName string, photo io.Reader) (*models.Identity, error) {
	resp, err := u.s.Send(ctx, gateway.Request{
		Method:   http.MethodPost,
		Endpoint: "/users/me/photo",
		Body:     gateway.NewFormBody(gateway.FormField{Name: "photo", FileName: fileName, File: photo}),
		Encoding: gateway.EncodingBinaryForm,
	})
	if err != nil {
		return nil, err
	}
	var out userEnvelope
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out.User, nil
}

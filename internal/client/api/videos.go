package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/mediax/internal/client/models"
)

var errEmptyUser = errors.New("response carries no user")

type Videos struct {
	s Sender
}

func NewVideos(s Sender) *Videos { return &Videos{s: s} }

type videosEnvelope struct {
	Videos []models.MediaItem `json:"videos"`
}

// List returns the whole gallery in server order.
func (v *Videos) List(ctx context.Context) ([]models.MediaItem, error) {
	var out videosEnvelope
	if err := get(ctx, v.s, "/videos", &out); err != nil {
		return nil, err
	}
	if out.Videos == nil {
		out.Videos = []models.MediaItem{}
	}
	return out.Videos, nil
}

// UserVideos returns the videos uploaded by the signed-in user.
func (v *Videos) UserVideos(ctx context.Context) ([]models.MediaItem, error) {
	var out videosEnvelope
	if err := get(ctx, v.s, "/videos/user-videos", &out); err != nil {
		return nil, err
	}
	if out.Videos == nil {
		out.Videos = []models.MediaItem{}
	}
	return out.Videos, nil
}

func (v *Videos) UpdateTitle(ctx context.Context, id, title string) error {
	return call(ctx, v.s, http.MethodPatch, "/videos/"+url.PathEscape(id), map[string]string{"title": title}, nil)
}

func (v *Videos) Remove(ctx context.Context, id string) error {
	return call(ctx, v.s, http.MethodDelete, "/videos/"+url.PathEscape(id), nil, nil)
}

// SaveRequest registers an object that is already in storage.
type SaveRequest struct {
	Title    string  `json:"title"`
	VideoURL string  `json:"videoUrl"`
	PublicID string  `json:"publicId"`
	Duration float64 `json:"duration"`
}

// Save registers uploaded media. If the backend does not echo the created
// item, one is assembled from the request.
func (v *Videos) Save(ctx context.Context, req SaveRequest) (*models.MediaItem, error) {
	var out struct {
		envelope
		Video *models.MediaItem `json:"video"`
	}
	if err := call(ctx, v.s, http.MethodPost, "/videos/save", req, &out); err != nil {
		return nil, err
	}
	if out.Video != nil {
		return out.Video, nil
	}
	return &models.MediaItem{Title: req.Title, MediaRef: req.VideoURL}, nil
}

// Package models defines the client-side shapes of backend resources.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Role of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is a snapshot of the signed-in user as returned by /users/me.
// It is replaced wholesale on every refresh, never patched.
type Identity struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	PhotoRef    string    `json:"photo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func (i *Identity) UnmarshalJSON(b []byte) error {
	var wire struct {
		ID        string    `json:"id"`
		MongoID   string    `json:"_id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Role      Role      `json:"role"`
		Photo     string    `json:"photo"`
		CreatedAt time.Time `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*i = Identity{
		ID:          wire.ID,
		DisplayName: wire.Name,
		Email:       wire.Email,
		Role:        wire.Role,
		PhotoRef:    wire.Photo,
		CreatedAt:   wire.CreatedAt,
	}
	if i.ID == "" {
		i.ID = wire.MongoID
	}
	return nil
}

// MediaItem is one video of the gallery. Ordering is whatever the server
// returned; the client never re-sorts.
type MediaItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MediaRef     string    `json:"videoUrl"`
	ThumbnailRef string    `json:"thumbnailUrl,omitempty"`
	OwnerRef     string    `json:"uploadedBy,omitempty"`
	OwnerName    string    `json:"uploaderName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts uploadedBy either as an id string or as an embedded
// user object, and _id in place of id.
func (m *MediaItem) UnmarshalJSON(b []byte) error {
	var wire struct {
		ID           string          `json:"id"`
		MongoID      string          `json:"_id"`
		Title        string          `json:"title"`
		VideoURL     string          `json:"videoUrl"`
		ThumbnailURL string          `json:"thumbnailUrl"`
		UploadedBy   json.RawMessage `json:"uploadedBy"`
		UploaderName string          `json:"uploaderName"`
		CreatedAt    time.Time       `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*m = MediaItem{
		ID:           wire.ID,
		Title:        wire.Title,
		MediaRef:     wire.VideoURL,
		ThumbnailRef: wire.ThumbnailURL,
		OwnerRef:     ownerRef(wire.UploadedBy),
		OwnerName:    wire.UploaderName,
		CreatedAt:    wire.CreatedAt,
	}
	if m.ID == "" {
		m.ID = wire.MongoID
	}
	return nil
}

func ownerRef(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.MongoID != "" {
			return obj.MongoID
		}
		return obj.ID
	}
	return ""
}

// StoredObject is what the object-storage provider reports after a
// successful direct upload.
type StoredObject struct {
	SecureURL string  `json:"secure_url"`
	PublicID  string  `json:"public_id"`
	Duration  float64 `json:"duration"`
}

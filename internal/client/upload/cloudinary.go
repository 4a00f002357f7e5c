package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/goccy/go-json"
)

// CloudinaryConfig describes an unsigned, preset-authenticated upload
// endpoint: {BaseURL}/{CloudName}/upload.
type CloudinaryConfig struct {
	BaseURL   string
	CloudName string
	Preset    string
	Folder    string
}

// Cloudinary uploads straight to the storage provider with a multipart
// form. No backend credential is sent; the preset authorizes the upload.
type Cloudinary struct {
	cfg  CloudinaryConfig
	http *http.Client
}

func NewCloudinary(cfg CloudinaryConfig, client *http.Client) *Cloudinary {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com/v1_1"
	}
	return &Cloudinary{cfg: cfg, http: client}
}

func (c *Cloudinary) Name() string { return "cloudinary" }

func (c *Cloudinary) Validate() error {
	switch {
	case c.cfg.CloudName == "":
		return &ConfigError{Provider: c.Name(), Field: "cloud name"}
	case c.cfg.Preset == "":
		return &ConfigError{Provider: c.Name(), Field: "upload preset"}
	}
	return nil
}

func (c *Cloudinary) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + url.PathEscape(c.cfg.CloudName) + "/upload"
}

func (c *Cloudinary) Put(ctx context.Context, t Transfer) (*models.StoredObject, error) {
	body := gateway.NewFormBody(
		gateway.FormField{Name: "file", FileName: t.File.Name, File: newCountingReader(t.File, t.Progress)},
		gateway.FormField{Name: "upload_preset", Value: c.cfg.Preset},
		gateway.FormField{Name: "folder", Value: c.cfg.Folder},
		gateway.FormField{Name: "public_id", Value: t.Key},
		gateway.FormField{Name: "resource_type", Value: "video"},
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), body.Reader)
	if err != nil {
		_ = body.Close()
		return nil, &TransferError{Provider: c.Name(), Err: err}
	}
	req.Header.Set("Content-Type", body.ContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransferError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransferError{Provider: c.Name(), Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransferError{Provider: c.Name(), Status: resp.StatusCode, Err: providerMessage(data)}
	}

	var obj models.StoredObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &TransferError{Provider: c.Name(), Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if obj.SecureURL == "" {
		return nil, &TransferError{Provider: c.Name(), Status: resp.StatusCode, Err: errors.New("response has no secure_url")}
	}
	return &obj, nil
}

// providerMessage extracts {"error":{"message":...}} from a rejection.
func providerMessage(data []byte) error {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return errors.New(e.Error.Message)
	}
	return errors.New("upload rejected")
}

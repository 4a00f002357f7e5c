package upload

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/mediax/internal/client/models"
)

// ConfigError means the client is not configured for uploads. It is raised
// before any network activity.
type ConfigError struct {
	Provider string
	Field    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("upload is not configured: %s %s is missing", e.Provider, e.Field)
}

// TransferError means the file did not reach object storage: transport
// failure, cancellation, or a rejection by the provider. Nothing was
// registered with the backend.
type TransferError struct {
	Provider string
	// Status is the provider's HTTP status, 0 if no response was received.
	Status int
	Err    error
}

func (e *TransferError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload to %s failed (%d %s): %v", e.Provider, e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("upload to %s failed: %v", e.Provider, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// CommitError means the file is in object storage but the backend did not
// register it. The object is orphaned: it exists in storage, is not part of
// the gallery, and is not cleaned up. Object identifies it.
type CommitError struct {
	Object models.StoredObject
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to save video metadata (stored object %s left unregistered): %v", e.Object.PublicID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

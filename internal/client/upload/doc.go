// Package upload implements the two-phase media upload.
//
// Phase one streams the file straight to object storage through a
// StorageProvider (Cloudinary-style preset upload or S3). Phase two
// registers the stored object with the backend. The phases are not atomic:
// when registration fails the object stays in storage, unregistered, and
// the caller gets a *CommitError naming it. Nothing is rolled back or
// retried.
//
// Errors:
//   - *ConfigError: provider settings missing, raised before any I/O.
//   - *TransferError: phase one failed or was cancelled; nothing registered.
//   - *CommitError: phase two failed; orphaned object described inside.
package upload

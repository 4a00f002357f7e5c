// Package livesync consumes the server-push stream that announces gallery
// changes. Messages are notifications only; the handler re-fetches the
// collection itself.
//
// A Channel is Open until Close (then Closed) or until the transport fails
// (then Errored). There is no reconnection and no way out of Errored.
// Messages that are not JSON, or whose type is not videosUpdated, are
// dropped without affecting the channel.
package livesync

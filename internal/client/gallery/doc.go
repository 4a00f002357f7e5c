// Package gallery is the view model behind the video gallery: the server's
// collection, a selection, loading and error flags, and the state of the
// live sync channel that keeps the collection fresh.
//
// The collection is never edited locally. Every change, whether pushed by
// the server or made through Upload, Rename or Delete, is followed by a full
// re-fetch whose result replaces the previous one.
package gallery

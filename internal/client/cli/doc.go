// Package cli provides the interactive mediax terminal client.
//
// NewApp wires configuration, the local database, the credential store,
// the request gateway and the session controller, then restores the
// previous session. App.Run starts a REPL that stands in for the routed
// views of a graphical client:
//
//   - signup / login / verify / resend: account entry, including the
//     email verification detour for unverified accounts
//   - forgot / reset: password recovery
//   - list / select / watch / unwatch: the gallery, with live updates
//   - upload / uploadmany / rename / delete: media management (admins)
//   - whoami / refresh / deleteaccount / logout [--all]: the signed-in
//     account; refresh and logout also work while a kept credential is
//     still waiting for its identity
//   - profile [edit] / photo / user / mine: profiles and own uploads
//   - chat [reset]: the support assistant, with per-session history
//   - theme / stats: local preferences and client metrics
//
// The gallery is mounted on first use and unmounted on unwatch, logout or
// when the session ends on its own.
package cli

// Package authclient keeps the client side of a bearer token session: it
// obtains a token from the Auth Service, persists it, decodes its claims,
// signs outbound requests and gates protected views.
//
// Session lifecycle:
//   - Session owns the in-memory identity. Init restores a stored token
//     optimistically, without a network call. CheckAuthStatus re-validates
//     it against a protected probe endpoint and clears everything when the
//     probe fails.
//   - Login and Register are the only paths that establish a session.
//     Failures surface as AuthError values whose message comes from the
//     server detail, or a generic fallback.
//
// Credentials:
//   - Codec decodes the claims segment of a compact token. It does not
//     verify signatures unless a Verifier is attached with WithVerifier.
//     A token without exp counts as expired.
//   - CredentialStore persists one token slot. MemoryStore, FileStore and
//     BunStore (SQLite through bun) are provided.
//
// Requests and views:
//   - Signer is an http.RoundTripper attaching the stored token. A 401
//     clears the store and redirects to the login destination.
//   - Guard renders protected views only after the session re-verified on
//     mount. Guard.Middleware does the same for go-router routes.
//
// Activity sinks receive lifecycle events best-effort; their errors are
// logged and never fail an operation.
package authclient

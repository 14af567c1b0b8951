// Package server provides the small HTTP surface hitqr exposes on the local network.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] wraps handlers in reverse
// order (last added executes first). [BasicRouter] uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the PKCE authorization code flow started by the login command. It validates the
// state parameter, hands the code and verifier to an [Exchanger] and sends the result through a channel. It
// only processes one callback.
//
// # Scan Feed
//
// [ScanFeedHandler] accepts websocket connections from a phone camera page or scanner app. Every text frame
// is one decoded QR string, pushed into the scan source the game is reading from.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

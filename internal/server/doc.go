// Package server provides HTTP routing, middleware, and OAuth handling for federated sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added: the first registered middleware is the outermost wrapper.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// pulls the OpenID id_token out of the token response, and sends the result through a channel.
// An access_denied callback is reported as a cancellation rather than an error.
//
// It only processes one callback to prevent replay attacks.
//
// # Google Sign-in
//
// [GoogleFlow] starts a temporary server on the configured loopback address, opens the consent page,
// waits for the callback (two minute timeout), and shuts down. Its result feeds
// [auth.Manager.CompleteFederatedSignIn].
package server

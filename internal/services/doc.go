// Package services defines the [Provider] interface for the remote identity authority and
// implements it for the Identity Toolkit REST API.
//
// # Provider Interface
//
// The auth session manager is the only caller of a [Provider]. A provider owns its own session
// (id and refresh tokens) but never the device session cache, which remains the manager's.
//
// # Identity Toolkit Implementation
//
// [IdentityToolkitService] talks JSON over HTTPS:
//   - accounts:signInWithPassword, accounts:signUp : password sessions
//   - accounts:lookup : reloads EmailVerified
//   - accounts:sendOobCode : VERIFY_EMAIL and PASSWORD_RESET mails
//   - accounts:signInWithIdp : exchanges a Google id token
//   - securetoken token endpoint : refreshes expired id tokens
//
// All requests pass through a shared rate limiter. The provider session is mirrored to a 0600 JSON
// file so [IdentityToolkitService.CurrentIdentity] can restore it on the next start.
//
// # Error Handling
//
// Failures reported by the provider are returned as [*ProviderError] with the provider's code
// (e.g. INVALID_PASSWORD). Failures to reach it wrap [shared.ErrTransport]. A missing API key is
// reported as [shared.ErrMissingCredentials] before any request is made.
package services

// Package auth implements the device's authentication session state machine.
//
// # State Machine
//
//	Anonymous -> Authenticating -> PendingVerification -> AwaitingVerification | Authenticated
//	Authenticating -> Anonymous (provider failure)
//	Anonymous -> Authenticating (federated) -> Authenticated | Anonymous
//	Authenticated -> Anonymous (sign-out)
//
// The [Manager] is the only component that calls the identity provider and the only writer of the
// session cache. Password identities must have a verified email before the cache is set; federated
// identities are trusted as issued.
//
// # Sign-out Race
//
// Provider calls run without holding the manager lock. Each sign-out increments an epoch, and a
// reconciliation that started under an older epoch is dropped with
// [shared.ErrReconciliationDiscarded] instead of writing the cache.
//
// # Errors
//
//   - [*ValidationError] : local input checks, never sent to the provider
//   - [*AuthError] : provider failures mapped by [Classify] into [InvalidCredentials],
//     [ServiceBlocked], [NetworkUnavailable], or [Unknown]
//
// Both expose UserMessage for display.
package auth

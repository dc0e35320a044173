// Package session keeps the device's durable "is authenticated" flag.
//
// The flag lives in a small TOML file (<data_dir>/<app_id>_preferences.toml) alongside the user's
// email and uid, the last update time, a per-install id, and whether onboarding was shown.
// It is deliberately independent of the identity provider: the provider may still hold a session
// while the flag is false (e.g. awaiting email verification), and the flag may be stale until the
// next reconciliation.
//
// Only the auth manager writes to a [FileCache]; everything else reads it.
package session

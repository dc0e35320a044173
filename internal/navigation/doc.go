// Package navigation decides which screen a navigation request lands on.
//
// [Decide] is a pure function of the session state, the current screen, and the requested one.
// It never performs I/O; callers act on the returned [Decision].
package navigation

// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// Screens follow the navigation destinations:
//  1. Guest : choose sign in, sign up, or Google
//  2. SignIn, SignUp, ForgotPassword : email and password forms
//  3. Home : entry to the signed-in screens
//  4. Notes, Tasks : append to and browse a list
//  5. Profile : the reconciled identity and sign out
//
// Every screen change goes through [navigation.Decide], so protected screens cannot be reached
// without an authenticated session. The cold start screen comes from the cached session flag and
// is confirmed with the provider before Home is shown.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Provider and storage calls run as [tea.Cmd] functions off the render loop; keys are ignored while one is in flight.
//
// Form screens bind only modified keys (tab, enter, esc, ctrl+...) so typed letters reach the inputs.
package ui

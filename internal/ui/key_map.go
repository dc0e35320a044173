package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Form screens only use modified keys so plain letters reach the inputs.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	next       key.Binding
	prev       key.Binding
	submit     key.Binding
	back       key.Binding
	signIn     key.Binding
	signUp     key.Binding
	google     key.Binding
	toSignUp   key.Binding
	forgot     key.Binding
	verify     key.Binding
	formGoogle key.Binding
	notes      key.Binding
	tasks      key.Binding
	profile    key.Binding
	signOut    key.Binding
	quit       key.Binding
	kill       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "pgup"), key.WithHelp("↑", "scroll up")),
		down:       key.NewBinding(key.WithKeys("down", "pgdown"), key.WithHelp("↓", "scroll down")),
		next:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		prev:       key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		signIn:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sign in")),
		signUp:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "sign up")),
		google:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "google")),
		toSignUp:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "sign up")),
		forgot:     key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "forgot password")),
		verify:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "I verified")),
		formGoogle: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "google")),
		notes:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notes")),
		tasks:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tasks")),
		profile:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "profile")),
		signOut:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
		quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		kill:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.signIn, k.signUp, k.google},
		{k.next, k.prev, k.submit, k.back},
		{k.notes, k.tasks, k.profile, k.signOut},
		{k.quit, k.kill},
	}
}

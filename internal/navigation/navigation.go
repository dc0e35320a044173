package navigation

import (
	"fmt"
	"strings"

	"github.com/desertthunder/rize/internal/models"
)

// Destination is a screen the user can be routed to.
type Destination int

const (
	Splash Destination = iota
	Guest
	SignIn
	SignUp
	ForgotPassword
	Home
	Notes
	Tasks
	Profile
)

type route struct {
	name         string
	requiresAuth bool
	entryPoint   bool
}

// routes is the single table consulted by [Decide].
var routes = map[Destination]route{
	Splash:         {name: "splash"},
	Guest:          {name: "guest", entryPoint: true},
	SignIn:         {name: "signin", entryPoint: true},
	SignUp:         {name: "signup", entryPoint: true},
	ForgotPassword: {name: "forgot", entryPoint: true},
	Home:           {name: "home", requiresAuth: true},
	Notes:          {name: "notes", requiresAuth: true},
	Tasks:          {name: "tasks", requiresAuth: true},
	Profile:        {name: "profile", requiresAuth: true},
}

// Destinations lists every destination in declaration order.
var Destinations = []Destination{Splash, Guest, SignIn, SignUp, ForgotPassword, Home, Notes, Tasks, Profile}

func (d Destination) String() string {
	if r, ok := routes[d]; ok {
		return r.name
	}
	return fmt.Sprintf("destination(%d)", int(d))
}

// RequiresAuth reports whether d is only reachable by an authenticated session.
func (d Destination) RequiresAuth() bool { return routes[d].requiresAuth }

// EntryPoint reports whether d is an authentication screen that a signed-in user should skip.
func (d Destination) EntryPoint() bool { return routes[d].entryPoint }

// Parse resolves a destination by name, ignoring case.
func Parse(name string) (Destination, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range Destinations {
		if routes[d].name == name {
			return d, nil
		}
	}
	return Splash, fmt.Errorf("unknown destination %q", name)
}

// Decision is the outcome of a navigation request.
type Decision struct {
	Target   Destination
	Navigate bool
}

// Decide returns where a request for requested should land given the session state.
//
// Protected screens redirect to [SignIn] unless state is [models.Authenticated]; entry points
// redirect to [Home] when it is. Navigate is false when the final target is already current.
func Decide(state models.State, current, requested Destination) Decision {
	target := requested

	switch {
	case requested.RequiresAuth() && state != models.Authenticated:
		target = SignIn
	case requested.EntryPoint() && state == models.Authenticated:
		target = Home
	}

	return Decision{Target: target, Navigate: target != current}
}

// Initial picks the first screen after the splash from the cached route hint.
func Initial(hint models.State) Destination {
	if hint == models.Authenticated {
		return Home
	}
	return Guest
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// Route names a screen.
type Route string

const (
	RouteLanding   Route = "/"
	RouteLogin     Route = "/login"
	RouteRegister  Route = "/register"
	RouteDashboard Route = "/dashboard"
	RouteAssistant Route = "/assistant"
	RouteChat      Route = "/chat"
	RouteProfile   Route = "/profile"
)

// Reached only while logged out.
var publicOnly = map[Route]bool{
	RouteLanding:  true,
	RouteLogin:    true,
	RouteRegister: true,
}

// Reached only while logged in.
var protected = map[Route]bool{
	RouteDashboard: true,
	RouteAssistant: true,
	RouteChat:      true,
	RouteProfile:   true,
}

// Known reports whether r is a route the application renders.
func Known(r Route) bool {
	return publicOnly[r] || protected[r]
}

// Protected reports whether r requires a token.
func Protected(r Route) bool {
	return protected[r]
}

// Resolve applies the route guard for a given authentication state.
// Unknown routes fall back to the landing route, which is itself guarded.
func Resolve(r Route, authenticated bool) Route {
	if !Known(r) {
		r = RouteLanding
	}
	switch {
	case protected[r] && !authenticated:
		return RouteLogin
	case publicOnly[r] && authenticated:
		return RouteDashboard
	}
	return r
}

// Guard resolves r against the store's current token.
func (s *Store) Guard(r Route) Route {
	return Resolve(r, s.IsAuthenticated())
}

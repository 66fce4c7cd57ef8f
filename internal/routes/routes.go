// Package routes classifies page paths as private, public or hybrid and
// guards private pages behind a session.
package routes

import (
	"path"
	"strings"
)

// Class is the access class of a page.
type Class string

const (
	// Private pages require a session.
	Private Class = "private"
	// Public pages are for visitors without a session.
	Public Class = "public"
	// Hybrid pages are open to everyone.
	Hybrid Class = "hybrid"
)

var privateRoutes = []string{
	"/dashboard",
	"/dashboard/diner",
	"/dashboard/restaurant",
	"/portal",
	"/post-event",
	"/talent-onboarding",
	"/influencer-onboarding",
	"/company-profile",
	"/company-success",
	"/talent-success",
	"/event-success",
	"/events",
	"/messages",
	"/event",
	"/add-role",
	"/message",
	"/create-message",
	"/message-success",
	"/role",
	"/connect-social",
	"/profile",
	"/portfolio",
	"/settings",
	"/auditions",
	"/admin",
	"/talent",
	"/apply",
	"/applications",
	"/assistant",
	"/receipt",
	"/menu-analysis",
}

var publicRoutes = []string{
	"/",
	"/login",
	"/register/diner",
	"/register/restaurant",
	"/otp",
	"/forgot",
	"/reset",
	"/forgot-success",
	"/help",
	"/pricing",
	"/termsofservice",
	"/privacypolicy",
}

var hybridRoutes = []string{
	"/about",
	"/jobs",
	"/talent",
	"/contact",
	"/terms-of-service",
	"/privacy-policy",
	"/terms-and-conditions",
}

// Table is a copy of the three route lists.
type Table struct {
	Private []string `json:"private"`
	Public  []string `json:"public"`
	Hybrid  []string `json:"hybrid"`
}

// Lists returns copies of the route lists in their declared order.
func Lists() Table {
	return Table{
		Private: append([]string(nil), privateRoutes...),
		Public:  append([]string(nil), publicRoutes...),
		Hybrid:  append([]string(nil), hybridRoutes...),
	}
}

// Normalize cleans p into the form the route lists use: rooted, without
// dot segments or a trailing slash.
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

// Classify returns the access class of p.
//
// A path is private when it equals a private route or lies below one
// ("/events/42" under "/events"). Otherwise it is public when it equals a
// public route. Private wins, so "/talent" is private although it is also
// listed as hybrid. Unknown paths are hybrid.
func Classify(p string) Class {
	p = Normalize(p)
	for _, r := range privateRoutes {
		if p == r || strings.HasPrefix(p, r+"/") {
			return Private
		}
	}
	for _, r := range publicRoutes {
		if p == r {
			return Public
		}
	}
	return Hybrid
}

// IsAuthPage reports whether p is a login or registration page, which a
// signed-in viewer has no reason to see.
func IsAuthPage(p string) bool {
	p = Normalize(p)
	return p == "/login" || strings.HasPrefix(p, "/register/")
}

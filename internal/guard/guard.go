// Package guard maps the session state and a requested path to the view to
// render, or to a redirect.
package guard

import (
	"strings"

	"local.dev/gymmit/internal/session"
)

const (
	PathLogin   = "/"
	PathHome    = "/home"
	PathProfile = "/profile"
	topicPrefix = "/topic/"
)

type View int

const (
	// None renders nothing; the session has not resolved yet.
	None View = iota
	Login
	Home
	Profile
	TopicThread
	NotFound
)

func (v View) String() string {
	switch v {
	case Login:
		return "login"
	case Home:
		return "home"
	case Profile:
		return "profile"
	case TopicThread:
		return "topic"
	case NotFound:
		return "not_found"
	}
	return "none"
}

// Route is a parsed request path.
type Route struct {
	View    View
	TopicID string
}

func TopicPath(id string) string { return topicPrefix + id }

func Parse(path string) Route {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	switch path {
	case PathLogin, "":
		return Route{View: Login}
	case PathHome:
		return Route{View: Home}
	case PathProfile:
		return Route{View: Profile}
	}
	if id, ok := strings.CutPrefix(path, topicPrefix); ok && id != "" && !strings.Contains(id, "/") {
		return Route{View: TopicThread, TopicID: id}
	}
	return Route{View: NotFound}
}

type Decision struct {
	Route
	// Redirect is set when the request must go elsewhere; Route is then zero.
	Redirect string
}

// Resolve is pure: the same state and route always give the same decision.
func Resolve(st session.State, r Route) Decision {
	if r.View == NotFound {
		return Decision{Route: r}
	}
	switch st.Status {
	case session.Unknown:
		return Decision{Route: Route{View: None}}
	case session.SignedIn:
		if !st.SignedIn() {
			return Decision{Redirect: PathLogin}
		}
		if r.View == Login {
			return Decision{Redirect: PathHome}
		}
		return Decision{Route: r}
	}
	if r.View != Login {
		return Decision{Redirect: PathLogin}
	}
	return Decision{Route: r}
}

// ResolvePath is Resolve over a raw path.
func ResolvePath(st session.State, path string) Decision {
	return Resolve(st, Parse(path))
}

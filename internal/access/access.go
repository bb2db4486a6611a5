// Package access maps a caller's identity to a profile and decides which
// route classes that profile may enter.
package access

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/surtidora/api/internal/enum"
	"gopkg.in/yaml.v3"
)

// Identity is the authenticated caller as seen by the resolver. A nil
// *Identity means nobody is signed in.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Rule is what a route class demands of its callers.
type Rule struct {
	RequireAuth bool     `yaml:"require_auth" json:"require_auth"`
	Allowed     []string `yaml:"allowed" json:"allowed"`
}

// Policy is the full access configuration.
type Policy struct {
	// AdminEmails match exactly, ignoring case.
	AdminEmails []string `yaml:"admin_emails"`
	// WholesaleMarkers match as substrings of the email, ignoring case.
	WholesaleMarkers []string `yaml:"wholesale_markers"`

	LoginRoute string            `yaml:"login_route"`
	Home       map[string]string `yaml:"home"`
	Routes     map[string]Rule   `yaml:"routes"`
}

// Decision is the outcome of Authorize. Redirect is set only when Allowed is
// false.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// DefaultPolicy is the built-in configuration used when no policy file is set.
func DefaultPolicy() Policy {
	return Policy{
		AdminEmails:      []string{"admin@surtidora.pe"},
		WholesaleMarkers: []string{"mayorista"},
		LoginRoute:       "/login",
		Home: map[string]string{
			enum.ProfileAdmin:     "/admin",
			enum.ProfileWholesale: "/mayorista",
			enum.ProfileRetail:    "/tienda",
			enum.ProfileNone:      "/",
		},
		Routes: map[string]Rule{
			enum.RouteClassPublic: {
				Allowed: []string{enum.ProfileNone, enum.ProfileRetail, enum.ProfileWholesale, enum.ProfileAdmin},
			},
			enum.RouteClassShop: {
				RequireAuth: true,
				Allowed:     []string{enum.ProfileRetail, enum.ProfileWholesale, enum.ProfileAdmin},
			},
			enum.RouteClassCheckout: {
				RequireAuth: true,
				Allowed:     []string{enum.ProfileRetail, enum.ProfileWholesale},
			},
			enum.RouteClassWholesale: {
				RequireAuth: true,
				Allowed:     []string{enum.ProfileWholesale, enum.ProfileAdmin},
			},
			enum.RouteClassAdmin: {
				RequireAuth: true,
				Allowed:     []string{enum.ProfileAdmin},
			},
		},
	}
}

// LoadPolicy reads a YAML policy file over the defaults. Keys absent from the
// file keep their default values; map entries are merged per key.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that every profile named in the policy is known and that
// every profile has a home route.
func (p Policy) Validate() error {
	if p.LoginRoute == "" {
		return fmt.Errorf("login_route is required")
	}
	for _, profile := range profiles {
		if p.Home[profile] == "" {
			return fmt.Errorf("home route for profile %q is required", profile)
		}
	}
	for class, rule := range p.Routes {
		for _, profile := range rule.Allowed {
			if !slices.Contains(profiles, profile) {
				return fmt.Errorf("route class %q: unknown profile %q", class, profile)
			}
		}
	}
	return nil
}

var profiles = []string{enum.ProfileAdmin, enum.ProfileWholesale, enum.ProfileRetail, enum.ProfileNone}

// ResolveProfile maps an identity to its profile tag. Admin matches take
// precedence over wholesale markers.
func (p Policy) ResolveProfile(id *Identity) string {
	if id == nil {
		return enum.ProfileNone
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return enum.ProfileNone
	}
	for _, admin := range p.AdminEmails {
		if strings.EqualFold(email, strings.TrimSpace(admin)) {
			return enum.ProfileAdmin
		}
	}
	for _, marker := range p.WholesaleMarkers {
		m := strings.ToLower(strings.TrimSpace(marker))
		if m != "" && strings.Contains(email, m) {
			return enum.ProfileWholesale
		}
	}
	return enum.ProfileRetail
}

// HomeRoute is the landing route for profile.
func (p Policy) HomeRoute(profile string) string {
	if home, ok := p.Home[profile]; ok {
		return home
	}
	return p.Home[enum.ProfileNone]
}

// Authorize decides whether profile may enter routeClass. Callers who are not
// signed in are sent to login; signed-in callers without access are sent to
// their own home route.
func (p Policy) Authorize(profile, routeClass string) Decision {
	rule, ok := p.Routes[routeClass]
	if !ok {
		return Decision{Redirect: p.LoginRoute}
	}
	if profile == enum.ProfileNone && rule.RequireAuth {
		return Decision{Redirect: p.LoginRoute}
	}
	if !slices.Contains(rule.Allowed, profile) {
		if profile == enum.ProfileNone {
			return Decision{Redirect: p.LoginRoute}
		}
		return Decision{Redirect: p.HomeRoute(profile)}
	}
	return Decision{Allowed: true}
}

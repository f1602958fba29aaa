// Package permissions maps roles to capability sets and gates page mounts on
// (module, action) pairs. Handlers and controllers only ever ask a Gate; the
// role names live in the YAML policy.
package permissions

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"gopkg.in/yaml.v3"
)

// Modules of the console.
const (
	Accounts  = "accounts"
	Companies = "companies"
	Users     = "users"
	Admins    = "admins"
	Modules   = "modules"
	Feedback  = "feedback"
	Logs      = "logs"
)

// Actions on a module.
const (
	View   = "view"
	Create = "create"
	Edit   = "edit"
)

// Wildcard matches any module or action.
const Wildcard = "*"

// Gate answers capability questions for one user.
type Gate interface {
	Allowed(module, action string) bool
}

// CapabilitySet is module -> set of actions.
type CapabilitySet map[string]map[string]struct{}

// Allowed implements Gate.
func (c CapabilitySet) Allowed(module, action string) bool {
	module, action = norm(module), norm(action)
	for _, m := range []string{module, Wildcard} {
		acts, ok := c[m]
		if !ok {
			continue
		}
		if _, ok := acts[action]; ok {
			return true
		}
		if _, ok := acts[Wildcard]; ok {
			return true
		}
	}
	return false
}

// Deny is the empty capability set.
var Deny Gate = CapabilitySet{}

// Policy is the role -> capability mapping loaded from YAML:
//
//	roles:
//	  admin:
//	    accounts: [view, create, edit]
//	    logs: [view]
type Policy struct {
	Roles map[string]map[string][]string `yaml:"roles"`

	sets map[string]CapabilitySet
}

// DefaultPolicyYAML is used when no policy file is configured.
const DefaultPolicyYAML = `
roles:
  superadmin:
    "*": ["*"]
  admin:
    accounts: [view, create, edit]
    companies: [view, create, edit]
    users: [view, create, edit]
    modules: [view, edit]
    feedback: [view]
    logs: [view]
  support:
    accounts: [view]
    companies: [view]
    feedback: [view]
`

// ParsePolicy decodes a YAML policy.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse permission policy: %w", err)
	}
	if len(p.Roles) == 0 {
		return nil, fmt.Errorf("parse permission policy: no roles defined")
	}
	p.sets = make(map[string]CapabilitySet, len(p.Roles))
	for role, modules := range p.Roles {
		set := CapabilitySet{}
		for module, actions := range modules {
			acts := make(map[string]struct{}, len(actions))
			for _, a := range actions {
				if a = norm(a); a != "" {
					acts[a] = struct{}{}
				}
			}
			set[norm(module)] = acts
		}
		p.sets[norm(role)] = set
	}
	return &p, nil
}

// LoadPolicy reads the policy at path, or the default policy when path is
// empty.
func LoadPolicy(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission policy: %w", err)
	}
	return ParsePolicy(data)
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy([]byte(DefaultPolicyYAML))
	if err != nil {
		panic(err)
	}
	return p
}

// For returns the capability set of role. Unknown roles get nothing.
func (p *Policy) For(role string) Gate {
	if set, ok := p.sets[norm(role)]; ok {
		return set
	}
	return Deny
}

// GateFor returns the Gate of the signed-in user of r.
func (p *Policy) GateFor(r *http.Request) Gate {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Deny
	}
	return p.For(u.Role)
}

// RequireCapability lets the request through only when the signed-in user
// may perform action on module.
func (p *Policy) RequireCapability(module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.CurrentUser(r); !ok {
				auth.Unauthenticated(w, r)
				return
			}
			if !p.GateFor(r).Allowed(module, action) {
				auth.Forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

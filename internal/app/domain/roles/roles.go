// Package roles names the user roles and the role groups used by access checks.
package roles

const (
	Operator     = "operator"
	SecurityLead = "security_lead"
	Supervisor   = "supervisor"
	Admin        = "admin"
)

// Group is a set of roles allowed to perform an action.
type Group []string

var (
	Admins          = Group{Admin}
	Supervisors     = Group{Supervisor, Admin}
	Security        = Group{SecurityLead, Supervisor, Admin}
	Operations      = Group{Operator, Supervisor, Admin}
	PlaybookEditors = Group{SecurityLead, Admin}
)

// Contains reports whether role belongs to g.
func (g Group) Contains(role string) bool {
	for _, r := range g {
		if r == role {
			return true
		}
	}
	return false
}

// Valid reports whether role is a known role.
func Valid(role string) bool {
	switch role {
	case Operator, SecurityLead, Supervisor, Admin:
		return true
	}
	return false
}

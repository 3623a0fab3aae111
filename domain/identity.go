// Package domain contains core concepts of the session broker.
// No runtime, network, or UI logic should be added here.
package domain

type IdentityID string

// Role describes what a verified identity is allowed to do on a connection.
type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleProvider, RoleModerator:
		return true
	}
	return false
}

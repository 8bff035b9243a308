package domain

import "time"

// Role enumerates the actor kinds recognized by the service.
type Role string

const (
	RoleSupervisor Role = "SUPERVISOR"
	RoleTechnician Role = "TECHNICIAN"
	RoleClient     Role = "CLIENT"
)

// PrincipalStatus represents account lifecycle states.
type PrincipalStatus string

const (
	PrincipalStatusActive    PrincipalStatus = "ACTIVE"
	PrincipalStatusSuspended PrincipalStatus = "SUSPENDED"
)

// Principal is an authenticated actor. InstitutionID is set only for clients;
// technicians act under their own ID when working tickets.
type Principal struct {
	ID            string
	FullName      string
	Email         string
	Phone         *string
	PasswordHash  string
	Role          Role
	Status        PrincipalStatus
	InstitutionID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsSupervisor reports whether the principal has unrestricted scope.
func (p *Principal) IsSupervisor() bool {
	return p != nil && p.Role == RoleSupervisor
}

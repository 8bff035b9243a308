package authz

import (
	"github.com/spec-kit/field-service/internal/domain"
)

// Operation enumerates the access kinds checked against the capability table.
type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// EntityKind names the protected entity families.
type EntityKind string

const (
	KindTicket      EntityKind = "ticket"
	KindEquipment   EntityKind = "equipment"
	KindInstitution EntityKind = "institution"
	KindPrincipal   EntityKind = "principal"
)

// Scope carries the ownership attributes of the target entity. A nil field
// means the entity has no such owner (e.g. an unassigned ticket).
type Scope struct {
	InstitutionID *string
	TechnicianID  *string
}

// Decision is the outcome of an authorization check. Denials carry a reason
// and are returned, never raised.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow grants access.
func Allow() Decision { return Decision{Allowed: true} }

// Deny refuses access with a reason.
func Deny(reason string) Decision { return Decision{Reason: reason} }

// Authorize evaluates the fixed capability table. It is a pure function with
// no side effects, safe to call repeatedly and concurrently. The table is the
// single source of truth for permissions; call sites never compare role
// strings themselves.
func Authorize(p *domain.Principal, kind EntityKind, scope Scope, op Operation) Decision {
	if p == nil {
		return Deny("no principal")
	}
	switch p.Role {
	case domain.RoleSupervisor:
		return Allow()
	case domain.RoleTechnician:
		return authorizeTechnician(p, kind, scope, op)
	case domain.RoleClient:
		return authorizeClient(p, kind, scope, op)
	}
	return Deny("unknown role")
}

func authorizeTechnician(p *domain.Principal, kind EntityKind, scope Scope, op Operation) Decision {
	switch kind {
	case KindTicket:
		switch op {
		case OpRead:
			if ticketAssignedTo(scope, p.ID) {
				return Allow()
			}
			return Deny("ticket not assigned to technician")
		case OpUpdate:
			// Unassigned tickets may be claimed by the first responder;
			// assigned tickets only by their technician.
			if scope.TechnicianID == nil || *scope.TechnicianID == p.ID {
				return Allow()
			}
			return Deny("ticket assigned to another technician")
		}
		return Deny("technicians cannot " + string(op) + " tickets")
	case KindEquipment, KindInstitution:
		if op == OpRead {
			return Allow()
		}
		return Deny("equipment and institutions are read-only for technicians")
	}
	return Deny("technicians cannot access " + string(kind) + " records")
}

func authorizeClient(p *domain.Principal, kind EntityKind, scope Scope, op Operation) Decision {
	if p.InstitutionID == nil {
		return Deny("client has no institution")
	}
	switch kind {
	case KindTicket:
		switch op {
		case OpRead:
			if sameInstitution(scope, *p.InstitutionID) {
				return Allow()
			}
			return Deny("ticket belongs to another institution")
		case OpCreate:
			if sameInstitution(scope, *p.InstitutionID) {
				return Allow()
			}
			return Deny("clients may only open tickets for their own institution")
		}
		return Deny("clients cannot " + string(op) + " tickets")
	case KindEquipment, KindInstitution:
		if op == OpRead && sameInstitution(scope, *p.InstitutionID) {
			return Allow()
		}
		if op == OpRead {
			return Deny(string(kind) + " belongs to another institution")
		}
		return Deny("clients cannot " + string(op) + " " + string(kind) + " records")
	}
	return Deny("clients cannot access " + string(kind) + " records")
}

func ticketAssignedTo(scope Scope, technicianID string) bool {
	return scope.TechnicianID != nil && *scope.TechnicianID == technicianID
}

func sameInstitution(scope Scope, institutionID string) bool {
	return scope.InstitutionID != nil && *scope.InstitutionID == institutionID
}

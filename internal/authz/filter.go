package authz

import (
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// AccessFilter applies the capability table as query restrictions and
// command-level assertions. The same predicate guards direct fetches and
// joined lookups, so a client can never see another institution's equipment
// through a ticket reference.
type AccessFilter struct{}

// NewAccessFilter constructs the filter.
func NewAccessFilter() *AccessFilter {
	return &AccessFilter{}
}

// ScopedTicketFilter narrows a base query to the principal's visibility.
// Requesting rows outside scope is an authorization failure, not an empty
// result, so misuse surfaces instead of silently returning nothing.
func (f *AccessFilter) ScopedTicketFilter(p *domain.Principal, base repository.TicketFilter) (repository.TicketFilter, error) {
	if p == nil {
		return base, apperrors.NewAuthorizationError("no principal")
	}
	switch p.Role {
	case domain.RoleSupervisor:
		return base, nil
	case domain.RoleTechnician:
		if base.TechnicianID != nil && *base.TechnicianID != p.ID {
			return base, apperrors.NewAuthorizationError("technicians may only query their own tickets")
		}
		id := p.ID
		base.TechnicianID = &id
		return base, nil
	case domain.RoleClient:
		if p.InstitutionID == nil {
			return base, apperrors.NewAuthorizationError("client has no institution")
		}
		if base.InstitutionID != nil && *base.InstitutionID != *p.InstitutionID {
			return base, apperrors.NewAuthorizationError("clients may only query their own institution")
		}
		base.InstitutionID = p.InstitutionID
		return base, nil
	}
	return base, apperrors.NewAuthorizationError("unknown role")
}

// ScopedEquipmentFilter narrows an equipment query to the principal's
// visibility. Technicians read equipment fleet-wide; clients only their own
// institution's units.
func (f *AccessFilter) ScopedEquipmentFilter(p *domain.Principal, base repository.EquipmentFilter) (repository.EquipmentFilter, error) {
	if p == nil {
		return base, apperrors.NewAuthorizationError("no principal")
	}
	switch p.Role {
	case domain.RoleSupervisor, domain.RoleTechnician:
		return base, nil
	case domain.RoleClient:
		if p.InstitutionID == nil {
			return base, apperrors.NewAuthorizationError("client has no institution")
		}
		if base.InstitutionID != nil && *base.InstitutionID != *p.InstitutionID {
			return base, apperrors.NewAuthorizationError("clients may only query their own institution")
		}
		base.InstitutionID = p.InstitutionID
		return base, nil
	}
	return base, apperrors.NewAuthorizationError("unknown role")
}

// AssertTicketAccess validates a command against a concrete ticket.
func (f *AccessFilter) AssertTicketAccess(p *domain.Principal, ticket *domain.Ticket, op Operation) error {
	scope := Scope{TechnicianID: ticket.TechnicianID}
	institutionID := ticket.InstitutionID
	scope.InstitutionID = &institutionID
	return decisionToError(Authorize(p, KindTicket, scope, op))
}

// AssertTicketCreate validates opening a ticket for an institution.
func (f *AccessFilter) AssertTicketCreate(p *domain.Principal, institutionID string) error {
	return decisionToError(Authorize(p, KindTicket, Scope{InstitutionID: &institutionID}, OpCreate))
}

// AssertEquipmentAccess validates access to a concrete equipment record,
// including when it is reached through a ticket join.
func (f *AccessFilter) AssertEquipmentAccess(p *domain.Principal, equipment *domain.Equipment, op Operation) error {
	institutionID := equipment.InstitutionID
	return decisionToError(Authorize(p, KindEquipment, Scope{InstitutionID: &institutionID}, op))
}

// AssertInstitutionAccess validates access to an institution record.
func (f *AccessFilter) AssertInstitutionAccess(p *domain.Principal, institution *domain.Institution, op Operation) error {
	institutionID := institution.ID
	return decisionToError(Authorize(p, KindInstitution, Scope{InstitutionID: &institutionID}, op))
}

// AssertPrincipalAccess validates access to actor records (supervisor-only
// except through the identity edge).
func (f *AccessFilter) AssertPrincipalAccess(p *domain.Principal, op Operation) error {
	return decisionToError(Authorize(p, KindPrincipal, Scope{}, op))
}

func decisionToError(d Decision) error {
	if d.Allowed {
		return nil
	}
	return apperrors.NewAuthorizationError(d.Reason)
}

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

func TestScopedTicketFilter(t *testing.T) {
	filter := NewAccessFilter()

	t.Run("supervisor passes through untouched", func(t *testing.T) {
		inst := "inst-1"
		base := repository.TicketFilter{InstitutionID: &inst}
		scoped, err := filter.ScopedTicketFilter(supervisor(), base)
		require.NoError(t, err)
		assert.Equal(t, base, scoped)
	})

	t.Run("technician forced to own assignment", func(t *testing.T) {
		scoped, err := filter.ScopedTicketFilter(technician("tech-1"), repository.TicketFilter{})
		require.NoError(t, err)
		require.NotNil(t, scoped.TechnicianID)
		assert.Equal(t, "tech-1", *scoped.TechnicianID)
	})

	t.Run("technician querying another technician denied", func(t *testing.T) {
		other := "tech-2"
		_, err := filter.ScopedTicketFilter(technician("tech-1"), repository.TicketFilter{TechnicianID: &other})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeAuthorization))
	})

	t.Run("client forced to own institution", func(t *testing.T) {
		scoped, err := filter.ScopedTicketFilter(client("inst-1"), repository.TicketFilter{})
		require.NoError(t, err)
		require.NotNil(t, scoped.InstitutionID)
		assert.Equal(t, "inst-1", *scoped.InstitutionID)
	})

	t.Run("client querying another institution denied", func(t *testing.T) {
		other := "inst-2"
		_, err := filter.ScopedTicketFilter(client("inst-1"), repository.TicketFilter{InstitutionID: &other})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeAuthorization))
	})

	t.Run("nil principal denied", func(t *testing.T) {
		_, err := filter.ScopedTicketFilter(nil, repository.TicketFilter{})
		assert.Error(t, err)
	})
}

func TestScopedEquipmentFilter(t *testing.T) {
	filter := NewAccessFilter()

	t.Run("technician reads fleet-wide", func(t *testing.T) {
		scoped, err := filter.ScopedEquipmentFilter(technician("tech-1"), repository.EquipmentFilter{})
		require.NoError(t, err)
		assert.Nil(t, scoped.InstitutionID)
	})

	t.Run("client forced to own institution", func(t *testing.T) {
		scoped, err := filter.ScopedEquipmentFilter(client("inst-1"), repository.EquipmentFilter{})
		require.NoError(t, err)
		require.NotNil(t, scoped.InstitutionID)
		assert.Equal(t, "inst-1", *scoped.InstitutionID)
	})

	t.Run("client querying another institution denied", func(t *testing.T) {
		other := "inst-2"
		_, err := filter.ScopedEquipmentFilter(client("inst-1"), repository.EquipmentFilter{InstitutionID: &other})
		assert.Error(t, err)
	})
}

func TestAssertTicketAccess(t *testing.T) {
	filter := NewAccessFilter()
	tech := "tech-1"
	ticket := &domain.Ticket{ID: "t-1", InstitutionID: "inst-1", TechnicianID: &tech}

	assert.NoError(t, filter.AssertTicketAccess(supervisor(), ticket, OpUpdate))
	assert.NoError(t, filter.AssertTicketAccess(technician("tech-1"), ticket, OpUpdate))
	assert.Error(t, filter.AssertTicketAccess(technician("tech-2"), ticket, OpUpdate))
	assert.NoError(t, filter.AssertTicketAccess(client("inst-1"), ticket, OpRead))
	assert.Error(t, filter.AssertTicketAccess(client("inst-2"), ticket, OpRead))
	assert.Error(t, filter.AssertTicketAccess(client("inst-1"), ticket, OpUpdate))
}

func TestAssertEquipmentAccessThroughJoin(t *testing.T) {
	filter := NewAccessFilter()
	equipment := &domain.Equipment{ID: "eq-1", InstitutionID: "inst-2"}

	// A client must not reach another institution's equipment even when the
	// lookup arrives through a ticket reference.
	err := filter.AssertEquipmentAccess(client("inst-1"), equipment, OpRead)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAuthorization))

	assert.NoError(t, filter.AssertEquipmentAccess(client("inst-2"), equipment, OpRead))
	assert.NoError(t, filter.AssertEquipmentAccess(technician("tech-1"), equipment, OpRead))
}

func TestAssertTicketCreate(t *testing.T) {
	filter := NewAccessFilter()

	assert.NoError(t, filter.AssertTicketCreate(supervisor(), "inst-1"))
	assert.NoError(t, filter.AssertTicketCreate(client("inst-1"), "inst-1"))
	assert.Error(t, filter.AssertTicketCreate(client("inst-1"), "inst-2"))
	assert.Error(t, filter.AssertTicketCreate(technician("tech-1"), "inst-1"))
}

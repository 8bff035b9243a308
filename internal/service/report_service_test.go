package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/authz"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/sla"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

type reportFixture struct {
	service *ReportService
	tickets *fakeTicketRepo
	start   time.Time
	end     time.Time
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	ctx := context.Background()

	tickets := newFakeTicketRepo()
	institutions := newFakeInstitutionRepo()
	equipment := newFakeEquipmentRepo()
	principals := newFakePrincipalRepo()

	require.NoError(t, institutions.Create(ctx, &domain.Institution{ID: "inst-1", Name: "Hospital Central"}))
	require.NoError(t, institutions.Create(ctx, &domain.Institution{ID: "inst-2", Name: "Clinica Norte"}))
	require.NoError(t, equipment.Create(ctx, &domain.Equipment{
		ID: "eq-1", InstitutionID: "inst-1", Brand: "Ricoh", Model: "MP 2014", Serial: "RIC-001",
	}))
	require.NoError(t, equipment.Create(ctx, &domain.Equipment{
		ID: "eq-2", InstitutionID: "inst-2", Brand: "Kyocera", Model: "M2040dn", Serial: "KYO-001",
	}))
	require.NoError(t, principals.Create(ctx, &domain.Principal{
		ID: "tech-1", FullName: "Luis Romero", Role: domain.RoleTechnician,
	}))

	fx := &reportFixture{
		tickets: tickets,
		start:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		end:     time.Date(2026, 5, 31, 23, 59, 59, 0, time.UTC),
	}
	fx.service = NewReportService(ReportDependencies{
		TicketRepo:      tickets,
		InstitutionRepo: institutions,
		EquipmentRepo:   equipment,
		PrincipalRepo:   principals,
		Filter:          authz.NewAccessFilter(),
		Calculator:      sla.NewCalculator(240),
		Cache:           nil,
		Logger:          zap.NewNop(),
	})
	return fx
}

func (fx *reportFixture) seedTicket(t *testing.T, id string, number int64, institutionID, equipmentID string, createdAt time.Time, responseMinutes *int64) {
	t.Helper()
	tech := "tech-1"
	diagnosis := "drum unit worn"
	solution := "drum replaced"
	ticket := &domain.Ticket{
		ID:                  id,
		InstitutionID:       institutionID,
		EquipmentID:         equipmentID,
		TechnicianID:        &tech,
		Priority:            domain.TicketPriorityMedia,
		Status:              domain.TicketStatusClosed,
		Diagnosis:           &diagnosis,
		Solution:            &solution,
		CreatedAt:           createdAt,
		ResponseTimeMinutes: responseMinutes,
	}
	require.NoError(t, fx.tickets.Create(context.Background(), ticket))
	// Create assigns sequential numbers; pin the requested one directly.
	fx.tickets.mu.Lock()
	stored := fx.tickets.tickets[id]
	stored.TicketNumber = number
	fx.tickets.tickets[id] = stored
	fx.tickets.mu.Unlock()
}

func minutesPtr(m int64) *int64 { return &m }

func TestBuildReport(t *testing.T) {
	ctx := context.Background()

	t.Run("rows ordered by creation then ticket number descending", func(t *testing.T) {
		fx := newReportFixture(t)
		day := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
		fx.seedTicket(t, "t-1", 11, "inst-1", "eq-1", day, minutesPtr(100))
		fx.seedTicket(t, "t-2", 12, "inst-1", "eq-1", day.Add(time.Hour), minutesPtr(100))
		fx.seedTicket(t, "t-3", 13, "inst-1", "eq-1", day, minutesPtr(100))

		rows, err := fx.service.BuildReport(ctx, supervisorPrincipal(), fx.start, fx.end, nil)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, int64(12), rows[0].TicketNumber)
		assert.Equal(t, int64(13), rows[1].TicketNumber, "same timestamp ties break on ticket number")
		assert.Equal(t, int64(11), rows[2].TicketNumber)
	})

	t.Run("row carries resolved names and SLA tag", func(t *testing.T) {
		fx := newReportFixture(t)
		created := time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)
		fx.seedTicket(t, "t-ok", 1, "inst-1", "eq-1", created, minutesPtr(90))
		fx.seedTicket(t, "t-late", 2, "inst-1", "eq-1", created.Add(time.Hour), minutesPtr(300))

		rows, err := fx.service.BuildReport(ctx, supervisorPrincipal(), fx.start, fx.end, nil)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		late := rows[0]
		assert.Equal(t, SLAStatusBreached, late.SLAStatus)
		assert.Equal(t, "Hospital Central", late.InstitutionName)
		assert.Equal(t, "Ricoh MP 2014 (RIC-001)", late.EquipmentDescriptor)
		assert.Equal(t, "Luis Romero", late.TechnicianName)
		assert.Equal(t, "drum unit worn / drum replaced", late.Excerpt)

		assert.Equal(t, SLAStatusCompliant, rows[1].SLAStatus)
	})

	t.Run("client sees only own institution", func(t *testing.T) {
		fx := newReportFixture(t)
		day := time.Date(2026, 5, 15, 9, 0, 0, 0, time.UTC)
		fx.seedTicket(t, "t-a", 1, "inst-1", "eq-1", day, minutesPtr(50))
		fx.seedTicket(t, "t-b", 2, "inst-2", "eq-2", day, minutesPtr(50))

		rows, err := fx.service.BuildReport(ctx, clientPrincipal("inst-1"), fx.start, fx.end, nil)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Hospital Central", rows[0].InstitutionName)
	})

	t.Run("client cannot request another institution", func(t *testing.T) {
		fx := newReportFixture(t)
		other := "inst-2"
		_, err := fx.service.BuildReport(ctx, clientPrincipal("inst-1"), fx.start, fx.end, &other)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeAuthorization))
	})
}

func TestCompliance(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates breaches over the range", func(t *testing.T) {
		fx := newReportFixture(t)
		day := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
		for i := 0; i < 8; i++ {
			fx.seedTicket(t, "ok-"+string(rune('a'+i)), int64(i+1), "inst-1", "eq-1", day, minutesPtr(120))
		}
		fx.seedTicket(t, "late-1", 9, "inst-1", "eq-1", day, minutesPtr(280))
		fx.seedTicket(t, "late-2", 10, "inst-1", "eq-1", day, minutesPtr(500))

		result, err := fx.service.Compliance(ctx, supervisorPrincipal(), fx.start, fx.end, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, result.Total)
		assert.Equal(t, 2, result.BreachCount)
		assert.InDelta(t, 80.0, result.ComplianceRate, 0.0001)
	})

	t.Run("ranges larger than one page are fully aggregated", func(t *testing.T) {
		fx := newReportFixture(t)
		day := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
		total := reportPageSize*2 + 25
		for i := 0; i < total; i++ {
			minutes := int64(100)
			if i%10 == 0 {
				minutes = 400
			}
			fx.seedTicket(t, fmt.Sprintf("t-%04d", i), int64(i+1), "inst-1", "eq-1", day.Add(time.Duration(i)*time.Minute), minutesPtr(minutes))
		}

		result, err := fx.service.Compliance(ctx, supervisorPrincipal(), fx.start, fx.end, nil)
		require.NoError(t, err)
		assert.Equal(t, total, result.Total)
		assert.Equal(t, total/10+1, result.BreachCount)

		rows, err := fx.service.BuildReport(ctx, supervisorPrincipal(), fx.start, fx.end, nil)
		require.NoError(t, err)
		assert.Len(t, rows, total)
	})

	t.Run("empty range is fully compliant", func(t *testing.T) {
		fx := newReportFixture(t)
		result, err := fx.service.Compliance(ctx, supervisorPrincipal(), fx.start, fx.end, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Total)
		assert.Equal(t, float64(100), result.ComplianceRate)
	})

	t.Run("institution restriction applies", func(t *testing.T) {
		fx := newReportFixture(t)
		day := time.Date(2026, 5, 21, 9, 0, 0, 0, time.UTC)
		fx.seedTicket(t, "t-a", 1, "inst-1", "eq-1", day, minutesPtr(300))
		fx.seedTicket(t, "t-b", 2, "inst-2", "eq-2", day, minutesPtr(100))

		inst := "inst-2"
		result, err := fx.service.Compliance(ctx, supervisorPrincipal(), fx.start, fx.end, &inst)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Total)
		assert.Equal(t, 0, result.BreachCount)
	})
}

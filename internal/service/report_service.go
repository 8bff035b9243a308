package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/authz"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/sla"
)

// SLA status tags carried on report rows.
const (
	SLAStatusCompliant = "COMPLIANT"
	SLAStatusBreached  = "BREACHED"
)

const complianceCacheVersionKey = "sla:compliance:ver"

// reportPageSize bounds one listing round trip while the service pages
// through the full range.
const reportPageSize = 500

// ReportRow is one line of the audit report.
type ReportRow struct {
	Date                time.Time `json:"date"`
	TicketNumber        int64     `json:"ticket_number"`
	InstitutionName     string    `json:"institution_name"`
	EquipmentDescriptor string    `json:"equipment_descriptor"`
	TechnicianName      string    `json:"technician_name"`
	Excerpt             string    `json:"excerpt"`
	SLAStatus           string    `json:"sla_status"`
}

// ReportService builds deterministic audit reports and compliance summaries
// over the principal's visible ticket set. Compliance aggregates are cached
// in Redis and invalidated when a ticket closes.
type ReportService struct {
	tickets      repository.TicketRepository
	institutions repository.InstitutionRepository
	equipment    repository.EquipmentRepository
	principals   repository.PrincipalRepository
	filter       *authz.AccessFilter
	calculator   *sla.Calculator
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	TicketRepo      repository.TicketRepository
	InstitutionRepo repository.InstitutionRepository
	EquipmentRepo   repository.EquipmentRepository
	PrincipalRepo   repository.PrincipalRepository
	Filter          *authz.AccessFilter
	Calculator      *sla.Calculator
	Cache           *redis.Client
	CacheTTL        time.Duration
	Logger          *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		tickets:      deps.TicketRepo,
		institutions: deps.InstitutionRepo,
		equipment:    deps.EquipmentRepo,
		principals:   deps.PrincipalRepo,
		filter:       deps.Filter,
		calculator:   deps.Calculator,
		cache:        deps.Cache,
		cacheTTL:     deps.CacheTTL,
		logger:       deps.Logger,
	}
}

// BuildReport produces ordered report rows for tickets created within
// [start, end], optionally restricted to one institution. Ordering is
// created_at descending, ties broken by ticket_number descending, so repeated
// runs over the same data yield identical output.
func (s *ReportService) BuildReport(ctx context.Context, principal *domain.Principal, start, end time.Time, institutionID *string) ([]ReportRow, error) {
	tickets, err := s.visibleTickets(ctx, principal, start, end, institutionID)
	if err != nil {
		return nil, err
	}

	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].TicketNumber > tickets[j].TicketNumber
	})

	institutionNames := map[string]string{}
	equipmentLabels := map[string]string{}
	technicianNames := map[string]string{}

	rows := make([]ReportRow, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		row := ReportRow{
			Date:         t.CreatedAt,
			TicketNumber: t.TicketNumber,
			Excerpt:      reportExcerpt(t),
			SLAStatus:    s.slaTag(t),
		}
		row.InstitutionName = s.institutionName(ctx, institutionNames, t.InstitutionID)
		row.EquipmentDescriptor = s.equipmentLabel(ctx, equipmentLabels, t.EquipmentID)
		if t.TechnicianID != nil {
			row.TechnicianName = s.technicianName(ctx, technicianNames, *t.TechnicianID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Compliance computes the SLA aggregate over the principal's visible tickets
// in the range, consulting the cache first.
func (s *ReportService) Compliance(ctx context.Context, principal *domain.Principal, start, end time.Time, institutionID *string) (sla.Compliance, error) {
	scoped, err := s.scopedFilter(principal, start, end, institutionID)
	if err != nil {
		return sla.Compliance{}, err
	}

	key := s.complianceCacheKey(ctx, scoped, start, end)
	if cached, ok := s.cachedCompliance(ctx, key); ok {
		return cached, nil
	}

	tickets, err := s.collectTickets(ctx, scoped)
	if err != nil {
		return sla.Compliance{}, err
	}

	result := s.calculator.Aggregate(tickets, start, end, institutionID)
	s.storeCompliance(ctx, key, result)
	return result, nil
}

// InvalidateComplianceCache bumps the cache namespace version so stale
// aggregates are no longer served. Cache failures are logged, never fatal.
func (s *ReportService) InvalidateComplianceCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, complianceCacheVersionKey).Err(); err != nil {
		s.logger.Warn("compliance cache invalidation failed", zap.Error(err))
	}
}

func (s *ReportService) visibleTickets(ctx context.Context, principal *domain.Principal, start, end time.Time, institutionID *string) ([]domain.Ticket, error) {
	scoped, err := s.scopedFilter(principal, start, end, institutionID)
	if err != nil {
		return nil, err
	}
	return s.collectTickets(ctx, scoped)
}

// collectTickets pages through the filtered listing until exhaustion so
// report rows and compliance aggregates cover the whole range, not just the
// first page.
func (s *ReportService) collectTickets(ctx context.Context, scoped repository.TicketFilter) ([]domain.Ticket, error) {
	scoped.Limit = reportPageSize
	scoped.Offset = 0
	var all []domain.Ticket
	for {
		var page []domain.Ticket
		if err := withRetry(ctx, func(ctx context.Context) error {
			var listErr error
			page, listErr = s.tickets.ListWithFilter(ctx, scoped)
			return listErr
		}); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < reportPageSize {
			return all, nil
		}
		scoped.Offset += reportPageSize
	}
}

func (s *ReportService) scopedFilter(principal *domain.Principal, start, end time.Time, institutionID *string) (repository.TicketFilter, error) {
	base := repository.TicketFilter{
		InstitutionID: institutionID,
		CreatedFrom:   &start,
		CreatedTo:     &end,
	}
	return s.filter.ScopedTicketFilter(principal, base)
}

func (s *ReportService) slaTag(t *domain.Ticket) string {
	if t.ResponseTimeMinutes != nil && s.calculator.IsBreached(*t.ResponseTimeMinutes) {
		return SLAStatusBreached
	}
	return SLAStatusCompliant
}

func (s *ReportService) complianceCacheKey(ctx context.Context, scoped repository.TicketFilter, start, end time.Time) string {
	version := int64(0)
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, complianceCacheVersionKey).Int64(); err == nil {
			version = v
		}
	}
	scopeInst := "all"
	if scoped.InstitutionID != nil {
		scopeInst = *scoped.InstitutionID
	}
	scopeTech := "all"
	if scoped.TechnicianID != nil {
		scopeTech = *scoped.TechnicianID
	}
	return fmt.Sprintf("sla:compliance:%d:%s:%s:%d:%d",
		version, scopeInst, scopeTech, start.Unix(), end.Unix())
}

func (s *ReportService) cachedCompliance(ctx context.Context, key string) (sla.Compliance, bool) {
	if s.cache == nil {
		return sla.Compliance{}, false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("compliance cache read failed", zap.Error(err))
		}
		return sla.Compliance{}, false
	}
	var result sla.Compliance
	if err := json.Unmarshal(payload, &result); err != nil {
		return sla.Compliance{}, false
	}
	return result, true
}

func (s *ReportService) storeCompliance(ctx context.Context, key string, result sla.Compliance) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("compliance cache write failed", zap.Error(err))
	}
}

func (s *ReportService) institutionName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	institution, err := s.institutions.GetByID(ctx, id)
	if err == nil {
		name = institution.Name
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("institution lookup failed", zap.String("id", id), zap.Error(err))
	}
	cache[id] = name
	return name
}

func (s *ReportService) equipmentLabel(ctx context.Context, cache map[string]string, id string) string {
	if label, ok := cache[id]; ok {
		return label
	}
	label := ""
	equipment, err := s.equipment.GetByID(ctx, id)
	if err == nil {
		label = equipment.Descriptor()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("equipment lookup failed", zap.String("id", id), zap.Error(err))
	}
	cache[id] = label
	return label
}

func (s *ReportService) technicianName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	technician, err := s.principals.GetByID(ctx, id)
	if err == nil {
		name = technician.FullName
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("technician lookup failed", zap.String("id", id), zap.Error(err))
	}
	cache[id] = name
	return name
}

func reportExcerpt(t *domain.Ticket) string {
	parts := []string{}
	if t.Diagnosis != nil && strings.TrimSpace(*t.Diagnosis) != "" {
		parts = append(parts, strings.TrimSpace(*t.Diagnosis))
	}
	if t.Solution != nil && strings.TrimSpace(*t.Solution) != "" {
		parts = append(parts, strings.TrimSpace(*t.Solution))
	}
	return stringPreview(strings.Join(parts, " / "), 120)
}

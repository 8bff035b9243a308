package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/events"
)

// NotificationService reacts to ticket lifecycle events. Delivery is a stub
// that logs; closing a ticket additionally invalidates the cached compliance
// aggregate.
type NotificationService struct {
	dispatcher events.Dispatcher
	reports    *ReportService
	logger     *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(dispatcher events.Dispatcher, reports *ReportService, logger *zap.Logger) *NotificationService {
	return &NotificationService{dispatcher: dispatcher, reports: reports, logger: logger}
}

// RegisterHandlers subscribes to the lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketArrivalRecorded, n.handleArrivalRecorded)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket created",
		zap.String("ticket_id", event.TicketID),
		zap.String("principal_id", event.Actor.PrincipalID))
	return nil
}

func (n *NotificationService) handleArrivalRecorded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketArrivalRecordedPayload)
	if !ok {
		return nil
	}
	if payload.SLABreached {
		n.logger.Warn("sla breached on arrival",
			zap.String("ticket_id", event.TicketID),
			zap.Int64("response_time_minutes", payload.ResponseTimeMinutes))
		return nil
	}
	n.logger.Info("arrival recorded",
		zap.String("ticket_id", event.TicketID),
		zap.Int64("response_time_minutes", payload.ResponseTimeMinutes))
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket closed", zap.String("ticket_id", event.TicketID))
	if n.reports != nil {
		n.reports.InvalidateComplianceCache(ctx)
	}
	return nil
}

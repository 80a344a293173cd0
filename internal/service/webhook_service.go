package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_store/internal/cache"
	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/events"
	"github.com/fjod/go_store/internal/metrics"
	"github.com/fjod/go_store/internal/payment"
	r "github.com/fjod/go_store/internal/repository"
	"github.com/google/uuid"
)

type WebhookService interface {
	HandleWebhookEvent(ctx context.Context, headers http.Header, body []byte) error
}

type WebhookServiceImpl struct {
	repo    r.RepoInterface
	gateway payment.Gateway
	cache   cache.OrderCache
	journal events.Journal
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewWebhookService(repo r.RepoInterface, gateway payment.Gateway, c cache.OrderCache, journal events.Journal, m *metrics.Metrics, log *slog.Logger) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		repo:    repo,
		gateway: gateway,
		cache:   c,
		journal: journal,
		metrics: m,
		log:     log,
	}
}

// HandleWebhookEvent verifies a processor delivery and applies its outcome
// to the referenced order at most once. Redeliveries and outcomes arriving
// after the order already settled are acknowledged without a write.
func (s *WebhookServiceImpl) HandleWebhookEvent(ctx context.Context, headers http.Header, body []byte) error {
	result, err := s.gateway.ParseWebhookRequest(headers, body)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.log.WarnContext(ctx, "webhook signature rejected", "error", err)
			s.metrics.ObserveWebhook("invalid_signature")
		} else {
			s.log.WarnContext(ctx, "webhook payload rejected", "error", err)
			s.metrics.ObserveWebhook("malformed")
		}
		return err
	}
	if result == nil {
		s.log.InfoContext(ctx, "webhook ignored", "reason", "event type carries no payment outcome")
		s.metrics.ObserveWebhook("ignored")
		return nil
	}

	outcome, current, err := s.reconcile(ctx, result)
	if errors.Is(err, ErrOrderNotFound) {
		s.log.ErrorContext(ctx, "webhook references unknown order",
			"order_id", result.OrderID,
			"event_id", result.EventID,
			"event_type", result.EventType,
			"alert", true)
		s.metrics.ObserveWebhook("order_not_found")
		return fmt.Errorf("reconcile event %s: %w", result.EventID, err)
	}
	if err != nil {
		s.metrics.ObserveWebhook("error")
		return fmt.Errorf("reconcile order %d: %w", result.OrderID, err)
	}

	switch outcome {
	case events.OutcomeApplied:
		s.log.InfoContext(ctx, "webhook applied", "order_id", result.OrderID, "status", result.Status)
		s.invalidate(ctx, result.OrderID)
	case events.OutcomeDuplicate:
		s.log.InfoContext(ctx, "duplicate webhook", "order_id", result.OrderID, "current", current, "incoming", result.Status)
	case events.OutcomeOutOfOrder:
		s.log.WarnContext(ctx, "out-of-order webhook ignored", "order_id", result.OrderID, "current", current, "incoming", result.Status)
	}
	s.metrics.ObserveWebhook(string(outcome))
	s.record(ctx, result, outcome)
	return nil
}

// reconcile moves a PENDING order to the result's status with a conditional
// write. When nothing changes it classifies the delivery against the
// status the order already holds.
func (s *WebhookServiceImpl) reconcile(ctx context.Context, result *domain.PaymentResult) (events.Outcome, domain.PaymentStatus, error) {
	var outcome events.Outcome
	var current domain.PaymentStatus
	err := s.repo.WithTx(ctx, func(tx r.Tx) error {
		changed, err := tx.Orders().UpdateStatusIfPending(ctx, result.OrderID, result.Status)
		if err != nil {
			return err
		}
		if changed {
			outcome, current = events.OutcomeApplied, result.Status
			return tx.Outbox().Insert(ctx, statusEvent(result))
		}

		current, err = tx.Orders().GetStatus(ctx, result.OrderID)
		if errors.Is(err, r.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		settled := domain.Order{Status: current}
		if _, err := settled.ApplyPaymentStatus(result.Status); errors.Is(err, domain.ErrIllegalTransition) {
			outcome = events.OutcomeOutOfOrder
		} else {
			outcome = events.OutcomeDuplicate
		}
		return nil
	})
	return outcome, current, err
}

func (s *WebhookServiceImpl) invalidate(ctx context.Context, orderID int64) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, orderID); err != nil {
		s.log.WarnContext(ctx, "order cache invalidate failed", "order_id", orderID, "error", err)
	}
}

func (s *WebhookServiceImpl) record(ctx context.Context, result *domain.PaymentResult, outcome events.Outcome) {
	if s.journal == nil {
		return
	}
	err := s.journal.Record(ctx, &events.PaymentEvent{
		EventID:    result.EventID,
		EventType:  result.EventType,
		OrderID:    result.OrderID,
		Status:     result.Status.String(),
		Outcome:    outcome,
		ReceivedAt: time.Now().UTC(),
	})
	switch {
	case errors.Is(err, events.ErrDuplicateEvent):
		s.log.DebugContext(ctx, "payment event already journaled", "event_id", result.EventID)
	case err != nil:
		s.log.ErrorContext(ctx, "payment event journal failed", "event_id", result.EventID, "error", err)
	}
}

type statusChangedPayload struct {
	OrderID int64                `json:"order_id"`
	Status  domain.PaymentStatus `json:"status"`
	EventID string               `json:"event_id"`
}

func statusEvent(result *domain.PaymentResult) *r.OutboxEvent {
	eventType := r.EventOrderPaid
	if result.Status == domain.PaymentStatusFailed {
		eventType = r.EventOrderFailed
	}
	payload, _ := json.Marshal(statusChangedPayload{
		OrderID: result.OrderID,
		Status:  result.Status,
		EventID: result.EventID,
	})
	return &r.OutboxEvent{
		ID:          uuid.New(),
		AggregateId: strconv.FormatInt(result.OrderID, 10),
		EventType:   eventType,
		Payload:     payload,
	}
}

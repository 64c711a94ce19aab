package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/camm-community/camm-server/internal/broadcast"
	"github.com/camm-community/camm-server/internal/config"
	"github.com/camm-community/camm-server/internal/models"
	"github.com/camm-community/camm-server/internal/repository"
	"github.com/camm-community/camm-server/internal/worker"
)

var (
	ErrFallNotConfirmed = errors.New("no fall detected")
	ErrKindRequired     = errors.New("alert type is required")
)

// Service accepts emergency reports from producers, builds the canonical
// AlertEvent and fans it out to live subscribers. The detector paths favor
// immediacy: the broadcast happens synchronously, persistence (when a known
// subject is attached) runs best-effort on the worker pool afterwards. A
// store failure never fails the report.
type Service struct {
	alerts      repository.AlertRepository
	users       repository.UserRepository
	broadcaster *broadcast.Broadcaster
	pool        *worker.WorkerPool
}

type persistJob struct {
	event *models.AlertEvent
}

func NewService(cfg *config.Config, alerts repository.AlertRepository, users repository.UserRepository, broadcaster *broadcast.Broadcaster) *Service {
	s := &Service{
		alerts:      alerts,
		users:       users,
		broadcaster: broadcaster,
	}
	s.pool = worker.NewWorkerPool(cfg.Worker.Count, cfg.Worker.BufferSize, s.persist)
	return s
}

func (s *Service) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

func (s *Service) Stop() {
	s.pool.Stop()
	slog.Info("ingest service stopped")
}

// ReportFall handles the external detector's fall report. The confirmation
// flag must be set or nothing is broadcast or persisted. Returns the pushed
// event and the number of subscribers attempted.
func (s *Service) ReportFall(userID, address string, confirmed bool) (*models.AlertEvent, int, error) {
	if !confirmed {
		return nil, 0, ErrFallNotConfirmed
	}

	if address == "" {
		address = "Unknown location"
	}

	now := time.Now()
	ev := &models.AlertEvent{
		ID:        now.UnixMilli(),
		Type:      models.EventFallDetected,
		UserID:    displayUserID(userID),
		Kind:      models.AlertKindFall,
		Address:   address,
		Message:   fallMessage(userID, address),
		Status:    models.AlertStatusActive,
		Timestamp: now,
	}

	slog.Info("fall detected", "user_id", ev.UserID, "address", address)

	notified := s.broadcaster.Publish(ev)
	s.enqueuePersist(userID, ev)
	return ev, notified, nil
}

// Trigger handles the generic producer path: any alert kind with optional
// location, message and precomputed guidance text.
func (s *Service) Trigger(userID string, kind models.AlertKind, location, message, guidance string) (*models.AlertEvent, int, error) {
	if kind == "" {
		return nil, 0, ErrKindRequired
	}

	now := time.Now()
	ev := &models.AlertEvent{
		ID:        now.UnixMilli(),
		Type:      models.EventNewAlert,
		UserID:    displayUserID(userID),
		Kind:      kind,
		Location:  location,
		Message:   message,
		Guidance:  guidance,
		Status:    models.AlertStatusActive,
		Timestamp: now,
	}

	slog.Info("alert triggered", "alert_type", kind, "user_id", ev.UserID)

	notified := s.broadcaster.Publish(ev)
	s.enqueuePersist(userID, ev)
	return ev, notified, nil
}

// PublishStatusUpdate re-broadcasts a durable status change as a distinct
// event type so live viewers can reconcile their display.
func (s *Service) PublishStatusUpdate(alertID int64, status models.AlertStatus, respondedBy string) int {
	ev := &models.AlertEvent{
		ID:          alertID,
		Type:        models.EventStatusUpdate,
		Status:      status,
		RespondedBy: respondedBy,
		Timestamp:   time.Now(),
	}
	return s.broadcaster.Publish(ev)
}

// enqueuePersist submits a best-effort store write for events that reference
// a known subject. Dropped silently when the id is absent or not numeric;
// store failures are logged by the worker, never surfaced to the producer.
func (s *Service) enqueuePersist(userID string, ev *models.AlertEvent) {
	if userID == "" {
		return
	}
	if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
		slog.Debug("skipping persistence for non-numeric subject id", "user_id", userID)
		return
	}
	if !s.pool.Submit(&persistJob{event: ev}) {
		slog.Warn("persistence queue rejected alert record", "user_id", userID, "event_type", ev.Type)
	}
}

func (s *Service) persist(ctx context.Context, job worker.Job) error {
	ev := job.(*persistJob).event

	userID, err := strconv.ParseInt(ev.UserID, 10, 64)
	if err != nil {
		return nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		slog.Error("error looking up subject for alert persistence", "user_id", userID, "error", err)
		return err
	}
	if user == nil {
		slog.Warn("not persisting alert for unknown or unconsented subject", "user_id", userID)
		return nil
	}

	location := ev.Location
	if location == "" {
		location = ev.Address
	}

	id, err := s.alerts.CreateAlert(ctx, &models.Alert{
		UserID:    userID,
		Kind:      ev.Kind,
		Location:  location,
		Message:   ev.Message,
		Status:    models.AlertStatusActive,
		CreatedAt: ev.Timestamp,
	})
	if err != nil {
		slog.Error("error persisting alert record", "user_id", userID, "error", err)
		return err
	}

	slog.Info("alert record persisted", "alert_id", id, "user_id", userID, "alert_type", ev.Kind)
	return nil
}

func displayUserID(userID string) string {
	if userID == "" {
		return "Unknown"
	}
	return userID
}

func fallMessage(userID, address string) string {
	msg := fmt.Sprintf("Emergency: Person has fallen and is unresponsive at %s.", address)
	if userID != "" {
		msg += fmt.Sprintf(" User ID: %s.", userID)
	}
	return msg + " Immediate assistance required. Call 911 if you are nearby."
}

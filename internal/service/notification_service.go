package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/pkg/config"
	"github.com/edumesh/edumesh-api/pkg/jobs"
)

const jobTypeEnrollment = "enrollment.created"

// EnrollmentNotification is the payload emitted for each successful enrollment.
type EnrollmentNotification struct {
	SchoolID     string    `json:"school_id"`
	StudentID    string    `json:"student_id"`
	ModuleID     string    `json:"module_id"`
	EnrollmentID string    `json:"enrollment_id"`
	BatchID      string    `json:"batch_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NotificationService delivers enrollment events on a background worker pool.
// Delivery is best effort: a full queue or a dead webhook never surfaces to
// the request that produced the event.
type NotificationService struct {
	queue      *jobs.Queue
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewNotificationService builds the dispatcher. When cfg.WebhookURL is empty
// events are logged instead of delivered.
func NewNotificationService(cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyEnrollment enqueues an enrollment event. Failures are logged and
// dropped. Safe on a nil receiver so wiring can hand over a disabled service.
func (s *NotificationService) NotifyEnrollment(n EnrollmentNotification) {
	if s == nil {
		return
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeEnrollment,
		Payload: n,
	})
	if err != nil {
		s.logger.Warn("dropping enrollment notification",
			zap.String("enrollment_id", n.EnrollmentID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(EnrollmentNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	if s.webhookURL == "" {
		s.logger.Info("enrollment notification",
			zap.String("school_id", n.SchoolID),
			zap.String("student_id", n.StudentID),
			zap.String("module_id", n.ModuleID),
			zap.String("enrollment_id", n.EnrollmentID),
			zap.String("batch_id", n.BatchID),
		)
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"event": job.Type,
		"data":  n,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

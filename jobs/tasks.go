package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/prontivus/prontivus/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLoginAlert is the task type for post-login audit alerts.
	TaskTypeLoginAlert = "auth:login_alert"
)

// LoginAlertPayload describes a successful login to record out of band.
type LoginAlertPayload struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	At        time.Time `json:"at"`
}

// NewLoginAlertTask constructs an Asynq task.
func NewLoginAlertTask(payload LoginAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLoginAlert, data), nil
}

// LoginAlertHandler persists login alerts into the audit table.
type LoginAlertHandler struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLoginAlertHandler constructs a LoginAlertHandler.
func NewLoginAlertHandler(pool *pgxpool.Pool, logger *slog.Logger) *LoginAlertHandler {
	return &LoginAlertHandler{pool: pool, logger: logger, metrics: jobmetrics.NewMetrics(nil)}
}

// Handle processes TaskTypeLoginAlert tasks.
func (h *LoginAlertHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("login_alert")
	var payload LoginAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	_, err := h.pool.Exec(ctx,
		`INSERT INTO login_alerts (user_id, username, ip, user_agent, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		payload.UserID, payload.Username, payload.IP, payload.UserAgent, payload.At)
	if err != nil {
		return tracker.End(err)
	}
	h.logger.Info("login alert recorded",
		slog.Int64("user_id", payload.UserID),
		slog.String("username", payload.Username),
		slog.String("ip", payload.IP))
	return tracker.End(nil)
}

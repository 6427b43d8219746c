package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type BrokerHealth interface {
	Healthy() bool
}

type CachePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports dependency state. Only the database is required;
// optional dependencies that are not configured do not degrade the status.
type HealthHandler struct {
	DB        Pinger
	RabbitMQ  BrokerHealth
	Redis     CachePinger
	Version   string
	StartTime time.Time
	Timeout   time.Duration
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(db Pinger, rabbitMQ BrokerHealth, redis CachePinger, version string) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		RabbitMQ:  rabbitMQ,
		Redis:     redis,
		Version:   version,
		StartTime: time.Now(),
		Timeout:   2 * time.Second,
	}
}

const notConfigured = "not configured"

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	deps := map[string]string{
		"database": h.checkDatabase(ctx),
		"rabbitmq": notConfigured,
		"redis":    notConfigured,
	}
	if h.RabbitMQ != nil {
		deps["rabbitmq"] = "healthy"
		if !h.RabbitMQ.Healthy() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		}
	}
	if h.Redis != nil {
		deps["redis"] = pingStatus(h.Redis.Ping(ctx))
	}

	resp := HealthResponse{
		Status:       "healthy",
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}
	code := http.StatusOK
	for _, v := range deps {
		if v != "healthy" && v != notConfigured {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, resp)
}

// checkDatabase treats a missing pool as unhealthy; the service cannot
// accept leads without it.
func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	if h.DB == nil {
		return "unhealthy: " + notConfigured
	}
	return pingStatus(h.DB.PingContext(ctx))
}

func pingStatus(err error) string {
	if err != nil {
		return fmt.Sprintf("unhealthy: %v", err)
	}
	return "healthy"
}

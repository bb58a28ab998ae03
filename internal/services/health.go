package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-nodedb/internal/config"
	"github.com/localnerve/jam-build-nodedb/internal/events"
	"github.com/localnerve/jam-build-nodedb/internal/logger"
	"github.com/localnerve/jam-build-nodedb/internal/utils"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	Events       string            `json:"events"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// HealthChecker probes the collaborators of the service
type HealthChecker struct {
	Config    *config.Config
	DB        *gorm.DB
	Publisher events.Publisher
	Log       *logger.Logger
	Timeout   time.Duration

	// PingAuthorizer is replaced in tests
	PingAuthorizer func(ctx context.Context, url string) error
}

// NewHealthChecker creates a HealthChecker with the default probes
func NewHealthChecker(cfg *config.Config, db *gorm.DB, publisher events.Publisher, log *logger.Logger) *HealthChecker {
	if log == nil {
		log = logger.NewNop()
	}
	return &HealthChecker{
		Config:         cfg,
		DB:             db,
		Publisher:      publisher,
		Log:            log.With("service", "HealthCheck"),
		Timeout:        3 * time.Second,
		PingAuthorizer: utils.PingAuthorizer,
	}
}

// Check runs every probe concurrently and reports the combined state
func (h *HealthChecker) Check(ctx context.Context) HealthCheckResult {
	result := HealthCheckResult{
		Status:     "healthy",
		Database:   "ok",
		Authorizer: "disabled",
		Events:     "disabled",
		Details:    make(map[string]string),
	}

	var mu sync.Mutex
	var failures []string
	fail := func(field *string, state, key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		*field = state
		result.Details[key] = err.Error()
		failures = append(failures, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	// probes record their own failure so one down dependency does not cancel the others
	var g errgroup.Group

	g.Go(func() error {
		sqlDB, err := h.DB.DB()
		if err != nil {
			fail(&result.Database, "error", "database_error", fmt.Errorf("database connection error: %w", err))
			return nil
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			fail(&result.Database, "unreachable", "database_ping_error", fmt.Errorf("database ping failed: %w", err))
		}
		return nil
	})

	if h.Config.AuthEnabled() {
		result.Authorizer = "ok"
		g.Go(func() error {
			if err := h.PingAuthorizer(ctx, h.Config.AuthzURL); err != nil {
				fail(&result.Authorizer, "unreachable", "authorizer_error", fmt.Errorf("authorizer ping failed: %w", err))
			}
			return nil
		})
	}

	if pinger, ok := h.Publisher.(events.Pinger); ok {
		result.Events = "ok"
		g.Go(func() error {
			if err := pinger.Ping(ctx); err != nil {
				fail(&result.Events, "unreachable", "events_error", fmt.Errorf("redis ping failed: %w", err))
			}
			return nil
		})
	}

	_ = g.Wait()

	result.Details["database_type"] = h.Config.DBType
	if h.Config.AuthEnabled() {
		result.Details["authorizer_url"] = h.Config.AuthzURL
	}

	if len(failures) > 0 {
		result.Status = "unhealthy"
		result.ErrorMessage = strings.Join(failures, "; ")
		h.Log.Warn("Health check failed", "error", result.ErrorMessage)
	} else {
		h.Log.Debug("Health check passed - all systems operational")
	}

	return result
}

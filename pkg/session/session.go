package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pdfchat/internal/models"
	"pdfchat/internal/types"
)

type Config struct {
	Retention     time.Duration // maximum age before the sweep removes a session's data
	SweepInterval time.Duration
}

// Manager issues session identifiers and owns the two deletion paths:
// explicit per-session clear and the periodic retention sweep. The two
// are independent and idempotent; whichever runs last simply deletes
// nothing.
type Manager struct {
	config Config
	store  types.Store
	logger zerolog.Logger

	mu     sync.Mutex
	issued map[string]struct{}
}

func NewWithConfig(store types.Store, config Config, logger zerolog.Logger) *Manager {
	if config.Retention == 0 {
		config.Retention = 48 * time.Hour
	}
	if config.SweepInterval == 0 {
		config.SweepInterval = time.Hour
	}
	return &Manager{
		config: config,
		store:  store,
		logger: logger,
		issued: make(map[string]struct{}),
	}
}

// NewSession returns a fresh opaque session identifier. A collision with
// an identifier this process already issued means the id source is
// broken, so it is reported as an error rather than papered over with a
// retry.
func (m *Manager) NewSession() (string, error) {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.issued[id]; exists {
		return "", fmt.Errorf("session id collision on %s", id)
	}
	m.issued[id] = struct{}{}
	return id, nil
}

// Clear removes everything stored for the session. It is best-effort:
// storage failures are logged and reported as a zero count so the user
// action that triggered the teardown is never blocked.
func (m *Manager) Clear(ctx context.Context, sessionID string) int64 {
	deleted, err := m.store.DeleteBySession(ctx, sessionID)
	if err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session clear failed")
		return 0
	}

	m.mu.Lock()
	delete(m.issued, sessionID)
	m.mu.Unlock()

	m.logger.Info().Str("session_id", sessionID).Int64("deleted", deleted).Msg("session cleared")
	return deleted
}

// Sweep deletes every record older than the retention horizon. It is the
// backstop for sessions abandoned without a clean teardown.
func (m *Manager) Sweep(ctx context.Context) (models.SweepResult, error) {
	cutoff := time.Now().UTC().Add(-m.config.Retention)

	result, err := m.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return models.SweepResult{}, fmt.Errorf("retention sweep failed: %w", err)
	}

	if result.Deleted > 0 {
		m.logger.Info().
			Time("cutoff", cutoff).
			Int64("deleted", result.Deleted).
			Strs("sessions", result.Sessions).
			Msg("retention sweep removed expired documents")
	}
	return result, nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error().Err(err).Msg("periodic sweep failed")
			}
		}
	}
}

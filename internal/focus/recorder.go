package focus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sadopc/flow/internal/store"
)

// MinSessionSeconds is the shortest run that becomes a FocusSession.
const MinSessionSeconds = 60

// Recorder validates a finished run and persists it.
type Recorder struct {
	gw       Gateway
	bus      *Bus
	logger   *slog.Logger
	category string
}

func NewRecorder(gw Gateway, bus *Bus, logger *slog.Logger, category string) *Recorder {
	return &Recorder{gw: gw, bus: bus, logger: logger, category: category}
}

// Commit persists a run of elapsedSeconds. Runs under a minute return
// ErrSessionTooShort and a missing user returns ErrNoUser, both without
// touching the gateway. A stored session is announced with
// SessionPersisted.
func (r *Recorder) Commit(ctx context.Context, elapsedSeconds int64, startedAt, endedAt time.Time, userID string) (*store.FocusSession, error) {
	if elapsedSeconds < MinSessionSeconds {
		r.logger.Debug("session discarded", "elapsed", elapsedSeconds)
		return nil, ErrSessionTooShort
	}
	if userID == "" {
		return nil, ErrNoUser
	}

	fs, err := r.gw.CreateFocusSession(ctx, store.NewFocusSession{
		UserID:          userID,
		DurationSeconds: elapsedSeconds,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		Category:        r.category,
	})
	if err != nil {
		r.logger.Error("persist session failed", "elapsed", elapsedSeconds, "error", err)
		return nil, fmt.Errorf("create focus session: %w", err)
	}

	r.logger.Info("session recorded", "session", fs.ID, "duration", fs.DurationSeconds)
	if !r.bus.Publish(SessionPersisted{UserID: userID, Session: *fs}) {
		r.logger.Warn("session event dropped, bus closed", "session", fs.ID)
	}
	return fs, nil
}

package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/flow/internal/store"
)

// Sink is the write side of the gateway that an import needs.
type Sink interface {
	ImportBundle(ctx context.Context, in store.ImportData) (*store.ImportResult, error)
}

// FromJSON reads a bundle written by ToJSON.
func FromJSON(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()
	return ReadJSON(f)
}

func ReadJSON(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if b.Version < 1 || b.Version > bundleVersion {
		return nil, fmt.Errorf("unsupported export version %d", b.Version)
	}
	return &b, nil
}

// Import restores b into sink. Daily stats in the bundle are ignored;
// the sink rebuilds them from the sessions it actually adds.
func Import(ctx context.Context, sink Sink, b *Bundle) (*store.ImportResult, error) {
	in, err := b.importData()
	if err != nil {
		return nil, err
	}
	res, err := sink.ImportBundle(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("import bundle: %w", err)
	}
	return res, nil
}

func (b *Bundle) importData() (store.ImportData, error) {
	in := store.ImportData{
		User: store.User{
			ID:    b.User.ID,
			Name:  b.User.Name,
			Email: b.User.Email,
		},
		Settings: b.Settings,
	}
	if b.User.JoinDate != "" {
		joined, err := time.Parse(time.RFC3339, b.User.JoinDate)
		if err != nil {
			return in, fmt.Errorf("parse join_date: %w", err)
		}
		in.User.JoinDate = joined
	}

	for _, s := range b.FocusSessions {
		started, err := time.Parse(time.RFC3339, s.StartedAt)
		if err != nil {
			return in, fmt.Errorf("session %s: parse started_at: %w", s.ID, err)
		}
		ended, err := time.Parse(time.RFC3339, s.EndedAt)
		if err != nil {
			return in, fmt.Errorf("session %s: parse ended_at: %w", s.ID, err)
		}
		in.Sessions = append(in.Sessions, store.FocusSession{
			ID:              s.ID,
			DurationSeconds: s.DurationSec,
			StartedAt:       started,
			EndedAt:         ended,
			Category:        s.Category,
			Notes:           s.Notes,
		})
	}

	for _, t := range b.Tasks {
		in.Tasks = append(in.Tasks, store.Task{
			ID:        t.ID,
			Title:     t.Title,
			Category:  store.TaskCategory(t.Category),
			Date:      t.Date,
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Completed: t.Completed,
		})
	}

	for _, a := range b.Achievements {
		unlocked, err := time.Parse(time.RFC3339, a.UnlockedAt)
		if err != nil {
			return in, fmt.Errorf("achievement %s: parse unlocked_at: %w", a.Type, err)
		}
		in.Achievements = append(in.Achievements, store.Achievement{
			Type:       store.AchievementType(a.Type),
			UnlockedAt: unlocked,
		})
	}
	return in, nil
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/flow/internal/store"
)

// SessionsToCSV writes one row per focus session to path.
func SessionsToCSV(sessions []store.FocusSession, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()
	return WriteSessionsCSV(f, sessions)
}

func WriteSessionsCSV(out io.Writer, sessions []store.FocusSession) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"ID", "Date", "Start", "End", "Duration (s)", "Duration", "Category", "Notes"}); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			s.ID,
			store.DateKey(s.StartedAt),
			s.StartedAt.Format(time.RFC3339),
			s.EndedAt.Format(time.RFC3339),
			fmt.Sprintf("%d", s.DurationSeconds),
			formatDuration(s.DurationSeconds),
			s.Category,
			s.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

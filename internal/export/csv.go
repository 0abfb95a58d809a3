package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/powernap/internal/store"
)

// DefaultPath returns ~/powernap-export-<date>.<ext>.
func DefaultPath(ext string, now time.Time) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, fmt.Sprintf("powernap-export-%s.%s", now.Format("2006-01-02"), ext))
}

var csvHeader = []string{"ID", "Run", "Status", "Start", "End", "Planned (s)", "Added (s)", "Adjusted (s)", "Remaining (s)", "Counted", "Pauses", "Shutdown Error"}

func ToCSV(runs []store.Countdown, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, c := range runs {
		endStr := ""
		if c.EndedAt != nil {
			endStr = c.EndedAt.Local().Format(time.RFC3339)
		}

		row := []string{
			fmt.Sprintf("%d", c.ID),
			c.RunID,
			c.Status,
			c.StartedAt.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", c.PlannedSeconds),
			fmt.Sprintf("%d", c.AddedSeconds),
			fmt.Sprintf("%d", c.AdjustedSeconds),
			fmt.Sprintf("%d", c.RemainingSeconds),
			formatDuration(int64(c.CountedSeconds())),
			fmt.Sprintf("%d", c.Pauses),
			c.ShutdownError,
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

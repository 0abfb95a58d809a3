package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/powernap/internal/store"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	Count      int       `json:"count"`
	Runs       []jsonRun `json:"runs"`
}

type jsonRun struct {
	ID            int64  `json:"id"`
	RunID         string `json:"run_id"`
	Status        string `json:"status"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time,omitempty"`
	PlannedSec    int    `json:"planned_seconds"`
	AddedSec      int    `json:"added_seconds"`
	AdjustedSec   int    `json:"adjusted_seconds"`
	RemainingSec  int    `json:"remaining_seconds"`
	CountedSec    int    `json:"counted_seconds"`
	Counted       string `json:"counted"`
	Pauses        int    `json:"pauses"`
	ShutdownError string `json:"shutdown_error,omitempty"`
}

func ToJSON(runs []store.Countdown, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(runs),
	}

	for _, c := range runs {
		endStr := ""
		if c.EndedAt != nil {
			endStr = c.EndedAt.Local().Format(time.RFC3339)
		}

		export.Runs = append(export.Runs, jsonRun{
			ID:            c.ID,
			RunID:         c.RunID,
			Status:        c.Status,
			StartTime:     c.StartedAt.Local().Format(time.RFC3339),
			EndTime:       endStr,
			PlannedSec:    c.PlannedSeconds,
			AddedSec:      c.AddedSeconds,
			AdjustedSec:   c.AdjustedSeconds,
			RemainingSec:  c.RemainingSeconds,
			CountedSec:    c.CountedSeconds(),
			Counted:       formatDuration(int64(c.CountedSeconds())),
			Pauses:        c.Pauses,
			ShutdownError: c.ShutdownError,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

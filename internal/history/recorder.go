// Package history records countdown runs in the store.
package history

import (
	"sync"

	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/store"
)

// Recorder is a countdown.Observer that writes one row per run. Store
// errors are logged and otherwise ignored; history must never interfere with
// the countdown.
type Recorder struct {
	store *store.Store
	log   *logging.Logger

	mu   sync.Mutex
	runs map[string]int64 // run id -> row id
}

func NewRecorder(s *store.Store, log *logging.Logger) *Recorder {
	return &Recorder{
		store: s,
		log:   log,
		runs:  make(map[string]int64),
	}
}

func (r *Recorder) Observe(ev countdown.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case countdown.EventStarted:
		c, err := r.store.StartCountdown(ev.RunID, ev.Remaining)
		if err != nil {
			r.log.Error("record start of run %s: %v", ev.RunID, err)
			return
		}
		r.runs[ev.RunID] = c.ID
		r.log.Info("countdown %s started with %s", ev.RunID, countdown.Format(ev.Remaining))

	case countdown.EventPaused:
		if id, ok := r.runs[ev.RunID]; ok {
			r.check(r.store.RecordPause(id))
		}
		r.log.Info("countdown %s paused at %s", ev.RunID, countdown.Format(ev.Remaining))

	case countdown.EventResumed:
		r.log.Info("countdown %s resumed at %s", ev.RunID, countdown.Format(ev.Remaining))

	case countdown.EventAdded:
		if ev.State == countdown.Idle {
			return
		}
		if id, ok := r.runs[ev.RunID]; ok {
			r.check(r.store.RecordAdded(id, countdown.AddSeconds))
		}
		r.log.Info("countdown %s extended to %s", ev.RunID, countdown.Format(ev.Remaining))

	case countdown.EventAdjusted:
		if ev.State == countdown.Idle || ev.Delta == 0 {
			return
		}
		if id, ok := r.runs[ev.RunID]; ok {
			r.check(r.store.RecordAdjusted(id, ev.Delta))
		}
		r.log.Debug("countdown %s edited to %s", ev.RunID, countdown.Format(ev.Remaining))

	case countdown.EventStopped:
		r.finish(ev, store.StatusStopped, "")
		r.log.Info("countdown %s stopped at %s", ev.RunID, countdown.Format(ev.Remaining))

	case countdown.EventFiring:
		r.log.Warn("countdown %s reached zero, shutting down", ev.RunID)

	case countdown.EventExpired:
		if ev.Err != nil {
			r.finish(ev, store.StatusFailed, ev.Err.Error())
			r.log.Error("shutdown request for %s failed: %v", ev.RunID, ev.Err)
			return
		}
		r.finish(ev, store.StatusCompleted, "")
		r.log.Info("shutdown requested for %s", ev.RunID)
	}
}

func (r *Recorder) finish(ev countdown.Event, status, shutdownErr string) {
	id, ok := r.runs[ev.RunID]
	if !ok {
		return
	}
	delete(r.runs, ev.RunID)
	_, err := r.store.FinishCountdown(id, status, ev.Remaining, shutdownErr)
	r.check(err)
}

func (r *Recorder) check(err error) {
	if err != nil {
		r.log.Error("history: %v", err)
	}
}

// Package cli runs the countdown without a terminal UI and prints history
// for scripting.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/store"
)

// Runner drives one headless countdown and reports it line by line.
type Runner struct {
	timer *countdown.Timer
	out   io.Writer
	log   *logging.Logger
}

func NewRunner(t *countdown.Timer, out io.Writer, log *logging.Logger) *Runner {
	return &Runner{timer: t, out: out, log: log}
}

// Run starts the countdown and blocks until it expires, is stopped, or ctx
// is cancelled. Cancellation stops the countdown without shutting down.
// The error is the shutdown trigger's failure, if any.
func (r *Runner) Run(ctx context.Context) error {
	ticks := make(chan countdown.Event, 64)
	finished := make(chan countdown.Event, 1)
	r.timer.Subscribe(countdown.ObserverFunc(func(ev countdown.Event) {
		target := ticks
		if ev.Kind == countdown.EventExpired || ev.Kind == countdown.EventStopped {
			target = finished
		}
		select {
		case target <- ev:
		default:
		}
	}))

	if err := r.timer.Start(); err != nil {
		return err
	}
	snap := r.timer.Snapshot()
	fmt.Fprintf(r.out, "Timer running... %s until shutdown\n", countdown.Format(snap.Remaining))
	r.log.Info("headless countdown %s started with %s", snap.RunID, countdown.Format(snap.Remaining))

	for {
		select {
		case <-ctx.Done():
			r.timer.Stop()
			r.timer.Wait()
			fmt.Fprintf(r.out, "Stopped with %s left\n", countdown.Format(r.timer.Remaining()))
			return nil

		case ev := <-ticks:
			switch ev.Kind {
			case countdown.EventTick:
				fmt.Fprintln(r.out, countdown.Format(ev.Remaining))
			case countdown.EventFiring:
				fmt.Fprintln(r.out, "Shutting down...")
			}

		case ev := <-finished:
			r.drain(ticks)
			if ev.Kind == countdown.EventStopped {
				fmt.Fprintf(r.out, "Stopped with %s left\n", countdown.Format(ev.Remaining))
				return nil
			}
			if ev.Err != nil {
				fmt.Fprintf(r.out, "Shutdown failed: %v\n", ev.Err)
				return fmt.Errorf("shutdown: %w", ev.Err)
			}
			return nil
		}
	}
}

// drain prints whatever ticks were queued before the run finished.
func (r *Runner) drain(ticks <-chan countdown.Event) {
	for {
		select {
		case ev := <-ticks:
			switch ev.Kind {
			case countdown.EventTick:
				fmt.Fprintln(r.out, countdown.Format(ev.Remaining))
			case countdown.EventFiring:
				fmt.Fprintln(r.out, "Shutting down...")
			}
		default:
			return
		}
	}
}

// PrintHistory writes runs as an aligned table.
func PrintHistory(w io.Writer, runs []store.Countdown) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No countdowns recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tPLANNED\tADDED\tCOUNTED\tPAUSES\tERROR")
	fmt.Fprintln(tw, "-------\t------\t-------\t-----\t-------\t------\t-----")

	for _, c := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			c.StartedAt.Local().Format("2006-01-02 15:04"),
			c.Status,
			countdown.Format(c.PlannedSeconds),
			countdown.Format(c.AddedSeconds),
			countdown.Format(c.CountedSeconds()),
			c.Pauses,
			c.ShutdownError,
		)
	}
	return tw.Flush()
}

// PrintUsage writes the command line help.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `powernap - power off the computer when a countdown ends

Usage:
  powernap [OPTIONS]

Options:
  -duration D    countdown length, e.g. 45m or 1h30m (max 5h)
  -start         start the countdown immediately
  -headless      run without the terminal UI, printing every second
  -tray          run as a system tray indicator
  -dry-run       log the shutdown instead of performing it
  -history       print recent countdowns and exit
  -config PATH   use another config file
  -verbose       enable debug logging
  -version       show version and exit

Examples:
  powernap -duration 1h30m
  powernap -headless -duration 20m
  powernap -tray -start
  powernap -history

Notes:
  - Without a terminal, powernap runs headless automatically
  - Ctrl+C in headless mode stops the countdown without shutting down
`)
}

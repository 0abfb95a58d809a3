// Command powernap powers the computer off when a countdown ends.
//
// It runs as a terminal UI by default, as a system tray indicator with
// -tray, or line by line with -headless (also chosen automatically when
// stdout is not a terminal).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sadopc/powernap/internal/cli"
	"github.com/sadopc/powernap/internal/config"
	"github.com/sadopc/powernap/internal/countdown"
	"github.com/sadopc/powernap/internal/history"
	"github.com/sadopc/powernap/internal/logging"
	"github.com/sadopc/powernap/internal/shutdown"
	"github.com/sadopc/powernap/internal/store"
	"github.com/sadopc/powernap/internal/tray"
	"github.com/sadopc/powernap/internal/tui"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
var (
	appVersion = "dev"
	commitSHA  = "unknown"
)

var (
	configPath  = flag.String("config", "", "Path to config.yaml (default: user config dir)")
	duration    = flag.Duration("duration", 0, "Countdown length, e.g. 45m or 1h30m (max 5h)")
	startNow    = flag.Bool("start", false, "Start the countdown immediately")
	headless    = flag.Bool("headless", false, "Run without the terminal UI")
	trayMode    = flag.Bool("tray", false, "Run as a system tray indicator")
	dryRun      = flag.Bool("dry-run", false, "Log the shutdown instead of performing it")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
	showHistory = flag.Bool("history", false, "Print recent countdowns and exit")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

const historyLimit = 20

func main() {
	flag.Usage = func() { cli.PrintUsage(os.Stderr) }
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if *showVersion {
		fmt.Printf("powernap %s (%s)\n", appVersion, commitSHA)
		return 0
	}

	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		if cfg == nil {
			cfg = config.DefaultConfig()
		}
	}

	lineMode := *headless || *showHistory || (!*trayMode && !term.IsTerminal(int(os.Stdout.Fd())))

	log := newLogger(cfg, path, lineMode)
	defer log.Close()
	log.Info("powernap %s starting (config %s)", appVersion, path)

	s, err := store.New(cfg.HistoryPath(path))
	if err != nil {
		log.Warn("open history: %v; history will not be kept", err)
		fmt.Fprintf(os.Stderr, "Warning: could not open history: %v\n", err)
		if s, err = store.NewMemory(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	defer s.Close()

	if *showHistory {
		runs, err := s.ListCountdowns(store.CountdownFilter{Limit: historyLimit})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if err := cli.PrintHistory(os.Stdout, runs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	if n, err := s.AbandonRunning(); err != nil {
		log.Warn("abandon stale runs: %v", err)
	} else if n > 0 {
		log.Info("marked %d unfinished countdown(s) from a previous session as abandoned", n)
	}

	method := cfg.Shutdown.Method
	if *dryRun {
		method = shutdown.MethodDryRun
	}
	trigger, err := shutdown.New(method, cfg.Shutdown.Command, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	log.Info("shutdown method: %s", method)

	timer := countdown.New(trigger, countdown.WithObserver(history.NewRecorder(s, log)))
	defer timer.Close()

	initial := cfg.DefaultDuration
	if *duration > 0 {
		initial = *duration
	}
	if err := timer.Set(int(initial / time.Second)); errors.Is(err, countdown.ErrMaxDuration) {
		fmt.Fprintln(os.Stderr, "Warning: maximum allowed time is 5 hours; using 05:00:00")
		log.Warn("requested duration %s clamped to 5h", initial)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case lineMode:
		if err := cli.NewRunner(timer, os.Stdout, log).Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0

	case *trayMode:
		indicator := tray.New(timer, log)
		go func() {
			<-ctx.Done()
			log.Info("signal received, closing tray")
			timer.Stop()
			indicator.Quit()
		}()
		if *startNow {
			startOrWarn(timer, log)
		}
		indicator.Run()
		return 0
	}

	app := tui.NewApp(tui.Options{
		Timer:      timer,
		Store:      s,
		Config:     cfg,
		ConfigPath: path,
		Log:        log,
		DryRun:     *dryRun,
	})
	if *startNow {
		startOrWarn(timer, log)
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// newLogger writes to the log file, and to stderr in line mode where the
// terminal is not owned by a UI.
func newLogger(cfg *config.Config, configPath string, lineMode bool) *logging.Logger {
	level, _ := logging.ParseLevel(cfg.LogLevel)
	if *verbose {
		level = logging.LevelDebug
	}

	lc := logging.Config{
		Level: level,
		Path:  filepath.Join(filepath.Dir(configPath), "logs", logging.FileName),
	}
	if lineMode {
		lc.Console = os.Stderr
	}

	log, err := logging.New(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
	return log
}

func startOrWarn(t *countdown.Timer, log *logging.Logger) {
	if err := t.Start(); err != nil {
		log.Warn("start: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

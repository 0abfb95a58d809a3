// Package shutdown asks the operating system to power off immediately.
//
// Every Trigger is synchronous and fire-and-forget: there is no retry, no
// confirmation and no check that the machine actually went down.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/sadopc/powernap/internal/logging"
)

// Methods accepted by New.
const (
	MethodAuto    = "auto"
	MethodLogind  = "logind"
	MethodCommand = "command"
	MethodDryRun  = "dry-run"
)

// Methods lists every valid method in display order.
var Methods = []string{MethodAuto, MethodLogind, MethodCommand, MethodDryRun}

var ErrUnknownMethod = errors.New("unknown shutdown method")

// Trigger requests an immediate power-off.
type Trigger interface {
	Shutdown(ctx context.Context) error
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context) error

func (f TriggerFunc) Shutdown(ctx context.Context) error { return f(ctx) }

// New builds the trigger for method. argv overrides the platform command
// used by the command and auto methods; nil selects DefaultArgv.
func New(method string, argv []string, log *logging.Logger) (Trigger, error) {
	if len(argv) == 0 {
		argv = DefaultArgv(runtime.GOOS)
	}
	cmd := NewCommand(argv)

	switch method {
	case MethodAuto, "":
		if runtime.GOOS == "linux" {
			return Fallback{Triggers: []Trigger{NewLogind(), cmd}, Log: log}, nil
		}
		return cmd, nil
	case MethodLogind:
		return NewLogind(), nil
	case MethodCommand:
		return cmd, nil
	case MethodDryRun:
		return DryRun{Log: log, Argv: argv}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// Fallback tries each trigger in order and stops at the first success.
type Fallback struct {
	Triggers []Trigger
	Log      *logging.Logger
}

func (f Fallback) Shutdown(ctx context.Context) error {
	var errs []error
	for _, t := range f.Triggers {
		err := t.Shutdown(ctx)
		if err == nil {
			return nil
		}
		if f.Log != nil {
			f.Log.Warn("shutdown via %T failed: %v", t, err)
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

// DryRun logs the request instead of powering off.
type DryRun struct {
	Log  *logging.Logger
	Argv []string
}

func (d DryRun) Shutdown(context.Context) error {
	if d.Log != nil {
		d.Log.Info("dry run: would execute %q", strings.Join(d.Argv, " "))
	}
	return nil
}

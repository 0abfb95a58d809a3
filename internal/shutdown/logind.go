package shutdown

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	logindService  = "org.freedesktop.login1"
	logindPath     = dbus.ObjectPath("/org/freedesktop/login1")
	logindPowerOff = "org.freedesktop.login1.Manager.PowerOff"
)

// Logind powers off through systemd-logind on the system bus. Unlike the
// shutdown command it works for an unprivileged desktop session when polkit
// allows it.
type Logind struct {
	connect func(ctx context.Context) (busObject, func() error, error)
}

// busObject is the subset of dbus.BusObject used here.
type busObject interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

func NewLogind() *Logind {
	return &Logind{connect: connectLogind}
}

func (l *Logind) Shutdown(ctx context.Context) error {
	obj, closeFn, err := l.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	defer closeFn()

	// interactive=false: never block on a polkit prompt.
	if err := obj.CallWithContext(ctx, logindPowerOff, 0, false).Err; err != nil {
		return fmt.Errorf("logind power off: %w", err)
	}
	return nil
}

func connectLogind(ctx context.Context) (busObject, func() error, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	return conn.Object(logindService, logindPath), conn.Close, nil
}

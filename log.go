package isopick

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// logger wraps a *log.Logger with the level helpers used across the picking
// engines. Warnings that can fire every frame (a sprite without a texture, a
// failing readback) are throttled so a broken scene does not flood the log.
type logger struct {
	out   *log.Logger
	name  string
	debug bool

	missingSurface rate.Sometimes
	readbackFailed rate.Sometimes
	overflow       rate.Sometimes
	lifecycle      rate.Sometimes
}

func newLogger(out *log.Logger, name string, debug bool) *logger {
	if out == nil {
		out = log.Default()
	}
	return &logger{
		out:            out,
		name:           name,
		debug:          debug,
		missingSurface: rate.Sometimes{Interval: time.Second},
		readbackFailed: rate.Sometimes{Interval: time.Second},
		overflow:       rate.Sometimes{First: 1, Interval: 10 * time.Second},
		lifecycle:      rate.Sometimes{Interval: time.Second},
	}
}

func (l *logger) prefix() string {
	if l.name == "" {
		return "isopick: "
	}
	return "isopick[" + l.name + "]: "
}

func (l *logger) errorf(format string, v ...any) {
	l.out.Print(l.prefix() + "error: " + fmt.Sprintf(format, v...))
}

func (l *logger) warnf(format string, v ...any) {
	l.out.Print(l.prefix() + "warning: " + fmt.Sprintf(format, v...))
}

func (l *logger) debugf(format string, v ...any) {
	if !l.debug {
		return
	}
	l.out.Print(l.prefix() + fmt.Sprintf(format, v...))
}

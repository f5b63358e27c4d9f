package timer

import (
	"log/slog"
	"time"
)

// AlertScheduler is the deferred-alert capability. The platform adapter
// schedules a host notification for when the countdown would end so the
// user is alerted even if the app is backgrounded at completion time.
type AlertScheduler interface {
	ScheduleDeferredAlert(in time.Duration) error
	CancelDeferredAlert()
}

// NopAlertScheduler discards alert requests. Default when no platform
// adapter is wired.
type NopAlertScheduler struct{}

func (NopAlertScheduler) ScheduleDeferredAlert(time.Duration) error { return nil }
func (NopAlertScheduler) CancelDeferredAlert()                      {}

// LogAlertScheduler records alert scheduling to the log. Used by the
// server, where there is no host notification system to hand off to.
type LogAlertScheduler struct {
	Log *slog.Logger
}

func (l LogAlertScheduler) ScheduleDeferredAlert(in time.Duration) error {
	l.Log.Debug("deferred alert scheduled", "in", in.String())
	return nil
}

func (l LogAlertScheduler) CancelDeferredAlert() {
	l.Log.Debug("deferred alert cancelled")
}

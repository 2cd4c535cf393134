package usecase

import (
	"context"
	"errors"
	"time"
)

var (
	ErrIdentityUnavailable = errors.New("cart_session: identity unavailable")
	ErrCartInvalidArgument = errors.New("cart_session: invalid argument")
)

// Timer is a cancelable pending callback. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. Tests substitute a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RestoreNotice is the "welcome back, your cart was restored" message.
type RestoreNotice struct {
	AccountID string `json:"accountId"`
	Email     string `json:"-"`
	ItemCount int    `json:"itemCount"`
}

// Notifier surfaces restore notices to the user.
type Notifier interface {
	NotifyRestored(ctx context.Context, n RestoreNotice) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n RestoreNotice) error

func (f NotifierFunc) NotifyRestored(ctx context.Context, n RestoreNotice) error {
	return f(ctx, n)
}

// MultiNotifier fans a notice out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyRestored(ctx context.Context, n RestoreNotice) error {
	var errs []error
	for _, x := range m {
		if x == nil {
			continue
		}
		if err := x.NotifyRestored(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder receives counters for the cart session core.
// infra/metrics provides the Prometheus implementation.
type Recorder interface {
	Transition(kind string)
	Notified()
	StorageError(op string)
	DebouncedWrite(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string)   {}
func (nopRecorder) Notified()           {}
func (nopRecorder) StorageError(string) {}
func (nopRecorder) DebouncedWrite(bool) {}

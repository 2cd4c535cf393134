// internal/application/usecase/notification_gate.go
package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain/session"
)

// NotificationGate lets the restore notice fire at most once per sign-in.
//
// State is the persisted WelcomeMark (welcome-shown-for):
//   - NotShown -> Shown on a GuestToAccount/AccountToAccount that restored a non-empty cart
//   - Shown -> NotShown on AccountToGuest, on a switch that restored nothing,
//     and on a fresh load while Guest
//
// NoChange ticks never fire.
type NotificationGate struct {
	local    session.LocalStore
	notifier Notifier
	rec      Recorder
	log      *zap.Logger
}

func NewNotificationGate(local session.LocalStore, notifier Notifier, rec Recorder, logger *zap.Logger) *NotificationGate {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationGate{local: local, notifier: notifier, rec: rec, log: logger.Named("notification_gate")}
}

// Mark returns the persisted WelcomeMark. Read failures are NotShown.
func (g *NotificationGate) Mark(ctx context.Context) session.WelcomeMark {
	v, ok, err := g.local.Get(ctx, session.KeyWelcomeShown)
	if err != nil {
		g.rec.StorageError("welcome_read")
		g.log.Warn("read welcome mark failed", zap.Error(err))
		return session.WelcomeMark{}
	}
	if !ok {
		return session.WelcomeMark{}
	}
	return session.WelcomeMark{ShownFor: strings.TrimSpace(v)}
}

// Reset clears the mark.
func (g *NotificationGate) Reset(ctx context.Context) {
	if err := g.local.Delete(ctx, session.KeyWelcomeShown); err != nil {
		g.rec.StorageError("welcome_write")
		g.log.Warn("clear welcome mark failed", zap.Error(err))
	}
}

// Observe advances the state machine for one tick and returns the notice
// that fired, if any.
func (g *NotificationGate) Observe(ctx context.Context, tr session.Transition, res MergeResult) *RestoreNotice {
	switch tr.Kind {
	case session.AccountToGuest:
		g.Reset(ctx)
		return nil

	case session.GuestToAccount, session.AccountToAccount:
		target := tr.To.AccountID()
		mark := g.Mark(ctx)

		if !res.Restored || res.RestoredLines <= 0 {
			if mark.IsShown() && !mark.ShownTo(target) {
				g.Reset(ctx)
			}
			return nil
		}
		if mark.ShownTo(target) {
			// Same sign-in observed twice (e.g. the marker write was lost).
			return nil
		}

		if err := g.local.Set(ctx, session.KeyWelcomeShown, target); err != nil {
			g.rec.StorageError("welcome_write")
			g.log.Warn("persist welcome mark failed", zap.String("account", target), zap.Error(err))
		}

		n := RestoreNotice{
			AccountID: target,
			Email:     tr.To.Email(),
			ItemCount: res.RestoredLines,
		}
		if g.notifier != nil {
			if err := g.notifier.NotifyRestored(ctx, n); err != nil {
				g.log.Warn("restore notifier failed", zap.String("account", target), zap.Error(err))
			}
		}
		g.rec.Notified()
		g.log.Info("cart restored notice", zap.String("account", target), zap.Int("items", n.ItemCount))
		return &n

	default:
		return nil
	}
}

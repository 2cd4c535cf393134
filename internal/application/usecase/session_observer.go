// internal/application/usecase/session_observer.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain/identity"
	"storefront/internal/domain/session"
)

// SessionObserver classifies the identity transition of one device.
//
// The previous identity lives in the device-local store (auth-state), not in
// memory, so a reload while still signed in as the same account is NoChange.
type SessionObserver struct {
	ids   IdentitySource
	local session.LocalStore
	rec   Recorder
	log   *zap.Logger
}

func NewSessionObserver(ids IdentitySource, local session.LocalStore, rec Recorder, logger *zap.Logger) *SessionObserver {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionObserver{ids: ids, local: local, rec: rec, log: logger.Named("session_observer")}
}

// Observe emits exactly one transition for this tick and records the current
// identity as the new marker.
//
// When the identity source fails the tick is NoChange, the marker is left
// as-is, and the returned error wraps ErrIdentityUnavailable.
func (o *SessionObserver) Observe(ctx context.Context) (session.Transition, error) {
	prev, hasPrev := o.readMarker(ctx)

	if o.ids == nil {
		return unavailableTick(prev), fmt.Errorf("%w: no identity source", ErrIdentityUnavailable)
	}
	cur, err := o.ids.CurrentIdentity(ctx)
	if err != nil {
		o.log.Warn("identity unavailable; treating tick as no_change", zap.Error(err))
		return unavailableTick(prev), fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}

	tr := session.Classify(prev, hasPrev, cur)

	if !hasPrev || !prev.Equal(cur) {
		if err := o.local.Set(ctx, session.KeyAuthState, cur.Key()); err != nil {
			o.rec.StorageError("marker_write")
			o.log.Warn("persist auth-state marker failed", zap.String("identity", cur.Key()), zap.Error(err))
		}
	}

	if tr.Kind != session.NoChange {
		o.log.Info("identity transition",
			zap.Stringer("kind", tr.Kind),
			zap.String("from", tr.From.Key()),
			zap.String("to", tr.To.Key()),
		)
	}
	o.rec.Transition(tr.Kind.String())
	return tr, nil
}

// readMarker returns the persisted previous identity.
// Absent, empty or unreadable markers are all "no previous identity".
func (o *SessionObserver) readMarker(ctx context.Context) (identity.Identity, bool) {
	v, ok, err := o.local.Get(ctx, session.KeyAuthState)
	if err != nil {
		o.rec.StorageError("marker_read")
		o.log.Warn("read auth-state marker failed; treating as absent", zap.Error(err))
		return identity.Guest(), false
	}
	if !ok || strings.TrimSpace(v) == "" {
		return identity.Guest(), false
	}
	return identity.Parse(v), true
}

func unavailableTick(prev identity.Identity) session.Transition {
	return session.Transition{Kind: session.NoChange, Current: prev}
}

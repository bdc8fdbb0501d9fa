package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/internal/repository/publisher"
)

// DeadBandMeters is the width of the band just outside the radius in which a fence
// keeps its current state, absorbing GPS jitter near the boundary.
const DeadBandMeters = 10

// TransitionEngine evaluates fixes against the fence set and commits INSIDE/OUTSIDE
// transitions.
type TransitionEngine struct {
	store     *GeofenceStore
	publisher publisher.Notifier
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewTransitionEngine(store *GeofenceStore, pub publisher.Notifier, logger *zap.Logger) *TransitionEngine {
	return &TransitionEngine{
		store:     store,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// nextState applies the entry/exit rule with the dead band.
func nextState(current domain.GeofenceState, dist, radius float64) domain.GeofenceState {
	switch {
	case dist < radius:
		return domain.StateInside
	case dist > radius+DeadBandMeters:
		return domain.StateOutside
	default:
		return current
	}
}

// Evaluate runs the state machine for every active fence in insertion order. It
// returns the committed events; the error joins notifier and persistence failures,
// none of which undo a committed transition.
func (e *TransitionEngine) Evaluate(ctx context.Context, fix domain.Fix) ([]domain.GeofenceEvent, error) {
	var (
		events []domain.GeofenceEvent
		errs   []error
	)

	for _, gf := range e.store.Fences() {
		if !gf.IsActive {
			continue
		}

		dist := Distance(fix.Lat, fix.Lon, gf.Lat, gf.Lon)
		next := nextState(gf.LastState, dist, gf.Radius)
		if next == gf.LastState || next == domain.StateUnknown {
			continue
		}
		if !e.store.setState(gf.ID, next) {
			// removed or already updated since the snapshot
			continue
		}

		evt := domain.GeofenceEvent{
			ID:        e.newID(),
			FenceName: gf.Name,
			Type:      next,
			Timestamp: e.now().UnixMilli(),
		}
		e.store.appendEvent(evt)
		events = append(events, evt)

		e.logger.Info("geofence transition",
			zap.String("fence_id", gf.ID),
			zap.String("fence", gf.Name),
			zap.String("from", string(gf.LastState)),
			zap.String("to", string(next)),
			zap.Float64("distance_m", dist),
		)

		if err := e.publisher.Notify(ctx, notificationFor(gf, evt)); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w: %w", gf.ID, domain.ErrNotifier, err))
		}
	}

	if len(events) > 0 {
		if err := e.store.commit(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return events, errors.Join(errs...)
}

func notificationFor(gf domain.Geofence, evt domain.GeofenceEvent) *domain.Notification {
	n := &domain.Notification{
		DedupKey:  gf.ID,
		Type:      evt.Type,
		Timestamp: evt.Timestamp,
	}
	if evt.Type == domain.StateInside {
		n.Title = "Entered " + gf.Name
		n.Body = "You have arrived at your monitored area."
	} else {
		n.Title = "Exited " + gf.Name
		n.Body = "You have left your monitored area."
	}
	return n
}

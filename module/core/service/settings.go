package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/nandanugg/gird/module/core/domain"
	"github.com/nandanugg/gird/module/core/internal/repository/database"
)

const (
	keyPollingMode      = "polling_mode"
	keyMonitoringActive = "is_monitoring_active"
	keyMapLat           = "map_lat"
	keyMapLon           = "map_lon"
	keyMapZoom          = "map_zoom"
)

// Settings holds the scalar, process-wide configuration values.
type Settings struct {
	kv     database.KeyValueStore
	logger *zap.Logger

	mu         sync.RWMutex
	mode       domain.PollingMode
	monitoring bool
	mapState   domain.MapState
}

func NewSettings(kv database.KeyValueStore, logger *zap.Logger) *Settings {
	return &Settings{
		kv:       kv,
		logger:   logger,
		mode:     domain.ModeBalanced,
		mapState: domain.DefaultMapState,
	}
}

// Load reads every setting, keeping the default for any value that is missing,
// unreadable or malformed.
func (s *Settings) Load(ctx context.Context) error {
	var errs []error

	mode := domain.ModeBalanced
	if raw, ok, err := s.kv.Get(ctx, keyPollingMode); err != nil {
		errs = append(errs, fmt.Errorf("read %s: %w: %w", keyPollingMode, domain.ErrPersistence, err))
	} else if ok {
		if m, err := domain.ParsePollingMode(raw); err != nil {
			s.logger.Error("ignoring persisted polling mode", zap.String("value", raw), zap.Error(err))
		} else {
			mode = m
		}
	}

	monitoring := false
	if raw, ok, err := s.kv.Get(ctx, keyMonitoringActive); err != nil {
		errs = append(errs, fmt.Errorf("read %s: %w: %w", keyMonitoringActive, domain.ErrPersistence, err))
	} else if ok {
		if b, err := strconv.ParseBool(raw); err != nil {
			s.logger.Error("ignoring persisted monitoring flag", zap.String("value", raw), zap.Error(err))
		} else {
			monitoring = b
		}
	}

	ms := domain.DefaultMapState
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{keyMapLat, &ms.Lat},
		{keyMapLon, &ms.Lon},
		{keyMapZoom, &ms.Zoom},
	} {
		raw, ok, err := s.kv.Get(ctx, f.key)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w: %w", f.key, domain.ErrPersistence, err))
			continue
		}
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.logger.Error("ignoring persisted map value", zap.String("key", f.key), zap.String("value", raw), zap.Error(err))
			continue
		}
		*f.dst = v
	}

	s.mu.Lock()
	s.mode = mode
	s.monitoring = monitoring
	s.mapState = ms
	s.mu.Unlock()

	return errors.Join(errs...)
}

func (s *Settings) PollingMode() domain.PollingMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetPollingMode updates the mode in memory and persists it. The in-memory value
// is kept when the write fails.
func (s *Settings) SetPollingMode(ctx context.Context, mode domain.PollingMode) error {
	if _, err := domain.ParsePollingMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()

	return s.write(ctx, keyPollingMode, string(mode))
}

func (s *Settings) MonitoringActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitoring
}

func (s *Settings) SetMonitoringActive(ctx context.Context, active bool) error {
	s.mu.Lock()
	s.monitoring = active
	s.mu.Unlock()

	return s.write(ctx, keyMonitoringActive, strconv.FormatBool(active))
}

func (s *Settings) MapState() domain.MapState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapState
}

func (s *Settings) SetMapState(ctx context.Context, ms domain.MapState) error {
	s.mu.Lock()
	s.mapState = ms
	s.mu.Unlock()

	return errors.Join(
		s.write(ctx, keyMapLat, strconv.FormatFloat(ms.Lat, 'g', -1, 64)),
		s.write(ctx, keyMapLon, strconv.FormatFloat(ms.Lon, 'g', -1, 64)),
		s.write(ctx, keyMapZoom, strconv.FormatFloat(ms.Zoom, 'g', -1, 64)),
	)
}

func (s *Settings) write(ctx context.Context, key, value string) error {
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("write %s: %w: %w", key, domain.ErrPersistence, err)
	}
	return nil
}

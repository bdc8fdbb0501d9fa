package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nandanugg/gird/module/core/domain"
)

type seedFile struct {
	Fences []seedFence `yaml:"fences"`
}

type seedFence struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Radius    float64 `yaml:"radius"`
	Active    *bool   `yaml:"active"`
}

// LoadSeedFences reads the fences a fresh install starts with. An empty path
// means no seed file and yields no fences.
func LoadSeedFences(path string) ([]domain.Geofence, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed fences: %w", err)
	}
	return ParseSeedFences(raw)
}

func ParseSeedFences(raw []byte) ([]domain.Geofence, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed fences: %w", err)
	}

	fences := make([]domain.Geofence, 0, len(f.Fences))
	var errs []error
	for i, sf := range f.Fences {
		gf := domain.Geofence{
			ID:        sf.ID,
			Name:      sf.Name,
			Lat:       sf.Latitude,
			Lon:       sf.Longitude,
			Radius:    sf.Radius,
			IsActive:  sf.Active == nil || *sf.Active,
			LastState: domain.StateUnknown,
		}
		if err := gf.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("seed fence %d: %w", i, err))
			continue
		}
		fences = append(fences, gf)
	}
	return fences, errors.Join(errs...)
}

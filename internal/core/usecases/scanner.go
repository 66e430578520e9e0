package usecases

import (
	"fmt"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// LegCoverage selects which legs of the primary route are scanned.
type LegCoverage string

const (
	CoverFirstLeg LegCoverage = "first"
	CoverAllLegs  LegCoverage = "all"
)

// ParseLegCoverage maps a config value to a LegCoverage.
func ParseLegCoverage(s string) (LegCoverage, error) {
	switch LegCoverage(s) {
	case CoverFirstLeg, CoverAllLegs:
		return LegCoverage(s), nil
	case "":
		return CoverFirstLeg, nil
	}
	return "", fmt.Errorf("unknown leg coverage %q", s)
}

// Scanner walks route steps and emits discovery boxes at mileage checkpoints.
//
// The cumulative distance is never reset. A box is emitted for the first step
// that brings the cumulative distance to or past the next checkpoint; the
// checkpoint then moves ThresholdMeters past the cumulative distance at that
// step, so consecutive boxes are at least ThresholdMeters apart.
type Scanner struct {
	ThresholdMeters float64
	// MaxTriggers caps the boxes emitted per route. Zero or less means 1.
	MaxTriggers int
	// PadMeters grows each emitted box on every side.
	PadMeters float64
}

// NewScanner creates a Scanner.
func NewScanner(thresholdMeters float64, maxTriggers int, padMeters float64) Scanner {
	return Scanner{ThresholdMeters: thresholdMeters, MaxTriggers: maxTriggers, PadMeters: padMeters}
}

func (s Scanner) cap() int {
	if s.MaxTriggers <= 0 {
		return 1
	}
	return s.MaxTriggers
}

// ScanLeg scans one leg, emitting at most budget boxes. It returns the number emitted.
func (s Scanner) ScanLeg(steps []domain.RouteLegStep, budget int, emit func(domain.BoundingBox)) int {
	if budget <= 0 || len(steps) == 0 || s.ThresholdMeters <= 0 {
		return 0
	}

	fired := 0
	cumulative := 0.0
	checkpoint := s.ThresholdMeters

	for _, step := range steps {
		cumulative += step.DistanceMeters
		if cumulative < checkpoint {
			continue
		}

		emit(domain.BoundsFrom(step.Start, step.End).Pad(s.PadMeters))
		fired++
		if fired >= budget {
			break
		}
		checkpoint = cumulative + s.ThresholdMeters
	}
	return fired
}

// Scan scans a single leg against the full per-route cap.
func (s Scanner) Scan(steps []domain.RouteLegStep, emit func(domain.BoundingBox)) int {
	return s.ScanLeg(steps, s.cap(), emit)
}

// ScanRoute scans the covered legs of a route, sharing the trigger cap across legs.
// Each leg starts its own cumulative distance at the leg origin.
func (s Scanner) ScanRoute(route domain.Route, coverage LegCoverage, emit func(domain.BoundingBox)) int {
	legs := route.Legs
	if coverage != CoverAllLegs && len(legs) > 1 {
		legs = legs[:1]
	}

	remaining := s.cap()
	total := 0
	for _, leg := range legs {
		if remaining == 0 {
			break
		}
		n := s.ScanLeg(leg.Steps, remaining, emit)
		remaining -= n
		total += n
	}
	return total
}

package usecases

import (
	"github.com/samirrijal/voltrip/internal/core/domain"
)

// Transition describes the outcome of a toggle.
type Transition struct {
	Charger domain.Charger
	From    domain.ChargerState
	To      domain.ChargerState
}

// ToggleState owns the available and selected charger sets of one session and
// the waypoint list derived from the selection. A discovered position is in
// exactly one of the two sets. ToggleState is not safe for concurrent use;
// RouteSession serializes access to it.
type ToggleState struct {
	maxSelected int

	available map[string]domain.Charger
	// order holds every known position in discovery order.
	order []string

	selected map[string]domain.Charger
	// waypoints mirrors the selection in selection order.
	waypoints []domain.Waypoint
}

// NewToggleState creates an empty state. maxSelected outside 1..MaxWaypoints means MaxWaypoints.
func NewToggleState(maxSelected int) *ToggleState {
	if maxSelected <= 0 || maxSelected > domain.MaxWaypoints {
		maxSelected = domain.MaxWaypoints
	}
	return &ToggleState{
		maxSelected: maxSelected,
		available:   make(map[string]domain.Charger),
		selected:    make(map[string]domain.Charger),
	}
}

// AddAvailable merges discovered chargers. Positions already known in either
// set are skipped. It returns the chargers that were actually added.
func (t *ToggleState) AddAvailable(chargers []domain.Charger) []domain.Charger {
	var added []domain.Charger
	for _, c := range chargers {
		key := c.Position.Key()
		if _, ok := t.available[key]; ok {
			continue
		}
		if _, ok := t.selected[key]; ok {
			continue
		}
		t.available[key] = c
		t.order = append(t.order, key)
		added = append(added, c)
	}
	return added
}

// Toggle flips the state of the charger at pos.
func (t *ToggleState) Toggle(pos domain.GeoPoint) (Transition, error) {
	key := pos.Key()

	if c, ok := t.selected[key]; ok {
		delete(t.selected, key)
		t.removeWaypoint(key)
		t.available[key] = c
		return Transition{Charger: c, From: domain.ChargerSelected, To: domain.ChargerAvailable}, nil
	}

	c, ok := t.available[key]
	if !ok {
		return Transition{}, domain.ErrUnknownCharger
	}
	if len(t.selected) >= t.maxSelected {
		return Transition{Charger: c, From: domain.ChargerAvailable, To: domain.ChargerAvailable}, domain.ErrCapacityExceeded
	}

	delete(t.available, key)
	t.selected[key] = c
	t.waypoints = append(t.waypoints, domain.Waypoint{ChargerID: c.ID, Position: c.Position, Stopover: true})
	return Transition{Charger: c, From: domain.ChargerAvailable, To: domain.ChargerSelected}, nil
}

// State reports where pos currently is.
func (t *ToggleState) State(pos domain.GeoPoint) (domain.ChargerState, bool) {
	key := pos.Key()
	if _, ok := t.selected[key]; ok {
		return domain.ChargerSelected, true
	}
	if _, ok := t.available[key]; ok {
		return domain.ChargerAvailable, true
	}
	return "", false
}

// Reset drops every charger and waypoint. It returns the chargers that were selected.
func (t *ToggleState) Reset() []domain.Charger {
	dropped := t.Selected()
	t.available = make(map[string]domain.Charger)
	t.order = nil
	t.selected = make(map[string]domain.Charger)
	t.waypoints = nil
	return dropped
}

// Waypoints returns a copy of the waypoint list.
func (t *ToggleState) Waypoints() []domain.Waypoint {
	out := make([]domain.Waypoint, len(t.waypoints))
	copy(out, t.waypoints)
	return out
}

// Available returns the available chargers in discovery order.
func (t *ToggleState) Available() []domain.Charger {
	out := make([]domain.Charger, 0, len(t.available))
	for _, key := range t.order {
		if c, ok := t.available[key]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Selected returns the selected chargers in selection order.
func (t *ToggleState) Selected() []domain.Charger {
	out := make([]domain.Charger, 0, len(t.waypoints))
	for _, w := range t.waypoints {
		out = append(out, t.selected[w.Position.Key()])
	}
	return out
}

// SelectedCount returns the number of selected chargers.
func (t *ToggleState) SelectedCount() int { return len(t.selected) }

func (t *ToggleState) removeWaypoint(key string) {
	for i, w := range t.waypoints {
		if w.Position.Key() == key {
			t.waypoints = append(t.waypoints[:i], t.waypoints[i+1:]...)
			return
		}
	}
}

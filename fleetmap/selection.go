package fleetmap

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type (
	// SelectionState is the operator focus. Every Select or Clear bumps the
	// generation, so responses issued for an older generation can be told apart.
	SelectionState struct {
		VehicleID  string `json:"vehicleId,omitempty"`
		Generation uint64 `json:"generation"`
	}

	SelectionChange struct {
		Previous SelectionState
		Current  SelectionState
	}

	// Selection holds at most one selected vehicle. It is the single writer of
	// the selection state; readers subscribe or call Current.
	Selection struct {
		mu        sync.RWMutex
		state     SelectionState
		observers observers[SelectionChange]
	}
)

func (s SelectionState) Active() bool {
	return s.VehicleID != ""
}

func NewSelection() *Selection {
	return &Selection{}
}

// Select focuses vehicleID. Selecting the vehicle that is already selected
// starts a new generation as well, which forces a fresh history fetch.
func (s *Selection) Select(vehicleID string) SelectionState {
	s.mu.Lock()
	prev := s.state
	s.state = SelectionState{
		VehicleID:  vehicleID,
		Generation: prev.Generation + 1,
	}
	next := s.state
	s.mu.Unlock()

	log.Debug().Str("previous", prev.VehicleID).Str("vehicle", next.VehicleID).Uint64("generation", next.Generation).Msg("selection changed")

	s.observers.notify(SelectionChange{Previous: prev, Current: next})
	return next
}

func (s *Selection) Clear() SelectionState {
	return s.Select("")
}

func (s *Selection) Current() SelectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for every selection change and returns the function
// that removes it again.
func (s *Selection) Subscribe(fn func(SelectionChange)) func() {
	return s.observers.add(fn)
}

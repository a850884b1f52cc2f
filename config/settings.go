package config

import (
	"sync"

	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// SETTINGS - Shared mutable campaign configuration
// =============================================================================

// Settings is the single mutable Campaign handle shared by the allocator,
// the queue, and the admin endpoints. Reads vastly outnumber writes.
type Settings struct {
	mu       sync.RWMutex
	campaign Campaign
}

func NewSettings(c Campaign) *Settings {
	return &Settings{campaign: c}
}

// Campaign returns a copy of the current configuration.
func (s *Settings) Campaign() Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.campaign
	c.CPCTeamsEnabled = append([]roster.Team(nil), s.campaign.CPCTeamsEnabled...)
	return c
}

// Update validates and replaces the configuration.
func (s *Settings) Update(c Campaign) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaign = c
	return nil
}

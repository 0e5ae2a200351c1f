package matcher

import (
	"sync"

	"github.com/xaenox/outreach-router/internal/models"
)

// Catalog holds the profile metadata for ids stored in the index.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[string]models.ICPProfile
}

func NewCatalog() *Catalog {
	return &Catalog{profiles: make(map[string]models.ICPProfile)}
}

func (c *Catalog) Put(p models.ICPProfile) {
	p.ChannelPreferences = p.ChannelPreferences.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.ID] = p
}

func (c *Catalog) Get(id string) (models.ICPProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	return p, ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}

package local

// Power is a no-op collab.Power, recording whether Suspend was called so
// tests can assert on it.
type Power struct {
	Suspended bool
}

// Init initializes the power-management collaborator.
func (p *Power) Init() error {
	return nil
}

// Suspend marks the core suspended.
func (p *Power) Suspend() {
	p.Suspended = true
}

// Cache is a no-op collab.Cache, counting writebacks for tests.
type Cache struct {
	Writebacks int
}

// WritebackAll records a cache writeback.
func (c *Cache) WritebackAll() {
	c.Writebacks++
}

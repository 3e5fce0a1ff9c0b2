package ldap

import (
	"fmt"
	"slices"
	"sync"
)

// ConnectionStore is a named, ordered collection of connection configurations.
// Names are not required to be unique.
type ConnectionStore interface {
	ListAll() []ConnectionConfig
	FindByName(name string) (ConnectionConfig, *AmbiguousNameWarning, error)
}

// AmbiguousNameWarning reports that a lookup matched more than one connection.
// The first match is used.
type AmbiguousNameWarning struct {
	Name    string
	Matches int
}

func (w *AmbiguousNameWarning) String() string {
	return fmt.Sprintf("Found %d LDAP connections with name '%s', expected at most 1.", w.Matches, w.Name)
}

// Connections is an in-memory ConnectionStore that also supports CRUD by name.
type Connections struct {
	mu     sync.RWMutex
	items  []ConnectionConfig
	logger Logger
}

// NewConnections creates a store holding a copy of items.
func NewConnections(items []ConnectionConfig, logger Logger) *Connections {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Connections{
		items:  slices.Clone(items),
		logger: logger,
	}
}

// ListAll returns a copy of all connections in stored order.
func (c *Connections) ListAll() []ConnectionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// FindByName returns the first connection named name. When several match, a
// warning is logged and returned alongside the first match.
func (c *Connections) FindByName(name string) (ConnectionConfig, *AmbiguousNameWarning, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var found *ConnectionConfig
	matches := 0
	for i := range c.items {
		if c.items[i].Name != name {
			continue
		}
		if found == nil {
			found = &c.items[i]
		}
		matches++
	}

	if found == nil {
		return ConnectionConfig{}, nil, NewConfigurationError("connection",
			fmt.Sprintf("Unable to find connection '%s' in settings", name), ErrConnectionNotFound)
	}

	var warning *AmbiguousNameWarning
	if matches > 1 {
		warning = &AmbiguousNameWarning{Name: name, Matches: matches}
		c.logger.Warn(warning.String(), map[string]any{"connection": name, "matches": matches})
	}

	return *found, warning, nil
}

// Add appends a connection. Duplicate names are allowed.
func (c *Connections) Add(cfg ConnectionConfig) error {
	if cfg.Name == "" {
		return NewConfigurationError("name", "connection name cannot be empty", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, cfg)
	return nil
}

// Edit replaces the first connection named existingName with replacement.
func (c *Connections) Edit(existingName string, replacement ConnectionConfig) error {
	if replacement.Name == "" {
		return NewConfigurationError("name", "connection name cannot be empty", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	index := c.indexOf(existingName)
	if index < 0 {
		return fmt.Errorf("connection '%s' does not exist in settings: %w", existingName, ErrConnectionNotFound)
	}
	c.items[index] = replacement
	return nil
}

// Remove deletes the first connection named name.
func (c *Connections) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := c.indexOf(name)
	if index < 0 {
		return fmt.Errorf("connection '%s' does not exist in settings: %w", name, ErrConnectionNotFound)
	}
	c.items = slices.Delete(c.items, index, index+1)
	return nil
}

func (c *Connections) indexOf(name string) int {
	return slices.IndexFunc(c.items, func(cfg ConnectionConfig) bool {
		return cfg.Name == name
	})
}

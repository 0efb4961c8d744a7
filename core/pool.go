// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the connection pool: named driver handles opened
// lazily from configuration, with at most one handle per name no matter how
// many goroutines ask for it concurrently.
package core

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultConnection is the reserved name resolving to the configured
// default connection.
const DefaultConnection = "default"

// Opener builds a driver handle for a connection URI. The mongo driver
// package provides the production implementation; tests substitute fakes.
type Opener func(ctx context.Context, uri, database string) (Driver, error)

// Pool manages named driver connections described by a Config.
//
// Handles are opened on first use and cached; concurrent first requests
// for the same name share a single connect attempt, so a name never holds
// more than one handle.
type Pool struct {
	config *Config
	opener Opener

	mutex sync.RWMutex
	conns map[string]Driver
	group singleflight.Group
}

// NewPool creates a pool over the given configuration and opener.
func NewPool(config *Config, opener Opener) *Pool {
	return &Pool{
		config: config,
		opener: opener,
		conns:  map[string]Driver{},
	}
}

// Resolve maps a caller-supplied connection name to its configuration.
//
// The name "default" (or an empty name) resolves through the config's
// default connection. It fails with ErrConfiguration when the default is
// requested but unset, or when the name has no configuration entry.
func (p *Pool) Resolve(name string) (string, *ConnectionConfig, error) {
	if name == "" || name == DefaultConnection {
		if p.config.Connection == "" {
			return "", nil, configurationErrorf("no default connection configured")
		}
		name = p.config.Connection
	}
	cfg, ok := p.config.Connections[name]
	if !ok {
		return "", nil, configurationErrorf("connection %q is not configured", name)
	}
	return name, cfg, nil
}

// Connection returns the driver handle for a named connection, opening it
// on first use.
func (p *Pool) Connection(ctx context.Context, name string) (Driver, error) {
	resolved, cfg, err := p.Resolve(name)
	if err != nil {
		return nil, err
	}

	p.mutex.RLock()
	driver, ok := p.conns[resolved]
	p.mutex.RUnlock()
	if ok {
		return driver, nil
	}

	result, err, _ := p.group.Do(resolved, func() (any, error) {
		p.mutex.RLock()
		existing, ok := p.conns[resolved]
		p.mutex.RUnlock()
		if ok {
			return existing, nil
		}

		user, password := Credentials()
		opened, err := p.opener(ctx, cfg.Connection.URI(user, password), cfg.Connection.Database)
		if err != nil {
			return nil, err
		}
		if err := opened.Connect(ctx); err != nil {
			return nil, err
		}

		p.mutex.Lock()
		p.conns[resolved] = opened
		p.mutex.Unlock()
		poolConnections.Inc()
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Driver), nil
}

// Model returns a model for the schema bound to the named connection, with
// the connection's collection prefix applied.
func (p *Pool) Model(ctx context.Context, schema *Schema, connection string) (*Model, error) {
	_, cfg, err := p.Resolve(connection)
	if err != nil {
		return nil, err
	}
	driver, err := p.Connection(ctx, connection)
	if err != nil {
		return nil, err
	}
	model := NewModel(schema, driver)
	if cfg.Prefix != "" {
		model = model.WithPrefix(cfg.Prefix)
	}
	return model, nil
}

// Close shuts down the named connections, or every open connection when no
// names are given. Closing a name that is not open is a no-op. All close
// attempts run; their errors are joined.
func (p *Pool) Close(ctx context.Context, names ...string) error {
	targets := make([]string, 0, len(names))
	if len(names) == 0 {
		p.mutex.RLock()
		for name := range p.conns {
			targets = append(targets, name)
		}
		p.mutex.RUnlock()
	} else {
		for _, name := range names {
			if resolved, _, err := p.Resolve(name); err == nil {
				name = resolved
			}
			targets = append(targets, name)
		}
	}

	var errs []error
	for _, name := range targets {
		p.mutex.Lock()
		driver, ok := p.conns[name]
		delete(p.conns, name)
		p.mutex.Unlock()
		if !ok {
			continue
		}
		poolConnections.Dec()
		if err := driver.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Connections returns the sorted names of the currently open connections.
func (p *Pool) Connections() []string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	names := make([]string, 0, len(p.conns))
	for name := range p.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultPoolMutex sync.RWMutex
	defaultPool      *Pool
)

// Configure installs the process-default pool used by DefaultPool.
//
// Example:
//
//	cfg, _ := core.LoadConfig("database.yml")
//	core.Configure(cfg, mongodriver.Open)
func Configure(config *Config, opener Opener) {
	defaultPoolMutex.Lock()
	defer defaultPoolMutex.Unlock()
	defaultPool = NewPool(config, opener)
}

// DefaultPool returns the pool installed by Configure, or nil when the
// process default was never configured.
func DefaultPool() *Pool {
	defaultPoolMutex.RLock()
	defer defaultPoolMutex.RUnlock()
	return defaultPool
}

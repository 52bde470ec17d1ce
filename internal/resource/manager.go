// Package resource manages cached binary document payloads and their
// revocable access URLs, with LRU capacity eviction and TTL expiry.
package resource

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redline-labs/clausemark/internal/config"
	"go.uber.org/zap"
)

// Manager owns the mapping from logical resource ids to payloads and access
// URLs. It is constructed once at bootstrap and passed explicitly; all mutation
// goes through its methods. Safe for concurrent use.
type Manager struct {
	cfg config.ResourceConfig

	mu      sync.Mutex
	entries map[string]*entry // id -> entry
	tokens  map[string]string // URL token -> id
	lru     *list.List        // front = most recently accessed; values are *entry

	now     func() time.Time
	logger  *zap.Logger // optional; when set, logs eviction and revocation events
	running bool
	done    chan struct{}
}

type entry struct {
	id         string
	token      string
	url        string
	payload    []byte
	createdAt  time.Time
	lastAccess time.Time
	elem       *list.Element
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a logger for debug output (creations, evictions, revocations).
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithNow overrides the clock. Used by tests to drive TTL expiry.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a resource manager with the given limits. Call Initialize
// to start the periodic eviction sweep.
func NewManager(cfg config.ResourceConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		entries: make(map[string]*entry),
		tokens:  make(map[string]string),
		lru:     list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize starts the periodic TTL sweep. It is idempotent: calling it
// again while running is a no-op, and it may be called again after Close.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	interval := m.cfg.SweepInterval()
	if interval <= 0 {
		return fmt.Errorf("invalid sweep interval: %v", interval)
	}
	m.done = make(chan struct{})
	m.running = true
	go m.sweepLoop(m.done, interval)
	return nil
}

func (m *Manager) sweepLoop(done chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.SweepExpired()
		}
	}
}

// Create stores payload under id and returns its access URL. If a resource
// already exists under id, its previous URL is revoked first, so at most one
// live URL exists per id. Exceeding the configured maximum triggers
// least-recently-accessed eviction.
func (m *Manager) Create(id string, payload []byte) (string, error) {
	if id == "" {
		return "", fmt.Errorf("resource id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.entries[id]; ok {
		m.revokeLocked(prev, "replaced")
	}

	now := m.now()
	e := &entry{
		id:         id,
		token:      uuid.New().String(),
		payload:    payload,
		createdAt:  now,
		lastAccess: now,
	}
	e.url = m.cfg.URLBasePath + "/" + e.token
	e.elem = m.lru.PushFront(e)
	m.entries[id] = e
	m.tokens[e.token] = id

	if m.logger != nil {
		m.logger.Debug("resource created",
			zap.String("id", id),
			zap.Int("size_bytes", len(payload)),
			zap.Int("count", len(m.entries)))
	}

	m.evictOverCapacityLocked()
	return e.url, nil
}

// Access returns the current URL for id, refreshing its last-access time.
// Returns ok=false if no resource exists under id; it never creates one.
func (m *Manager) Access(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return "", false
	}
	e.lastAccess = m.now()
	m.lru.MoveToFront(e.elem)
	return e.url, true
}

// Lookup resolves an access-URL token back to its payload, refreshing the
// resource's last-access time. A revoked token returns ok=false.
func (m *Manager) Lookup(token string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return nil, false
	}
	e := m.entries[id]
	e.lastAccess = m.now()
	m.lru.MoveToFront(e.elem)
	return e.payload, true
}

// DestroyResource revokes the URL for id and removes all bookkeeping.
// Destroying a nonexistent id is a no-op, not an error.
func (m *Manager) DestroyResource(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		m.revokeLocked(e, "destroyed")
	}
}

// ResourceStatus describes one live resource for diagnostics.
type ResourceStatus struct {
	ID        string        `json:"id"`
	SizeBytes int           `json:"size_bytes"`
	Age       time.Duration `json:"age"`
	IdleFor   time.Duration `json:"idle_for"`
}

// Status is a read-only snapshot of the manager's state.
type Status struct {
	ResourceCount int              `json:"resource_count"`
	Resources     []ResourceStatus `json:"resources"`
}

// Status returns a snapshot of all live resources. It has no side effects:
// last-access times are not refreshed.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	st := Status{ResourceCount: len(m.entries)}
	for _, e := range m.entries {
		st.Resources = append(st.Resources, ResourceStatus{
			ID:        e.id,
			SizeBytes: len(e.payload),
			Age:       now.Sub(e.createdAt),
			IdleFor:   now.Sub(e.lastAccess),
		})
	}
	return st
}

// SweepExpired removes every resource idle longer than the configured TTL and
// returns the number evicted. The periodic sweep calls this; tests may call it
// directly with an injected clock.
func (m *Manager) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepExpiredLocked()
}

func (m *Manager) sweepExpiredLocked() int {
	ttl := m.cfg.TTL()
	if ttl <= 0 {
		return 0
	}
	now := m.now()
	evicted := 0
	// Walk from the back: least recently accessed first.
	for elem := m.lru.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if now.Sub(e.lastAccess) > ttl {
			m.revokeLocked(e, "ttl")
			evicted++
		}
		elem = prev
	}
	return evicted
}

// evictOverCapacityLocked brings the resource count back to MaxResources.
// TTL-expired entries are removed first so the LRU pass skips entries already
// due for expiry, then the least recently accessed are evicted.
func (m *Manager) evictOverCapacityLocked() {
	max := m.cfg.MaxResources
	if max <= 0 {
		return
	}
	if len(m.entries) > max {
		m.sweepExpiredLocked()
	}
	for len(m.entries) > max {
		oldest := m.lru.Back()
		if oldest == nil {
			break
		}
		m.revokeLocked(oldest.Value.(*entry), "capacity")
	}
}

func (m *Manager) revokeLocked(e *entry, reason string) {
	m.lru.Remove(e.elem)
	delete(m.entries, e.id)
	delete(m.tokens, e.token)
	if m.logger != nil {
		m.logger.Debug("resource revoked",
			zap.String("id", e.id),
			zap.String("reason", reason),
			zap.Int("count", len(m.entries)))
	}
}

// Close stops the periodic sweep and revokes every outstanding resource.
// Intended for test teardown or full application shutdown; safe to call more
// than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		close(m.done)
		m.running = false
	}
	for _, e := range m.entries {
		m.lru.Remove(e.elem)
		delete(m.tokens, e.token)
	}
	m.entries = make(map[string]*entry)
}

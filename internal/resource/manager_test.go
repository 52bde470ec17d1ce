package resource

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redline-labs/clausemark/internal/config"
)

func testConfig() config.ResourceConfig {
	return config.ResourceConfig{
		MaxResources:         3,
		TTLSeconds:           600,
		SweepIntervalSeconds: 60,
		URLBasePath:          "/api/v1/resources",
	}
}

// fakeClock is an adjustable clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func tokenOf(url string) string {
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

func TestCreateReturnsAccessURL(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Close()

	url, err := m.Create("doc-1", []byte("payload"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(url, "/api/v1/resources/") {
		t.Errorf("url: got %q", url)
	}
	got, ok := m.Access("doc-1")
	if !ok || got != url {
		t.Errorf("Access: got %q ok=%v, want %q", got, ok, url)
	}
	payload, ok := m.Lookup(tokenOf(url))
	if !ok || string(payload) != "payload" {
		t.Errorf("Lookup: got %q ok=%v", payload, ok)
	}
}

func TestCreateEmptyID(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Close()
	if _, err := m.Create("", []byte("x")); err == nil {
		t.Error("Create with empty id: want error")
	}
}

func TestCreateReplacesPreviousURL(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Close()

	first, err := m.Create("doc-1", []byte("v1"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Create("doc-1", []byte("v2"))
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("replacement must issue a new URL")
	}
	if _, ok := m.Lookup(tokenOf(first)); ok {
		t.Error("old URL still resolves after replacement")
	}
	payload, ok := m.Lookup(tokenOf(second))
	if !ok || string(payload) != "v2" {
		t.Errorf("new URL: got %q ok=%v", payload, ok)
	}
	if st := m.Status(); st.ResourceCount != 1 {
		t.Errorf("resource count: got %d, want 1", st.ResourceCount)
	}
}

func TestAccessUnknownID(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Close()
	if url, ok := m.Access("nope"); ok {
		t.Errorf("Access unknown id: got %q, want miss", url)
	}
	if st := m.Status(); st.ResourceCount != 0 {
		t.Errorf("Access must not create resources, count=%d", st.ResourceCount)
	}
}

func TestDestroyResourceIdempotent(t *testing.T) {
	m := NewManager(testConfig())
	defer m.Close()

	url, _ := m.Create("doc-1", []byte("x"))
	m.DestroyResource("doc-1")
	if _, ok := m.Lookup(tokenOf(url)); ok {
		t.Error("URL still resolves after destroy")
	}
	// Destroying again (or a nonexistent id) must be a no-op.
	m.DestroyResource("doc-1")
	m.DestroyResource("never-existed")
}

func TestLRUEviction(t *testing.T) {
	m := NewManager(testConfig()) // max 3
	defer m.Close()

	urlA, _ := m.Create("a", []byte("a"))
	urlB, _ := m.Create("b", []byte("b"))
	urlC, _ := m.Create("c", []byte("c"))

	// Touch "a" so "b" is now the least recently accessed.
	if _, ok := m.Access("a"); !ok {
		t.Fatal("Access a failed")
	}

	if _, err := m.Create("d", []byte("d")); err != nil {
		t.Fatal(err)
	}

	if _, ok := m.Access("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := m.Lookup(tokenOf(urlB)); ok {
		t.Error("b's URL should be revoked on eviction")
	}
	for id, url := range map[string]string{"a": urlA, "c": urlC} {
		if _, ok := m.Lookup(tokenOf(url)); !ok {
			t.Errorf("%s should survive eviction", id)
		}
	}
	if st := m.Status(); st.ResourceCount != 3 {
		t.Errorf("resource count: got %d, want 3", st.ResourceCount)
	}
}

func TestTTLSweep(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(testConfig(), WithNow(clock.Now))
	defer m.Close()

	url, _ := m.Create("doc-1", []byte("x"))
	m.Create("doc-2", []byte("y"))

	// Keep doc-2 fresh, let doc-1 idle past the TTL.
	clock.Advance(9 * time.Minute)
	m.Access("doc-2")
	clock.Advance(2 * time.Minute)

	if n := m.SweepExpired(); n != 1 {
		t.Errorf("SweepExpired: got %d, want 1", n)
	}
	if _, ok := m.Lookup(tokenOf(url)); ok {
		t.Error("expired resource URL still resolves")
	}
	if _, ok := m.Access("doc-2"); !ok {
		t.Error("fresh resource evicted by sweep")
	}
}

func TestAccessRefreshesTTL(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(testConfig(), WithNow(clock.Now))
	defer m.Close()

	m.Create("doc-1", []byte("x"))
	clock.Advance(9 * time.Minute)
	m.Access("doc-1")
	clock.Advance(9 * time.Minute)

	if n := m.SweepExpired(); n != 0 {
		t.Errorf("SweepExpired: got %d, want 0 (access refreshed TTL)", n)
	}
}

func TestCapacityEvictionRemovesExpiredFirst(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig()
	cfg.MaxResources = 2
	m := NewManager(cfg, WithNow(clock.Now))
	defer m.Close()

	m.Create("stale", []byte("s"))
	clock.Advance(11 * time.Minute) // "stale" is past TTL
	m.Create("b", []byte("b"))

	// Creating "c" exceeds capacity; the expired entry goes first, so the
	// still-fresh "b" must survive.
	m.Create("c", []byte("c"))

	if _, ok := m.Access("stale"); ok {
		t.Error("expired entry should be evicted before LRU eviction")
	}
	if _, ok := m.Access("b"); !ok {
		t.Error("fresh entry evicted while an expired one existed")
	}
	if _, ok := m.Access("c"); !ok {
		t.Error("newest entry missing")
	}
}

func TestStatusSnapshot(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(testConfig(), WithNow(clock.Now))
	defer m.Close()

	m.Create("doc-1", []byte("12345"))
	clock.Advance(30 * time.Second)

	st := m.Status()
	if st.ResourceCount != 1 || len(st.Resources) != 1 {
		t.Fatalf("status: %+v", st)
	}
	r := st.Resources[0]
	if r.ID != "doc-1" || r.SizeBytes != 5 {
		t.Errorf("resource status: %+v", r)
	}
	if r.IdleFor != 30*time.Second {
		t.Errorf("idle_for: got %v", r.IdleFor)
	}
}

func TestInitializeAndCloseLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.SweepIntervalSeconds = 1
	m := NewManager(cfg)

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize twice: %v", err)
	}

	url, _ := m.Create("doc-1", []byte("x"))
	m.Close()
	if _, ok := m.Lookup(tokenOf(url)); ok {
		t.Error("Close must revoke all resources")
	}
	m.Close() // safe to call again

	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize after Close: %v", err)
	}
	m.Close()
}

func TestInitializeRejectsBadInterval(t *testing.T) {
	cfg := testConfig()
	cfg.SweepIntervalSeconds = 0
	m := NewManager(cfg)
	if err := m.Initialize(); err == nil {
		t.Error("Initialize with zero interval: want error")
	}
}

func TestConcurrentCreateAndAccess(t *testing.T) {
	cfg := testConfig()
	cfg.MaxResources = 8
	m := NewManager(cfg)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", n%8)
			if _, err := m.Create(id, []byte("x")); err != nil {
				t.Errorf("Create %s: %v", id, err)
			}
			m.Access(id)
			m.Status()
		}(i)
	}
	wg.Wait()

	if st := m.Status(); st.ResourceCount > 8 {
		t.Errorf("resource count exceeds maximum: %d", st.ResourceCount)
	}
}

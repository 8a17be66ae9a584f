package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wikistats/pkg/cache"
	"wikistats/pkg/config"
	"wikistats/pkg/tracker"
)

func testClient(c cache.Cacher) *Client {
	cfg := config.DefaultConfig()
	cfg.Request.Backoff.BaseDelay = config.Duration(10 * time.Millisecond)
	return New(c, tracker.New(), cfg)
}

func TestGet_Sequential(t *testing.T) {
	// Handler sleeps to prove requests for one provider never overlap
	var conc int32
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&conc, 1)
		defer atomic.AddInt32(&conc, -1)

		if current > 1 {
			t.Errorf("Concurrency detected! Expected sequential.")
		}
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(200)
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client := testClient(cache.NullCache{})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), svr.URL, ""); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestGet_Retry(t *testing.T) {
	attempts := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(429) // Too Many Requests
			return
		}
		w.WriteHeader(200)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client := testClient(cache.NullCache{})

	body, err := client.Get(context.Background(), svr.URL, "")
	if err != nil {
		t.Fatalf("Expected success after retry, got error: %v", err)
	}
	if string(body) != "success" {
		t.Errorf("Expected 'success', got '%s'", string(body))
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestGet_IdentifyingHeaders(t *testing.T) {
	var gotUA, gotFrom string
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotFrom = r.Header.Get("From")
		w.WriteHeader(200)
	}))
	defer svr.Close()

	cfg := config.DefaultConfig()
	cfg.Contact.UserAgent = "WikiStatsTest"
	cfg.Contact.From = "stats@example.org"
	client := New(cache.NullCache{}, tracker.New(), cfg)

	if _, err := client.Get(context.Background(), svr.URL, ""); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if gotFrom != "stats@example.org" {
		t.Errorf("From header = %q, want stats@example.org", gotFrom)
	}
	if !strings.HasPrefix(gotUA, "WikiStatsTest") {
		t.Errorf("User-Agent = %q, want WikiStatsTest prefix", gotUA)
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) SetCache(ctx context.Context, key string, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = val
	return nil
}

func TestGet_CachedSecondCall(t *testing.T) {
	calls := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(200)
		if _, err := w.Write([]byte("payload")); err != nil {
			t.Logf("Write failed: %v", err)
		}
	}))
	defer svr.Close()

	client := testClient(&mapCache{m: make(map[string][]byte)})

	for i := 0; i < 2; i++ {
		body, err := client.Get(context.Background(), svr.URL, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(body) != "payload" {
			t.Errorf("got %q, want payload", body)
		}
	}

	if calls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", calls)
	}
}

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"en.wikipedia.org", "wikipedia"},
		{"fr.wikipedia.org", "wikipedia"},
		{"wikipedia.org", "wikipedia"},
		{"wikimedia.org", "wikimedia"},
		{"other.com", "other.com"},
	}

	for _, tt := range tests {
		got := normalizeProvider(tt.host)
		if got != tt.expected {
			t.Errorf("normalizeProvider(%q) = %q; want %q", tt.host, got, tt.expected)
		}
	}
}

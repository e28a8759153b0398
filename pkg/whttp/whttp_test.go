package whttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendRetriesTransientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`<html><head><title>Search Results</title></head><body>ok</body></html>`))
	}))
	defer server.Close()

	c := NewClient(Options{RetryMax: 3, RetryWait: 10 * time.Millisecond, HostInterval: time.Millisecond})
	res, err := c.Send(context.Background(), &WHTTPReq{URL: server.URL})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if res.HTTPTitle != "Search Results" {
		t.Fatalf("title = %q, want %q", res.HTTPTitle, "Search Results")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("server saw %d requests, want 3", got)
	}
}

func TestSendUsesResponseCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("body"))
	}))
	defer server.Close()

	c := NewClient(Options{CacheTTL: time.Minute, HostInterval: time.Millisecond})
	for i := 0; i < 3; i++ {
		if _, err := c.Send(context.Background(), &WHTTPReq{URL: server.URL + "/search?isbn=9780000000001"}); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("server saw %d requests, want 1 (cache hits)", got)
	}
}

func TestHostLimitersAreIndependent(t *testing.T) {
	h := NewHostLimiters(time.Hour)

	ctx := context.Background()
	if err := h.Wait(ctx, "zvab.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	// A different host must not be blocked by zvab.com's drained bucket.
	done := make(chan struct{})
	go func() {
		_ = h.Wait(ctx, "rebuy.de")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wait on a fresh host blocked behind another host's bucket")
	}

	// The drained host does block until its bucket refills.
	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := h.Wait(ctx2, "zvab.com"); err == nil {
		t.Fatal("expected context deadline waiting on drained bucket")
	}
}

func TestRateLimitKeyUsesRegistrableDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.zvab.com/servlet/SearchResults?isbn=1", "zvab.com"},
		{"https://api.ebay.com/buy/browse/v1/item_summary/search", "ebay.com"},
		{"https://www.rebuy.de/kaufen/search?q=x", "rebuy.de"},
	}
	for _, tt := range tests {
		if got := rateLimitKey(tt.url); got != tt.want {
			t.Errorf("rateLimitKey(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"solana-mint-sniffer/internal/logging"
)

func listServer(requests *atomic.Int32, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestRaydiumListingsMembership(t *testing.T) {
	var requests atomic.Int32
	srv := listServer(&requests, `{
		"official": [
			"MintAAAA1111111111111111111111111111111111",
			{"mint": "MintBBBB2222222222222222222222222222222222"},
			{"address": "MintCCCC3333333333333333333333333333333333"}
		],
		"unOfficial": ["MintDDDD4444444444444444444444444444444444"]
	}`)
	defer srv.Close()

	d := NewRaydiumDirectory(srv.URL, time.Minute, logging.NewNop())
	ctx := context.Background()

	for _, mint := range []string{
		"MintAAAA1111111111111111111111111111111111",
		"MintBBBB2222222222222222222222222222222222",
		"MintCCCC3333333333333333333333333333333333",
	} {
		listings, err := d.Listings(ctx, mint)
		if err != nil {
			t.Fatalf("Listings(%s): %v", mint, err)
		}
		if len(listings) != 1 || listings[0] != "Raydium" {
			t.Fatalf("Listings(%s) = %v, want [Raydium]", mint, listings)
		}
	}

	// Unofficial and unknown mints are not listings.
	for _, mint := range []string{
		"MintDDDD4444444444444444444444444444444444",
		"MintEEEE5555555555555555555555555555555555",
	} {
		listings, err := d.Listings(ctx, mint)
		if err != nil {
			t.Fatalf("Listings(%s): %v", mint, err)
		}
		if len(listings) != 0 {
			t.Fatalf("Listings(%s) = %v, want none", mint, listings)
		}
	}
}

func TestRaydiumListingsCachesWithinTTL(t *testing.T) {
	var requests atomic.Int32
	srv := listServer(&requests, `{"official": ["MintAAAA1111111111111111111111111111111111"]}`)
	defer srv.Close()

	now := time.Unix(1000, 0)
	d := NewRaydiumDirectory(srv.URL, time.Minute, logging.NewNop(),
		withDirectoryClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := d.Listings(ctx, "MintAAAA1111111111111111111111111111111111"); err != nil {
			t.Fatalf("Listings: %v", err)
		}
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("requests = %d within TTL, want 1", n)
	}

	now = now.Add(2 * time.Minute)
	if _, err := d.Listings(ctx, "MintAAAA1111111111111111111111111111111111"); err != nil {
		t.Fatalf("Listings after TTL: %v", err)
	}
	if n := requests.Load(); n != 2 {
		t.Fatalf("requests = %d after TTL expiry, want 2", n)
	}
}

func TestRaydiumListingsStaleCacheOnRefreshFailure(t *testing.T) {
	var requests atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"official": ["MintAAAA1111111111111111111111111111111111"]}`))
	}))
	defer srv.Close()

	now := time.Unix(1000, 0)
	d := NewRaydiumDirectory(srv.URL, time.Minute, logging.NewNop(),
		withDirectoryClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := d.Listings(ctx, "MintAAAA1111111111111111111111111111111111"); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	failing.Store(true)
	now = now.Add(2 * time.Minute)

	listings, err := d.Listings(ctx, "MintAAAA1111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("Listings with stale cache: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("listings = %v, want stale-cache hit", listings)
	}
}

func TestRaydiumListingsErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewRaydiumDirectory(srv.URL, time.Minute, logging.NewNop())
	if _, err := d.Listings(context.Background(), "MintAAAA1111111111111111111111111111111111"); err == nil {
		t.Fatal("expected error when first fetch fails")
	}
}

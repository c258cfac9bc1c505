package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"solana-mint-sniffer/internal/logging"
	"solana-mint-sniffer/internal/observability"
)

// Directory answers which DEXs list a given mint.
type Directory interface {
	// Listings returns the venue names listing the mint, empty when none.
	Listings(ctx context.Context, mint string) ([]string, error)
}

// Default Raydium directory configuration.
const (
	DefaultRaydiumURL = "https://api.raydium.io/v2/sdk/token/solana"
	DefaultCacheTTL   = 5 * time.Minute
)

const raydiumVenue = "Raydium"

// RaydiumDirectory checks membership in Raydium's official token list. The
// list is fetched over HTTP and cached for a TTL so per-mint checks do not
// hammer the endpoint.
type RaydiumDirectory struct {
	url    string
	ttl    time.Duration
	client *http.Client
	log    logging.Logger

	mu        sync.Mutex
	official  map[string]struct{}
	fetchedAt time.Time
	now       func() time.Time
}

// DirectoryOption configures a RaydiumDirectory.
type DirectoryOption func(*RaydiumDirectory)

// WithDirectoryHTTPClient sets a custom http.Client.
func WithDirectoryHTTPClient(client *http.Client) DirectoryOption {
	return func(d *RaydiumDirectory) {
		d.client = client
	}
}

func withDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *RaydiumDirectory) {
		d.now = now
	}
}

// NewRaydiumDirectory creates a directory. url and ttl fall back to the
// defaults when zero.
func NewRaydiumDirectory(url string, ttl time.Duration, log logging.Logger, opts ...DirectoryOption) *RaydiumDirectory {
	if url == "" {
		url = DefaultRaydiumURL
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	d := &RaydiumDirectory{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Listings reports whether the mint appears in Raydium's official list.
func (d *RaydiumDirectory) Listings(ctx context.Context, mint string) ([]string, error) {
	official, err := d.officialSet(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := official[mint]; ok {
		observability.RecordListingHit(raydiumVenue)
		return []string{raydiumVenue}, nil
	}
	return nil, nil
}

// officialSet returns the cached official list, refreshing it when expired.
// A failed refresh falls back to a stale cache when one exists.
func (d *RaydiumDirectory) officialSet(ctx context.Context) (map[string]struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.official != nil && d.now().Sub(d.fetchedAt) < d.ttl {
		return d.official, nil
	}

	official, err := d.fetchList(ctx)
	if err != nil {
		if d.official != nil {
			d.log.Warnf("token list refresh failed, using stale cache: %v", err)
			return d.official, nil
		}
		return nil, err
	}

	d.official = official
	d.fetchedAt = d.now()
	d.log.Debugf("token list refreshed, %d official mints", len(official))
	return d.official, nil
}

// tokenListEntry tolerates both shapes the endpoint has used: a bare mint
// string or an object carrying the mint under "mint" or "address".
type tokenListEntry struct {
	mint string
}

func (e *tokenListEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.mint = s
		return nil
	}

	var obj struct {
		Mint    string `json:"mint"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Mint != "" {
		e.mint = obj.Mint
	} else {
		e.mint = obj.Address
	}
	return nil
}

func (d *RaydiumDirectory) fetchList(ctx context.Context) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch token list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token list endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token list: %w", err)
	}

	var list struct {
		Official []tokenListEntry `json:"official"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode token list: %w", err)
	}

	official := make(map[string]struct{}, len(list.Official))
	for _, entry := range list.Official {
		if entry.mint != "" {
			official[entry.mint] = struct{}{}
		}
	}
	return official, nil
}

package sniffer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"solana-mint-sniffer/internal/classify"
	"solana-mint-sniffer/internal/logging"
	"solana-mint-sniffer/internal/ratelimit"
	"solana-mint-sniffer/internal/solana"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

type mintEvent struct {
	mint string
	slot int64
}

type captureSink struct {
	events chan mintEvent
}

func (s *captureSink) EnqueueMint(ctx context.Context, mint string, slot int64) error {
	select {
	case s.events <- mintEvent{mint: mint, slot: slot}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestChannel(cfg ChannelConfig, dialer solana.Dialer, sink MintSink) *Channel {
	if cfg.ProgramID == "" {
		cfg.ProgramID = "TestProgram"
	}
	return NewChannel(cfg, dialer, ratelimit.New(100), classify.New(), sink, logging.NewNop())
}

func TestChannelSubscribeAndNotify(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req struct {
			ID     uint64        `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("method = %q, want logsSubscribe", req.Method)
		}
		if len(req.Params) != 2 || req.Params[0] != "all" {
			t.Errorf("params = %v, want [\"all\", {...}]", req.Params)
		}

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": 555,
		})
		conn.WriteMessage(websocket.TextMessage, []byte(`{
			"jsonrpc": "2.0",
			"method": "logsNotification",
			"params": {
				"subscription": 555,
				"result": {
					"context": {"slot": 42},
					"value": {
						"signature": "sig",
						"err": null,
						"logs": [
							"Program log: Instruction: InitializeMint",
							"Program log: Mint: `+testMint+`"
						]
					}
				}
			}
		}`))

		// Keep the session open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	sink := &captureSink{events: make(chan mintEvent, 1)}
	ch := newTestChannel(ChannelConfig{Endpoint: wsURL}, solana.NewWSDialer(nil), sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- ch.Run(ctx) }()

	select {
	case got := <-sink.events:
		if got.mint != testMint {
			t.Fatalf("mint = %q, want %q", got.mint, testMint)
		}
		if got.slot != 42 {
			t.Fatalf("slot = %d, want 42", got.slot)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no mint delivered within 5s")
	}

	cancel()
	select {
	case err := <-runDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

// fakeConn is a scriptable connection for reconnect tests.
type fakeConn struct {
	messages  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	pings     atomic.Int32
}

func newFakeConn(messages ...[]byte) *fakeConn {
	c := &fakeConn{
		messages: make(chan []byte, len(messages)+1),
		closed:   make(chan struct{}),
	}
	for _, m := range messages {
		c.messages <- m
	}
	return c
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
		return nil
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m := <-c.messages:
		return m, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Ping() error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
		c.pings.Add(1)
		return nil
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials []time.Time
	build func(attempt int) *fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string) (solana.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	attempt := len(d.dials)
	d.dials = append(d.dials, time.Now())

	conn := d.build(attempt)
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) snapshot() ([]*fakeConn, []time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeConn(nil), d.conns...), append([]time.Time(nil), d.dials...)
}

func notificationJSON(slot int64, logs ...string) []byte {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "logsNotification",
		"params": map[string]interface{}{
			"subscription": 1,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": slot},
				"value": map[string]interface{}{
					"signature": "sig",
					"err":       nil,
					"logs":      logs,
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func TestChannelReconnects(t *testing.T) {
	dialer := &fakeDialer{
		build: func(attempt int) *fakeConn {
			conn := newFakeConn()
			if attempt == 0 {
				// First session dies immediately.
				conn.Close()
				return conn
			}
			conn.messages <- notificationJSON(7,
				"Program log: Instruction: InitializeMint",
				"Program log: Mint: "+testMint)
			return conn
		},
	}

	sink := &captureSink{events: make(chan mintEvent, 1)}
	ch := newTestChannel(ChannelConfig{
		Endpoint:       "ws://fake",
		ReconnectDelay: 20 * time.Millisecond,
	}, dialer, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	select {
	case got := <-sink.events:
		if got.mint != testMint || got.slot != 7 {
			t.Fatalf("event = %+v, want %s at slot 7", got, testMint)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no mint delivered after reconnect")
	}

	conns, dials := dialer.snapshot()
	if len(dials) < 2 {
		t.Fatalf("dials = %d, want at least 2", len(dials))
	}
	if gap := dials[1].Sub(dials[0]); gap < 20*time.Millisecond {
		t.Fatalf("redial after %s, want at least the 20ms backoff", gap)
	}
	if !conns[0].isClosed() {
		t.Fatal("first connection not closed before redial")
	}
}

func TestChannelBackoffGrowsToCap(t *testing.T) {
	dialer := &fakeDialer{
		build: func(int) *fakeConn {
			conn := newFakeConn()
			conn.Close() // every session fails straight away
			return conn
		},
	}

	sink := &captureSink{events: make(chan mintEvent, 1)}
	ch := newTestChannel(ChannelConfig{
		Endpoint:          "ws://fake",
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 25 * time.Millisecond,
	}, dialer, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		_, dials := dialer.snapshot()
		if len(dials) >= 4 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("fewer than 4 dials within 5s")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	// Delays double from the initial value and stop at the cap; timer waits
	// are lower bounds, so only those are asserted.
	_, dials := dialer.snapshot()
	wantAtLeast := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		25 * time.Millisecond,
	}
	for i, want := range wantAtLeast {
		if gap := dials[i+1].Sub(dials[i]); gap < want {
			t.Fatalf("gap %d = %s, want at least %s", i, gap, want)
		}
	}
}

func TestChannelClosesConnOnCancel(t *testing.T) {
	dialer := &fakeDialer{
		build: func(int) *fakeConn { return newFakeConn() },
	}

	sink := &captureSink{events: make(chan mintEvent, 1)}
	ch := newTestChannel(ChannelConfig{Endpoint: "ws://fake"}, dialer, sink)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- ch.Run(ctx) }()

	// Wait for the session to be up, then cancel while the read blocks.
	deadline := time.Now().Add(5 * time.Second)
	for {
		conns, _ := dialer.snapshot()
		if len(conns) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no dial within 5s")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-runDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	conns, _ := dialer.snapshot()
	if !conns[0].isClosed() {
		t.Fatal("connection left open after cancellation")
	}
}

func TestChannelHeartbeat(t *testing.T) {
	dialer := &fakeDialer{
		build: func(int) *fakeConn { return newFakeConn() },
	}

	sink := &captureSink{events: make(chan mintEvent, 1)}
	ch := newTestChannel(ChannelConfig{
		Endpoint:          "ws://fake",
		HeartbeatInterval: 10 * time.Millisecond,
	}, dialer, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		conns, _ := dialer.snapshot()
		if len(conns) > 0 && conns[0].pings.Load() >= 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("fewer than 2 pings within 5s")
		}
		time.Sleep(time.Millisecond)
	}
}

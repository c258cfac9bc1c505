// Package sniffer maintains resilient logsSubscribe channels against a
// Solana WebSocket endpoint and feeds discovered mint addresses into an
// enrichment sink.
package sniffer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"solana-mint-sniffer/internal/classify"
	"solana-mint-sniffer/internal/logging"
	"solana-mint-sniffer/internal/observability"
	"solana-mint-sniffer/internal/ratelimit"
	"solana-mint-sniffer/internal/solana"
)

// Default channel configuration values.
const (
	DefaultReconnectDelay         = 5 * time.Second
	DefaultMaxReconnectDelay      = 60 * time.Second
	DefaultHeartbeatInterval      = 30 * time.Second
	DefaultRateLimitRetry         = 1 * time.Second
	DefaultMaxConsecutiveFailures = 10
)

// MintSink receives mint addresses discovered on a channel. Implementations
// may block when downstream queues are full; they must honor ctx.
type MintSink interface {
	EnqueueMint(ctx context.Context, mint string, slot int64) error
}

// ChannelConfig configures one subscription channel.
type ChannelConfig struct {
	Endpoint  string
	ProgramID string

	// ReconnectDelay is the initial delay before re-dialing; it doubles on
	// each consecutive failure up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	HeartbeatInterval time.Duration

	// RateLimitRetry is how long a subscribe attempt waits after the rate
	// limiter denies it.
	RateLimitRetry time.Duration

	// MaxConsecutiveFailures is how many back-to-back failed sessions raise
	// an alarm. The channel keeps retrying either way.
	MaxConsecutiveFailures int
}

func (c *ChannelConfig) applyDefaults() {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.RateLimitRetry <= 0 {
		c.RateLimitRetry = DefaultRateLimitRetry
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
}

// Channel is one self-healing logsSubscribe subscription for a single
// program id. It owns its connection lifecycle: dial, subscribe, read,
// heartbeat, and reconnect with capped exponential backoff.
type Channel struct {
	cfg        ChannelConfig
	dialer     solana.Dialer
	limiter    *ratelimit.Limiter
	classifier *classify.Classifier
	sink       MintSink
	log        logging.Logger

	requestID atomic.Uint64
}

// NewChannel creates a channel. The limiter is shared across channels so
// subscribe traffic from the whole process stays under the endpoint budget.
func NewChannel(
	cfg ChannelConfig,
	dialer solana.Dialer,
	limiter *ratelimit.Limiter,
	classifier *classify.Classifier,
	sink MintSink,
	log logging.Logger,
) *Channel {
	cfg.applyDefaults()
	return &Channel{
		cfg:        cfg,
		dialer:     dialer,
		limiter:    limiter,
		classifier: classifier,
		sink:       sink,
		log:        log.WithField("program", cfg.ProgramID),
	}
}

// Run drives the subscription until ctx is cancelled. Every session failure
// is survived: the channel closes the old connection, waits out the backoff
// delay, and dials again. Returns ctx.Err() on cancellation.
func (ch *Channel) Run(ctx context.Context) error {
	delay := ch.cfg.ReconnectDelay
	failures := 0

	for {
		healthy, err := ch.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if healthy {
			// The session got at least one message through, so the
			// endpoint is reachable. Start the backoff ladder over.
			delay = ch.cfg.ReconnectDelay
			failures = 0
		}

		failures++
		if failures == ch.cfg.MaxConsecutiveFailures {
			ch.log.Errorf("subscription failed %d times in a row, still retrying: %v",
				failures, err)
			observability.RecordReconnectAlarm(ch.cfg.ProgramID)
		}

		ch.log.Warnf("connection lost, reconnecting in %s: %v", delay, err)
		observability.RecordReconnect(ch.cfg.ProgramID)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > ch.cfg.MaxReconnectDelay {
			delay = ch.cfg.MaxReconnectDelay
		}
	}
}

// runOnce runs one connection session: dial, subscribe, then read until the
// connection fails. healthy reports whether at least one message was read,
// which distinguishes a dying endpoint from a flaky session.
func (ch *Channel) runOnce(ctx context.Context) (healthy bool, err error) {
	conn, err := ch.dialer.Dial(ctx, ch.cfg.Endpoint)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", ch.cfg.Endpoint, err)
	}

	// Closing the connection is the only way to unblock a pending read, so
	// a watcher translates ctx cancellation into a close. The done channel
	// ends the watcher and the heartbeat when the session exits on its own.
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := ch.subscribe(ctx, conn); err != nil {
		return false, err
	}

	go ch.heartbeat(conn, done)

	return ch.receive(ctx, conn)
}

// subscribe sends the logsSubscribe request, waiting out the rate limiter
// first. Confirmation arrives asynchronously and is handled in receive.
func (ch *Channel) subscribe(ctx context.Context, conn solana.Conn) error {
	for !ch.limiter.TryAcquire() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ch.cfg.RateLimitRetry):
		}
	}

	req := solana.NewLogsSubscribeRequest(ch.requestID.Add(1), ch.cfg.ProgramID)
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
	}

	observability.RecordSubscribe(ch.cfg.ProgramID)
	ch.log.Infof("subscribed to logs mentioning %s", ch.cfg.ProgramID)
	return nil
}

// heartbeat pings the connection at the configured interval. A failed ping
// only stops the heartbeat: the read loop notices the dead connection on its
// own and triggers the reconnect.
func (ch *Channel) heartbeat(conn solana.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(ch.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				ch.log.Warnf("heartbeat ping failed: %v", err)
				return
			}
			ch.log.Debugf("heartbeat ping sent")
		}
	}
}

// receive reads and dispatches messages until the connection fails.
func (ch *Channel) receive(ctx context.Context, conn solana.Conn) (healthy bool, err error) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return healthy, ctx.Err()
			}
			return healthy, fmt.Errorf("read message: %w", err)
		}
		healthy = true

		msg := solana.DecodeMessage(raw)
		switch msg.Kind {
		case solana.MessageSubscribeResult:
			ch.log.Infof("subscription confirmed, id=%d", msg.SubscriptionID)

		case solana.MessageNotification:
			observability.RecordNotification(ch.cfg.ProgramID)
			ch.handleNotification(ctx, msg.Notification)

		case solana.MessageError:
			// Endpoint-side errors do not invalidate the subscription.
			ch.log.Errorf("endpoint error %d: %s", msg.Err.Code, msg.Err.Message)

		default:
			ch.log.Debugf("unrecognized message: %s", string(msg.Raw))
		}
	}
}

func (ch *Channel) handleNotification(ctx context.Context, notif *solana.LogsNotification) {
	event := ch.classifier.Classify(classify.LogBatch{
		Slot:  notif.Slot,
		Lines: notif.Logs,
	})

	switch event.Kind {
	case classify.EventMintCreated:
		ch.log.Infof("InitializeMint found in slot %d", notif.Slot)
		if event.Mint == "" {
			ch.log.Warnf("could not extract mint address from logs (slot %d, signature %s)",
				notif.Slot, notif.Signature)
			observability.RecordParseFailure()
			return
		}
		observability.RecordMintDiscovered()
		if err := ch.sink.EnqueueMint(ctx, event.Mint, notif.Slot); err != nil {
			ch.log.Warnf("dropping mint %s: %v", event.Mint, err)
		}

	case classify.EventInstruction:
		ch.log.Debugf("instruction %s in slot %d", event.Instruction, notif.Slot)
	}
}

package sniffer

import (
	"context"
	"sync"

	"solana-mint-sniffer/internal/logging"
)

// Runner is the part of Channel the registry drives. Narrowed for tests.
type Runner interface {
	Run(ctx context.Context) error
}

// ChannelFactory builds the channel for one program id.
type ChannelFactory func(programID string) Runner

// Registry runs one subscription channel per program id and manages their
// lifecycles. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	factory  ChannelFactory
	channels map[string]context.CancelFunc
	wg       sync.WaitGroup
	log      logging.Logger
	stopped  bool
}

// NewRegistry creates an empty registry.
func NewRegistry(factory ChannelFactory, log logging.Logger) *Registry {
	return &Registry{
		factory:  factory,
		channels: make(map[string]context.CancelFunc),
		log:      log,
	}
}

// Add starts a channel for the program id. Adding an id that is already
// running is a no-op. The channel runs until Remove, StopAll, or ctx
// cancellation.
func (r *Registry) Add(ctx context.Context, programID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		r.log.Warnf("registry stopped, not adding sniffer for %s", programID)
		return
	}
	if _, ok := r.channels[programID]; ok {
		r.log.Warnf("sniffer for %s already running", programID)
		return
	}

	chCtx, cancel := context.WithCancel(ctx)
	r.channels[programID] = cancel

	ch := r.factory(programID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.remove(programID)
		if err := ch.Run(chCtx); err != nil && chCtx.Err() == nil {
			r.log.Errorf("sniffer for %s exited: %v", programID, err)
		}
	}()

	r.log.Infof("started sniffer for %s", programID)
}

// Remove stops the channel for the program id. Removing an id that is not
// running is a no-op.
func (r *Registry) Remove(programID string) {
	r.mu.Lock()
	cancel, ok := r.channels[programID]
	r.mu.Unlock()

	if !ok {
		r.log.Warnf("no sniffer running for %s", programID)
		return
	}

	cancel()
	r.log.Infof("stopping sniffer for %s", programID)
}

// remove drops the bookkeeping entry once a channel goroutine exits.
func (r *Registry) remove(programID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cancel, ok := r.channels[programID]; ok {
		cancel()
		delete(r.channels, programID)
	}
}

// Programs returns the ids of currently running channels.
func (r *Registry) Programs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	return ids
}

// StopAll stops every channel and blocks until all of them have exited.
// The registry accepts no new channels afterwards.
func (r *Registry) StopAll() {
	r.mu.Lock()
	r.stopped = true
	for _, cancel := range r.channels {
		cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Infof("all sniffers stopped")
}

package enrich

import (
	"context"
	"fmt"
	"sync"

	"solana-mint-sniffer/internal/domain"
	"solana-mint-sniffer/internal/logging"
	"solana-mint-sniffer/internal/observability"
)

// Default pipeline configuration values.
const (
	DefaultQueueSize = 1024
	DefaultWorkers   = 1
)

// Reporter consumes fully enriched tokens at the end of the pipeline.
type Reporter interface {
	Report(info *domain.TokenInfo)
}

// PipelineConfig configures the enrichment pipeline.
type PipelineConfig struct {
	QueueSize      int
	InfoWorkers    int
	ListingWorkers int

	// DedupMints drops mint addresses that were already enqueued once.
	// Off by default: repeated creations are reported again.
	DedupMints bool
}

func (c *PipelineConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.InfoWorkers <= 0 {
		c.InfoWorkers = DefaultWorkers
	}
	if c.ListingWorkers <= 0 {
		c.ListingWorkers = DefaultWorkers
	}
}

type mintJob struct {
	mint string
	slot int64
}

// Pipeline is the two-stage enrichment pipeline. Stage one resolves on-chain
// facts for each discovered mint; stage two checks DEX listings and hands
// the result to the reporter. Each TokenInfo is owned by exactly one worker
// at a time, so no field needs locking.
type Pipeline struct {
	cfg       PipelineConfig
	fetcher   *Fetcher
	directory Directory
	reporter  Reporter
	log       logging.Logger

	mints chan mintJob
	infos chan *domain.TokenInfo

	stageA sync.WaitGroup
	stageB sync.WaitGroup

	// closeMu lets EnqueueMint hold a read lock across the channel send so
	// Stop cannot close the channel under it.
	closeMu sync.RWMutex
	closed  bool

	seenMu sync.Mutex
	seen   map[string]struct{}
}

// NewPipeline creates a pipeline. Call Start before enqueueing.
func NewPipeline(
	cfg PipelineConfig,
	fetcher *Fetcher,
	directory Directory,
	reporter Reporter,
	log logging.Logger,
) *Pipeline {
	cfg.applyDefaults()
	p := &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		directory: directory,
		reporter:  reporter,
		log:       log,
		mints:     make(chan mintJob, cfg.QueueSize),
		infos:     make(chan *domain.TokenInfo, cfg.QueueSize),
	}
	if cfg.DedupMints {
		p.seen = make(map[string]struct{})
	}
	return p
}

// Start launches the workers. ctx cancellation aborts in-flight work;
// orderly drain goes through Stop instead.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.cfg.InfoWorkers; i++ {
		p.stageA.Add(1)
		go p.infoWorker(ctx)
	}

	go func() {
		p.stageA.Wait()
		close(p.infos)
	}()

	for i := 0; i < p.cfg.ListingWorkers; i++ {
		p.stageB.Add(1)
		go p.listingWorker(ctx)
	}

	p.log.Infof("enrichment pipeline started (%d info workers, %d listing workers)",
		p.cfg.InfoWorkers, p.cfg.ListingWorkers)
}

// EnqueueMint submits a discovered mint. Blocks while the intake queue is
// full; honors ctx. Returns an error after Stop.
func (p *Pipeline) EnqueueMint(ctx context.Context, mint string, slot int64) error {
	if p.isDuplicate(mint) {
		p.log.Debugf("mint %s already seen, skipping", mint)
		observability.RecordDuplicateMint()
		return nil
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return fmt.Errorf("pipeline stopped")
	}

	select {
	case p.mints <- mintJob{mint: mint, slot: slot}:
		observability.UpdateQueueDepth("mints", len(p.mints))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) isDuplicate(mint string) bool {
	if p.seen == nil {
		return false
	}
	p.seenMu.Lock()
	defer p.seenMu.Unlock()

	if _, ok := p.seen[mint]; ok {
		return true
	}
	p.seen[mint] = struct{}{}
	return false
}

// Stop closes the intake and blocks until both stages have drained. Call
// only after the producers are stopped.
func (p *Pipeline) Stop() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.mints)
	p.closeMu.Unlock()

	p.stageB.Wait()
	p.log.Infof("enrichment pipeline drained")
}

func (p *Pipeline) infoWorker(ctx context.Context) {
	defer p.stageA.Done()

	for job := range p.mints {
		observability.UpdateQueueDepth("mints", len(p.mints))

		info := p.fetcher.Fetch(ctx, job.mint, job.slot)

		select {
		case p.infos <- info:
			observability.UpdateQueueDepth("infos", len(p.infos))
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) listingWorker(ctx context.Context) {
	defer p.stageB.Done()

	for info := range p.infos {
		observability.UpdateQueueDepth("infos", len(p.infos))

		listings, err := p.directory.Listings(ctx, info.Mint)
		if err != nil {
			p.log.Warnf("listing check for %s failed: %v", info.Mint, err)
			observability.RecordEnrichmentError("listings")
		} else {
			info.DexListings = listings
		}

		p.reporter.Report(info)
		observability.RecordTokenReported()
	}
}

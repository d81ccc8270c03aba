package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/engine"
	"github.com/stakewatch/stakewatch/internal/enrich"
	"github.com/stakewatch/stakewatch/internal/metrics"
	"github.com/stakewatch/stakewatch/internal/registry"
	"github.com/stakewatch/stakewatch/internal/router"
	"github.com/stakewatch/stakewatch/internal/storage"
	"github.com/stakewatch/stakewatch/internal/watcher"
)

// Client combines the chain access both pipeline stages need.
type Client interface {
	watcher.BlockClient
	registry.Caller
}

// Collaborators are the external services the enrichment stage
// consumes.
type Collaborators struct {
	Names     enrich.NameResolver
	Charts    enrich.ChartRenderer
	Templates enrich.TemplateRenderer
}

// State is one pipeline generation: registry, subscription set, and
// the enricher bound to them. It is replaced wholesale on
// reinitialization, never mutated field by field mid-tick.
type State struct {
	Registry *registry.Registry
	Set      *watcher.Set
	Enricher *enrich.Enricher
}

// Supervisor drives the pipeline on a fixed tick, isolating failures
// and rebuilding state when the pipeline turns unhealthy. The dedup
// engine outlives reinitialization so a rebuilt subscription set does
// not re-deliver the replayed look-back window.
type Supervisor struct {
	cfg     *config.Config
	client  Client
	store   *storage.Store
	router  *router.Router
	collab  Collaborators
	engine  *engine.Engine
	log     *slog.Logger
	mtr     *metrics.Metrics
	state   *State
	healthy bool
}

// New builds the supervisor and performs the initial pipeline build;
// an initial build failure is fatal to startup. Recent journal entries
// seed the dedup cache so a restart does not re-send the replayed
// window.
func New(ctx context.Context, cfg *config.Config, client Client, store *storage.Store, rt *router.Router, collab Collaborators, log *slog.Logger, mtr *metrics.Metrics) (*Supervisor, error) {
	s := &Supervisor{
		cfg:    cfg,
		client: client,
		store:  store,
		router: rt,
		collab: collab,
		engine: engine.New(),
		log:    log,
		mtr:    mtr,
	}

	if deliveries, err := store.Deliveries(ctx, engine.SeenCapacity); err == nil {
		keys := make([]string, 0, len(deliveries))
		for i := len(deliveries) - 1; i >= 0; i-- { // journal is newest first
			keys = append(keys, deliveries[i].Key)
		}
		s.engine.Seed(keys)
	}

	state, err := s.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline: %w", err)
	}
	s.state = state
	s.healthy = true
	return s, nil
}

// Healthy reports the pipeline state for the health endpoint.
func (s *Supervisor) Healthy() bool { return s.healthy }

// Run ticks the pipeline until the context is canceled. An in-flight
// tick is bounded by a deadline just under the interval so a hanging
// call surfaces as an unhealthy transition instead of a stall.
func (s *Supervisor) Run(ctx context.Context) error {
	interval := s.cfg.Global.Tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("supervisor stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one supervisor step: a full poll→dedup→enrich→route pass
// when healthy, a reinitialization attempt when not. Errors are logged
// and absorbed; nothing propagates past the tick.
func (s *Supervisor) Tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.tickDeadline())
	defer cancel()

	if !s.healthy {
		state, err := s.build(tickCtx)
		if err != nil {
			s.mtr.Errors()
			s.log.Error("reinitialization failed", "error", err)
			return
		}
		s.state = state
		s.healthy = true
		s.mtr.Reinits()
		s.log.Info("pipeline reinitialized")
		return
	}

	if err := s.runOnce(tickCtx); err != nil {
		s.state = nil
		s.healthy = false
		s.mtr.Errors()
		s.log.Error("tick failed, pipeline unhealthy", "error", err)
	}
}

func (s *Supervisor) tickDeadline() time.Duration {
	interval := s.cfg.Global.Tick()
	deadline := interval - time.Second
	if deadline <= 0 {
		deadline = interval
	}
	return deadline
}

// build constructs a fresh pipeline generation from configuration. The
// start block replays a look-back window behind the persisted cursor;
// the dedup cache suppresses anything already delivered.
func (s *Supervisor) build(ctx context.Context) (*State, error) {
	reg, err := registry.New(s.client, common.HexToAddress(s.cfg.Global.LookupAddress), s.cfg.Global.ABIDir)
	if err != nil {
		return nil, err
	}

	start, err := s.startBlock(ctx)
	if err != nil {
		return nil, err
	}

	set, err := watcher.Build(ctx, s.client, reg, s.cfg.Contracts, start, s.cfg.Global.Confirmations)
	if err != nil {
		return nil, err
	}

	enricher := enrich.New(reg, s.collab.Names, s.collab.Charts, s.collab.Templates,
		s.cfg.Global.ELExplorer, s.cfg.Global.CLExplorer)

	return &State{Registry: reg, Set: set, Enricher: enricher}, nil
}

func (s *Supervisor) startBlock(ctx context.Context) (uint64, error) {
	tip := uint64(0)
	if cursor, ok, err := s.store.GetCursor(ctx, storage.CursorID); err != nil {
		return 0, err
	} else if ok {
		tip = cursor
	} else {
		header, err := s.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("latest header: %w", err)
		}
		tip = header.Number.Uint64()
	}

	if tip <= s.cfg.Global.LookbackBlocks {
		return 0, nil
	}
	return tip - s.cfg.Global.LookbackBlocks, nil
}

func (s *Supervisor) runOnce(ctx context.Context) error {
	batches, latest, err := s.state.Set.Poll(ctx)
	if err != nil {
		return err
	}

	observed := 0
	for _, b := range batches {
		observed += len(b.Events)
	}
	s.mtr.EventsObserved(observed)

	scored := s.engine.Order(batches)
	if observed > 0 {
		s.log.Debug("poll complete", "observed", observed, "pending", len(scored))
	}

	msgs := make([]*enrich.Message, 0, len(scored))
	for _, sc := range scored {
		msg, err := s.state.Enricher.Enrich(ctx, sc)
		if err != nil {
			// One bad message never aborts the batch.
			s.mtr.MessagesDropped()
			s.log.Error("enrichment failed, skipping message", "display", sc.Event.Display, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}

	delivered := s.router.Dispatch(ctx, msgs)
	for _, msg := range delivered {
		s.mtr.MessagesSent()
		if err := s.store.RecordDelivery(ctx, storage.Delivery{
			Key:     msg.Key,
			Display: msg.Display,
			TxHash:  msg.TxHash,
			Block:   msg.Score.Block,
		}); err != nil {
			s.log.Warn("journal write failed", "error", err)
		}
	}

	// latest is zero only when the chain is still shorter than the
	// confirmation depth; never move the cursor backwards for that.
	if latest > 0 {
		if err := s.store.UpsertCursor(ctx, storage.CursorID, latest); err != nil {
			s.log.Warn("cursor write failed", "error", err)
		}
	}
	return nil
}

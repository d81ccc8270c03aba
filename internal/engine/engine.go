package engine

import (
	"sort"
	"strconv"

	"github.com/stakewatch/stakewatch/internal/watcher"
)

// SeenCapacity bounds the dedup cache.
const SeenCapacity = 1000

// Score orders events for delivery: oldest block first, then earliest
// position within the block. A tuple avoids the classic
// block+txIndex/1000 float, which breaks at 1000 transactions a block.
type Score struct {
	Block   uint64
	TxIndex uint
}

// Less reports whether s sorts before o.
func (s Score) Less(o Score) bool {
	if s.Block != o.Block {
		return s.Block < o.Block
	}
	return s.TxIndex < o.TxIndex
}

// Scored pairs a raw event with its delivery score.
type Scored struct {
	Event watcher.RawEvent
	Score Score
}

// Engine deduplicates and orders poll batches. Its only long-lived
// state is the seen set; everything else lives for one tick.
type Engine struct {
	seen *SeenSet
}

// New builds an engine with the standard seen-set capacity.
func New() *Engine {
	return &Engine{seen: NewSeenSet(SeenCapacity)}
}

// SeenLen exposes the current dedup cache size.
func (e *Engine) SeenLen() int { return e.seen.Len() }

// Seed preloads delivery keys into the dedup cache. Keys should be
// ordered oldest first so eviction keeps the most recent ones.
func (e *Engine) Seed(keys []string) {
	for _, k := range keys {
		e.seen.Add(k)
	}
}

// Order merges one tick's batches into a single delivery-ordered
// sequence, dropping entries already seen.
//
// Each batch is walked newest-first: when a reorg re-announces the
// same logical event under a fresh transaction, the most recently
// mined version wins and the older near-duplicate is discarded by the
// seen check. Delivery order is the opposite, ascending by score.
func (e *Engine) Order(batches []watcher.Batch) []Scored {
	pending := []Scored{}
	for _, b := range batches {
		for i := len(b.Events) - 1; i >= 0; i-- {
			ev := b.Events[i]
			key := DeliveryKey(ev)
			if e.seen.Contains(key) {
				continue
			}
			e.seen.Add(key)
			pending = append(pending, Scored{
				Event: ev,
				Score: Score{Block: ev.BlockNumber, TxIndex: ev.TxIndex},
			})
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Score.Less(pending[j].Score)
	})
	return pending
}

// DeliveryKey identifies one delivered log entry. It includes the log
// index so two distinct entries emitted by one transaction are both
// delivered.
func DeliveryKey(ev watcher.RawEvent) string {
	return ev.TxHash.Hex() + ":" + strconv.FormatUint(uint64(ev.LogIndex), 10)
}

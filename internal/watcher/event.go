package watcher

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/registry"
)

// RawEvent is one decoded log entry. Produced by polling, immutable,
// consumed exactly once by the enrichment stage.
type RawEvent struct {
	Contract    *registry.Contract
	Name        string
	Display     string
	Category    config.Category
	Args        map[string]any
	BlockNumber uint64
	TxIndex     uint
	TxHash      common.Hash
	LogIndex    uint
}

// Batch groups one poll's entries for a single subscription, in the
// chronological order the upstream source returned them.
type Batch struct {
	Display string
	Events  []RawEvent
}

package watcher

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/registry"
)

// BlockClient captures the subset of ethclient used by the set.
type BlockClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Subscription owns the filter for one (contract, event type) pair.
// Its low-water mark advances on every poll so the same entry is never
// returned twice by the same filter.
type Subscription struct {
	contract  *registry.Contract
	event     abi.Event
	display   string
	category  config.Category
	fromBlock uint64
}

// Set is the full subscription set for one pipeline generation. It is
// destroyed and rebuilt wholesale on pipeline reinitialization.
type Set struct {
	client        BlockClient
	confirmations uint64
	subs          []*Subscription
}

// Build resolves every configured (contract, event) pair into a live
// subscription starting at startBlock. Any unresolved contract or
// unknown event type fails the whole set; there are no partial sets.
// Polling stays confirmations blocks behind the tip so a shallow reorg
// re-mines its logs above the low-water mark.
func Build(ctx context.Context, client BlockClient, reg *registry.Registry, contracts []config.Contract, startBlock, confirmations uint64) (*Set, error) {
	subs := []*Subscription{}
	for _, ct := range contracts {
		c, err := reg.Load(ctx, ct.Name)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", ct.Name, err)
		}
		for _, ev := range ct.Events {
			abiEvent, ok := c.ABI.Events[ev.Event]
			if !ok {
				return nil, fmt.Errorf("subscribe %s: event %s not in interface", ct.Name, ev.Event)
			}
			subs = append(subs, &Subscription{
				contract:  c,
				event:     abiEvent,
				display:   ev.Display,
				category:  ct.Category,
				fromBlock: startBlock,
			})
		}
	}
	return &Set{client: client, confirmations: confirmations, subs: subs}, nil
}

// Len returns the number of live subscriptions.
func (s *Set) Len() int { return len(s.subs) }

// Poll retrieves new confirmed entries for every subscription since its
// last poll and advances the low-water marks. The scan is capped at the
// confirmed height, tip minus the confirmation depth, so logs a reorg
// could still displace are left for a later poll. Order is
// chronological within one batch, unspecified across batches.
func (s *Set) Poll(ctx context.Context) ([]Batch, uint64, error) {
	latest, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("latest header: %w", err)
	}
	safeHeight := latest.Number.Uint64()
	if s.confirmations > 0 {
		if s.confirmations > safeHeight {
			return nil, 0, nil
		}
		safeHeight -= s.confirmations
	}

	batches := make([]Batch, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.fromBlock > safeHeight {
			continue
		}
		logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(sub.fromBlock),
			ToBlock:   new(big.Int).SetUint64(safeHeight),
			Addresses: []common.Address{sub.contract.Address},
			Topics:    [][]common.Hash{{sub.event.ID}},
		})
		if err != nil {
			return nil, 0, fmt.Errorf("poll %s.%s: %w", sub.contract.Name, sub.event.Name, err)
		}

		events := make([]RawEvent, 0, len(logs))
		for _, lg := range logs {
			if lg.Removed {
				continue
			}
			ev, err := sub.decode(lg)
			if err != nil {
				return nil, 0, err
			}
			events = append(events, ev)
		}
		sub.fromBlock = safeHeight + 1
		batches = append(batches, Batch{Display: sub.display, Events: events})
	}
	return batches, safeHeight, nil
}

func (sub *Subscription) decode(lg types.Log) (RawEvent, error) {
	args := map[string]any{}
	indexed, nonIndexed := splitIndexed(sub.event.Inputs)
	if err := abi.ParseTopicsIntoMap(args, indexed, lg.Topics[1:]); err != nil {
		return RawEvent{}, fmt.Errorf("parse topics %s: %w", sub.event.Name, err)
	}
	if err := nonIndexed.UnpackIntoMap(args, lg.Data); err != nil {
		return RawEvent{}, fmt.Errorf("unpack data %s: %w", sub.event.Name, err)
	}
	return RawEvent{
		Contract:    sub.contract,
		Name:        sub.event.Name,
		Display:     sub.display,
		Category:    sub.category,
		Args:        args,
		BlockNumber: lg.BlockNumber,
		TxIndex:     lg.TxIndex,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
	}, nil
}

func splitIndexed(args abi.Arguments) (indexed abi.Arguments, nonIndexed abi.Arguments) {
	for _, a := range args {
		if a.Indexed {
			indexed = append(indexed, a)
		} else {
			nonIndexed = append(nonIndexed, a)
		}
	}
	return indexed, nonIndexed
}

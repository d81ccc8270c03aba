package health

import (
	"context"
	"fmt"

	"github.com/stakewatch/stakewatch/internal/watcher"
)

// RPCChecker verifies the execution-layer endpoint answers.
type RPCChecker struct {
	client watcher.BlockClient
}

// NewRPCChecker creates a checker for the chain client.
func NewRPCChecker(client watcher.BlockClient) *RPCChecker {
	return &RPCChecker{client: client}
}

// Ping fetches the latest header to prove connectivity.
func (c *RPCChecker) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("rpc client not configured")
	}
	if _, err := c.client.HeaderByNumber(ctx, nil); err != nil {
		return fmt.Errorf("rpc: %w", err)
	}
	return nil
}

// Package cache holds the Redis-backed change notifier for downstream
// consumers (dashboards, export caches). The books core never reads from
// Redis to answer queries; aggregation always reflects persisted state.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const bumpChannel = "books.bump"

// Bumper publishes a notification whenever a firm's books change.
type Bumper struct {
	client *redis.Client
}

// NewBumper instantiates the notifier. A nil client disables publishing.
func NewBumper(client *redis.Client) *Bumper {
	return &Bumper{client: client}
}

// Bump announces that the books of the given firm changed. Failures are
// returned but safe to ignore; the ledger is already committed.
func (b *Bumper) Bump(ctx context.Context, firmID int64) error {
	if b == nil || b.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.client.Publish(ctx, bumpChannel, strconv.FormatInt(firmID, 10)).Err()
}

// Channel returns the pub/sub channel name consumers subscribe to.
func Channel() string {
	return bumpChannel
}

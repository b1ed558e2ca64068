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

// Package acm implements an Agarwal-Cormode-Mishra style quantiles sketch:
// a base buffer plus a sparse set of K-sized levels indexed by a bit
// pattern, with propagate-carry updates and tandem-blocky-merge-and-sample
// compaction. The sketch type is generic over a comparable item type
// parameterized by a LessFn/ItemSerde pair, built via functional-option
// construction, with a sorted-view auxiliary produced by a blocky tandem
// merge sort.
package acm

import (
	"math"

	"github.com/quantkit/quantkit/common"
	"github.com/quantkit/quantkit/internal/acmerr"
)

const (
	minK = 2
	maxK = 1 << 15
)

// Sketch is the generic quantiles summary. T is compared via less and
// (de)serialized via serde; the doubles-specialized constructor below
// (NewDoublesSketch) wires in the float64 ordering and the legacy
// wire-compatible double codec.
type Sketch[T comparable] struct {
	k uint16
	n uint64

	bitPattern uint64
	baseBuffer []T
	bbCount    uint32
	levels     map[uint8][]T

	hasMin  bool
	minItem T
	maxItem T

	less   common.LessFn[T]
	serde  common.ItemSerde[T]
	rng    *common.Rng
	skipFn func(T) bool

	readOnly bool

	// scratchMerge and scratchCarry back the propagate-carry cascade's
	// per-level merge/subsample steps (see compress/injectCarry in
	// update.go). They are grown once to 2K capacity and reused across
	// every Update, instead of allocating a fresh merge buffer and a
	// fresh subsample buffer for each occupied level the carry cascades
	// through.
	scratchMerge []T
	scratchCarry []T
}

// Option configures a newly constructed Sketch.
type Option[T comparable] func(*Sketch[T])

// WithSeed installs an explicit RNG seed, overriding the process-wide
// default generator, for reproducible test runs.
func WithSeed[T comparable](seed uint64) Option[T] {
	return func(s *Sketch[T]) {
		s.rng = common.NewRng(seed)
	}
}

// WithSkipFn installs a predicate that silences updates for which it
// returns true without mutating sketch state. The doubles constructor uses
// this to implement "NaN is not an error; it is silently ignored".
func WithSkipFn[T comparable](fn func(T) bool) Option[T] {
	return func(s *Sketch[T]) {
		s.skipFn = fn
	}
}

// WithRng installs an already-constructed generator, used internally when
// a derived sketch (a downsampled copy, a deep copy) needs an independent
// child stream split from its parent's Rng rather than a fresh seed.
func WithRng[T comparable](rng *common.Rng) Option[T] {
	return func(s *Sketch[T]) {
		s.rng = rng
	}
}

func checkK(k uint16) error {
	if k < minK || k > maxK {
		return acmerr.New(acmerr.InvalidArgument, "K must be in [2, 32768]")
	}
	return nil
}

func newSketch[T comparable](k uint16, less common.LessFn[T], serde common.ItemSerde[T], opts ...Option[T]) (*Sketch[T], error) {
	if err := checkK(k); err != nil {
		return nil, err
	}
	s := &Sketch[T]{
		k:      k,
		levels: make(map[uint8][]T),
		less:   less,
		serde:  serde,
		rng:    common.DefaultRng(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewItemsSketch builds a generic item-typed sketch over T, ordered by
// less and serialized on the wire via serde.
func NewItemsSketch[T comparable](k uint16, less common.LessFn[T], serde common.ItemSerde[T], opts ...Option[T]) (*Sketch[T], error) {
	return newSketch(k, less, serde, opts...)
}

// NewDoublesSketch builds the float64 specialization, preserving the
// legacy doubles wire layout of 6.1 and ignoring NaN inputs per 4.1.
func NewDoublesSketch(k uint16, opts ...Option[float64]) (*Sketch[float64], error) {
	opts = append([]Option[float64]{WithSkipFn[float64](math.IsNaN)}, opts...)
	return newSketch(k, common.DoubleLess(false), common.DoubleSerde{}, opts...)
}

func (s *Sketch[T]) K() uint16 { return s.k }

func (s *Sketch[T]) N() uint64 { return s.n }

func (s *Sketch[T]) IsEmpty() bool { return s.n == 0 }

// RetainedCount returns BB_count + K*popcount(P), invariant 4 of 3.1.
func (s *Sketch[T]) RetainedCount() uint32 {
	return s.bbCount + uint32(s.k)*uint32(popcount64(s.bitPattern))
}

func (s *Sketch[T]) MinItem() (T, bool) { return s.minItem, s.hasMin }
func (s *Sketch[T]) MaxItem() (T, bool) { return s.maxItem, s.hasMin }

// Reset clears N, P, BB_count, min, max, and releases level storage, but
// keeps the configured K, matching 4.1's reset contract.
func (s *Sketch[T]) Reset() {
	s.n = 0
	s.bitPattern = 0
	s.bbCount = 0
	s.baseBuffer = nil
	s.levels = make(map[uint8][]T)
	var zero T
	s.minItem = zero
	s.maxItem = zero
	s.hasMin = false
}

func (s *Sketch[T]) updateMinMax(v T) {
	if !s.hasMin {
		s.minItem = v
		s.maxItem = v
		s.hasMin = true
		return
	}
	if s.less(v, s.minItem) {
		s.minItem = v
	}
	if s.less(s.maxItem, v) {
		s.maxItem = v
	}
}

func popcount64(x uint64) int {
	c := 0
	for x != 0 {
		x &= x - 1
		c++
	}
	return c
}

// occupiedLevelsAscending returns the occupied level indices in ascending
// order, the traversal order every propagate-carry operation requires.
func (s *Sketch[T]) occupiedLevelsAscending() []uint8 {
	out := make([]uint8, 0, popcount64(s.bitPattern))
	for lvl := uint8(0); lvl < 64; lvl++ {
		if s.bitPattern&(uint64(1)<<lvl) != 0 {
			out = append(out, lvl)
		}
	}
	return out
}

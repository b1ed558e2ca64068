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

package common

import (
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/murmur3"
)

// Rng is the seedable, splittable deterministic generator every sketch
// holds per the fair-random-bit requirement of the carry-propagation and
// VarOpt update algorithms. Production code seeds from the process-wide
// DefaultRng (or an explicit seed for reproducible tests), and every
// level/partition that needs an independent draw stream calls Split instead
// of sharing state.
type Rng struct {
	state *rand.Rand
}

// NewRng builds a generator seeded deterministically from seed. Two Rng
// values built from the same seed produce identical draw sequences.
func NewRng(seed uint64) *Rng {
	return &Rng{state: rand.New(rand.NewSource(int64(seed)))}
}

// NewSeededFromBytes derives a seed by mixing arbitrary bytes through
// murmur3, turning a caller-chosen byte identity into an Rng seed.
func NewSeededFromBytes(b []byte) *Rng {
	return NewRng(murmur3.SeedSum64(rngMixSeed, b))
}

// Split derives a new, independent Rng deterministically from the current
// one, without consuming or depending on parent draws made after the call
// in a way that would change the child's sequence. Used when a sketch needs
// to hand an independent stream to a level or partition it manages.
func (g *Rng) Split() *Rng {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], g.state.Uint64())
	childSeed := murmur3.SeedSum64(rngMixSeed, scratch[:])
	return NewRng(childSeed)
}

// NextBit draws one fair random bit (0 or 1), the primitive the
// propagate-carry merge and VarOpt downsampling use to choose even-indexed
// vs odd-indexed positions.
func (g *Rng) NextBit() int {
	return g.state.Intn(2)
}

// NextIntn draws a uniform integer in [0, n).
func (g *Rng) NextIntn(n int) int {
	return g.state.Intn(n)
}

// NextInt63n draws a uniform int64 in [0, n).
func (g *Rng) NextInt63n(n int64) int64 {
	return g.state.Int63n(n)
}

// NextFloat64 draws a uniform float64 in [0, 1).
func (g *Rng) NextFloat64() float64 {
	return g.state.Float64()
}

// NextFloat64NonZero draws a uniform float64 in (0, 1), useful for VarOpt's
// weighted coin flips where a zero draw would need special-casing.
func (g *Rng) NextFloat64NonZero() float64 {
	v := g.state.Float64()
	for v == 0 {
		v = g.state.Float64()
	}
	return v
}

const rngMixSeed uint64 = 0x9E3779B97F4A7C15

var (
	defaultRngOnce sync.Once
	defaultRng     atomic.Pointer[Rng]
)

// DefaultRng returns the process-wide default generator, lazily
// initialized from the wall clock on first use and never otherwise relied
// upon for correctness, matching the design note that the only global
// state is the re-seedable default RNG.
func DefaultRng() *Rng {
	defaultRngOnce.Do(func() {
		seed := uint64(time.Now().UnixNano())
		defaultRng.Store(NewRng(seed))
	})
	return defaultRng.Load()
}

// SeedDefaultRng re-seeds the process-wide default generator, letting
// tests pin reproducible output without touching sketches that were
// already constructed with their own explicit seed.
func SeedDefaultRng(seed uint64) {
	defaultRngOnce.Do(func() {})
	defaultRng.Store(NewRng(seed))
}

// DoubleBitsToSeed turns a float64 into deterministic seed material,
// convenient for tests that want to derive a sketch seed from a scenario
// parameter rather than a fixed literal.
func DoubleBitsToSeed(v float64) uint64 {
	return math.Float64bits(v) ^ rngMixSeed
}

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
	"sort"

	"github.com/quantkit/quantkit/internal/acmerr"
)

// Update folds x into the sketch per 4.1. NaN-like inputs identified by the
// sketch's skip predicate are ignored without mutation; every other finite
// value, including +/-Inf, is accepted and min/max are updated.
func (s *Sketch[T]) Update(x T) error {
	if s.readOnly {
		return acmerr.New(acmerr.InvalidState, "cannot update a read-only wrapped sketch")
	}
	if s.skipFn != nil && s.skipFn(x) {
		return nil
	}
	s.updateMinMax(x)

	twoK := int(s.k) * 2
	if s.baseBuffer == nil {
		s.baseBuffer = make([]T, 0, twoK)
	}
	s.baseBuffer = append(s.baseBuffer, x)
	s.bbCount++
	s.n++

	if int(s.bbCount) < twoK {
		return nil
	}
	sort.Slice(s.baseBuffer, func(i, j int) bool { return s.less(s.baseBuffer[i], s.baseBuffer[j]) })
	s.compress()
	return nil
}

// ensureScratch lazily grows the reusable merge/subsample buffers to 2K
// capacity, the largest a single cascade step ever needs (one K-sized
// carry tandem-merged with one K-sized existing level).
func (s *Sketch[T]) ensureScratch() {
	if s.scratchMerge == nil {
		twoK := int(s.k) * 2
		s.scratchMerge = make([]T, 0, twoK)
		s.scratchCarry = make([]T, 0, twoK)
	}
}

// compress runs the propagate-carry cascade of 4.1 steps 3-7. The base
// buffer, once sorted to length 2K, is itself the tandem merge of two
// virtual K-blocks already resident in sorted order; halving it once
// produces the K-sized carry that then cascades upward exactly like a
// ripple-carry adder incrementing by one at level 0.
func (s *Sketch[T]) compress() {
	s.ensureScratch()
	carry := subsampleEvenOddInto(s.baseBuffer, s.rng, s.scratchCarry[:0])
	s.scratchCarry = carry
	s.injectCarry(carry, 0)
	s.baseBuffer = s.baseBuffer[:0]
	s.bbCount = 0
}

// injectCarry installs carry (a K-sized sorted block) at level, cascading
// upward through every already-occupied level exactly as 4.1 step 5 and
// 4.2 step 2 describe: the same loop serves update-time promotion and
// merge-time level injection. The cascade's intermediate merge/subsample
// buffers are borrowed from s.scratchMerge/s.scratchCarry (see compress)
// so a cascade through P occupied levels allocates nothing until the
// final, permanently-stored level block; callers that pass in a carry
// they still need afterward must pass their own independently-owned
// slice, since it may otherwise be aliased and overwritten by the next
// cascade step.
func (s *Sketch[T]) injectCarry(carry []T, level uint8) {
	s.ensureScratch()
	for s.bitPattern&(uint64(1)<<level) != 0 {
		existing := s.levels[level]
		merged := mergeSortedInto(carry, existing, s.less, s.scratchMerge[:0])
		s.scratchMerge = merged
		carry = subsampleEvenOddInto(merged, s.rng, s.scratchCarry[:0])
		s.scratchCarry = carry
		delete(s.levels, level)
		s.bitPattern &^= uint64(1) << level
		level++
	}
	owned := make([]T, len(carry))
	copy(owned, carry)
	s.levels[level] = owned
	s.bitPattern |= uint64(1) << level
}

// mergeSorted merges two ascending slices into one freshly allocated
// ascending slice. It is the "tandem blocky merge" of 4.1: stable, and
// tolerant of a short tail block (used by down-sampling merge where a
// halved block may be shorter than K for an instant before the next
// halving).
func mergeSorted[T any](a, b []T, less func(a, b T) bool) []T {
	return mergeSortedInto(a, b, less, make([]T, 0, len(a)+len(b)))
}

// mergeSortedInto is mergeSorted with the output buffer supplied by the
// caller (reusing its backing array when dst has enough capacity), so a
// propagate-carry cascade through P occupied levels can reuse one buffer
// instead of allocating P times. dst's existing contents are discarded.
func mergeSortedInto[T any](a, b []T, less func(a, b T) bool, dst []T) []T {
	out := dst[:0]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(b[j], a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

type fairBitSource interface {
	NextBit() int
}

// subsampleEvenOdd takes one fair random bit from rng to choose the
// even-indexed or odd-indexed half of a sorted, even-length slice, into a
// freshly allocated slice. This is the sole source of randomness in carry
// propagation and down-sampling merges, per 4.1's "Random sub-sampling"
// note and 4.2's tie-breaking rule.
func subsampleEvenOdd[T any](sorted []T, rng fairBitSource) []T {
	return subsampleEvenOddInto(sorted, rng, make([]T, 0, (len(sorted)+1)/2))
}

// subsampleEvenOddInto is subsampleEvenOdd with the output buffer supplied
// by the caller, reused across an Update's whole cascade instead of
// allocated fresh per level.
func subsampleEvenOddInto[T any](sorted []T, rng fairBitSource, dst []T) []T {
	offset := rng.NextBit()
	out := dst[:0]
	for i := offset; i < len(sorted); i += 2 {
		out = append(out, sorted[i])
	}
	return out
}

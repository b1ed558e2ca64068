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

// MergeInto folds src into dst per 4.2. dst.K must be <= src.K; callers
// that hold the reverse orientation (src.K < dst.K) must downgrade dst
// first -- see Union, which implements that orientation via 4.6.
func MergeInto[T comparable](dst, src *Sketch[T]) error {
	if dst.readOnly {
		return acmerr.New(acmerr.InvalidState, "cannot merge into a read-only wrapped sketch")
	}
	if src.IsEmpty() {
		return nil
	}
	if src.k == dst.k {
		return mergeSameK(dst, src)
	}
	if src.k < dst.k {
		return acmerr.New(acmerr.InvalidArgument, "reverse-orientation merge requires downgrading dst.K first")
	}
	if !common.IsPowerOfTwo(int(src.k), int(dst.k)) {
		return acmerr.New(acmerr.InvalidArgument, "down-sample ratio src.K/dst.K must be a power of two")
	}
	d := common.Log2OfPowerOfTwoRatio(int(src.k), int(dst.k))
	return mergeDownSample(dst, src, d)
}

func mergeSameK[T comparable](dst, src *Sketch[T]) error {
	for i := 0; i < int(src.bbCount); i++ {
		if err := dst.Update(src.baseBuffer[i]); err != nil {
			return err
		}
	}
	for _, lvl := range src.occupiedLevelsAscending() {
		block := make([]T, len(src.levels[lvl]))
		copy(block, src.levels[lvl])
		dst.injectCarry(block, lvl)
	}
	// dst.Update already accounted for src's base-buffer observations in
	// dst.n; the remaining src.n - src.bbCount came from the levels just
	// injected structurally (injectCarry does not touch n), so only that
	// remainder is added here. A literal "dst.n += src.n" at this point
	// would double-count the base-buffer contribution already folded
	// above.
	dst.n += src.n - uint64(src.bbCount)
	if src.hasMin {
		dst.updateMinMax(src.minItem)
		dst.updateMinMax(src.maxItem)
	}
	return nil
}

func mergeDownSample[T comparable](dst, src *Sketch[T], d int) error {
	for i := 0; i < int(src.bbCount); i++ {
		if err := dst.Update(src.baseBuffer[i]); err != nil {
			return err
		}
	}
	for _, lvl := range src.occupiedLevelsAscending() {
		block := make([]T, len(src.levels[lvl]))
		copy(block, src.levels[lvl])
		for i := 0; i < d; i++ {
			block = subsampleEvenOdd(block, dst.rng)
		}
		dst.injectCarry(block, lvl+uint8(d))
	}
	dst.n += src.n - uint64(src.bbCount)
	if src.hasMin {
		dst.updateMinMax(src.minItem)
		dst.updateMinMax(src.maxItem)
	}
	return nil
}

// DownsampledCopy returns a new sketch at the requested smaller K holding
// the same logical stream as s, used by the union facade's reverse
// orientation (4.2) and available directly as a supplemented operation for
// callers that want to shrink a sketch without a union.
func DownsampledCopy[T comparable](s *Sketch[T], newK uint16) (*Sketch[T], error) {
	if newK > s.k {
		return nil, acmerr.New(acmerr.InvalidArgument, "DownsampledCopy requires newK <= s.K")
	}
	if newK == s.k {
		return Copy(s)
	}
	out, err := newSketch(newK, s.less, s.serde, WithRng[T](s.rng.Split()))
	if err != nil {
		return nil, err
	}
	out.skipFn = s.skipFn
	if err := MergeInto(out, s); err != nil {
		return nil, err
	}
	return out, nil
}

// Copy returns a deep, independent copy of s at the same K.
func Copy[T comparable](s *Sketch[T]) (*Sketch[T], error) {
	out, err := newSketch(s.k, s.less, s.serde, WithRng[T](s.rng.Split()))
	if err != nil {
		return nil, err
	}
	out.skipFn = s.skipFn
	out.n = s.n
	out.bitPattern = s.bitPattern
	out.bbCount = s.bbCount
	out.hasMin = s.hasMin
	out.minItem = s.minItem
	out.maxItem = s.maxItem
	out.baseBuffer = append([]T(nil), s.baseBuffer...)
	out.levels = make(map[uint8][]T, len(s.levels))
	for lvl, blk := range s.levels {
		out.levels[lvl] = append([]T(nil), blk...)
	}
	return out, nil
}


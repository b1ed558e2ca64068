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

import "github.com/quantkit/quantkit/common"

// Union maintains a private gadget sketch at a configured maximum K and
// implements the degenerate-input truth table of 4.6, grounded on
// sampling/reservoir_items_union.go's nil/empty/valid gadget handling
// (createNewGadget, twoWayMergeInternal) generalized from reservoir
// sampling's weighted-merge cases to the quantiles same-K/down-sample
// merge discipline of 4.2.
type Union[T comparable] struct {
	maxK   uint16
	gadget *Sketch[T]
	less   common.LessFn[T]
	serde  common.ItemSerde[T]
}

// NewUnion creates a union bounded at maxK, sharing the given comparator
// and wire codec with every sketch it will ever accept or manufacture.
func NewUnion[T comparable](maxK uint16, less common.LessFn[T], serde common.ItemSerde[T]) (*Union[T], error) {
	if err := checkK(maxK); err != nil {
		return nil, err
	}
	return &Union[T]{maxK: maxK, less: less, serde: serde}, nil
}

// NewDoublesUnion creates the float64-specialized union.
func NewDoublesUnion(maxK uint16) (*Union[float64], error) {
	return NewUnion[float64](maxK, common.DoubleLess(false), common.DoubleSerde{})
}

// Update folds input into the union per 4.6's truth table. A nil input is
// always a no-op.
func (u *Union[T]) Update(input *Sketch[T]) error {
	if input == nil {
		return nil // {null,null} and {empty|valid gadget, null input} rows
	}

	if u.gadget == nil {
		if input.IsEmpty() {
			// {null gadget, empty input}: install a fresh empty at input's K.
			fresh, err := newSketch(input.k, u.less, input.serde, WithRng[T](input.rng.Split()))
			if err != nil {
				return err
			}
			fresh.skipFn = input.skipFn
			u.gadget = fresh
			return nil
		}
		// {null gadget, valid input}: install a copy, capped at maxK.
		capped := input.k
		if capped > u.maxK {
			capped = u.maxK
		}
		copyAtCap, err := DownsampledCopy(input, capped)
		if err != nil {
			return err
		}
		u.gadget = copyAtCap
		return nil
	}

	if input.IsEmpty() {
		// {gadget (empty or valid), empty input}: adopt the smaller K
		// only when input's K is exact (its own N <= its own K, trivially
		// true for an empty sketch) and strictly smaller than gadget's.
		if input.k < u.gadget.k {
			downgraded, err := DownsampledCopy(u.gadget, input.k)
			if err != nil {
				return err
			}
			u.gadget = downgraded
		}
		return nil
	}

	// {gadget valid-or-empty, valid input}: merge per 4.2, downgrading the
	// gadget first if the input carries a smaller K (reverse orientation,
	// 4.2's "Reverse orientation" rule delegated to the union).
	if input.k < u.gadget.k {
		downgraded, err := DownsampledCopy(u.gadget, input.k)
		if err != nil {
			return err
		}
		u.gadget = downgraded
	}
	return MergeInto(u.gadget, input)
}

// MaxK returns the union's configured maximum resolution.
func (u *Union[T]) MaxK() uint16 { return u.maxK }

// Result returns a copy of the current gadget, or an empty sketch at maxK
// if the union holds no gadget (it has not been updated with a non-nil
// sketch since creation or the last ResultAndReset).
func (u *Union[T]) Result() (*Sketch[T], error) {
	if u.gadget == nil {
		return newSketch(u.maxK, u.less, u.serde)
	}
	return Copy(u.gadget)
}

// ResultAndReset returns the current gadget directly (not a copy) and
// leaves the union empty, per 4.6's getResultAndReset.
func (u *Union[T]) ResultAndReset() (*Sketch[T], error) {
	if u.gadget == nil {
		return newSketch(u.maxK, u.less, u.serde)
	}
	result := u.gadget
	u.gadget = nil
	return result, nil
}

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
	"math"
	"sort"

	"github.com/quantkit/quantkit/internal"
	"github.com/quantkit/quantkit/internal/acmerr"
)

// Aux is the read-only sorted-samples-with-cumulative-weights snapshot of
// 4.3: a disposable view built once from a sketch's base buffer and levels,
// then queried by Rank/Quantile/PMF/CDF without touching the sketch again.
// It mirrors kll/items_sketch_sorted_view.go's ItemsSketchSortedView, with
// weight 2^(level+1) for a level sample and 1 for a base-buffer sample,
// since the ACM level encoding, unlike KLL's, assigns one explicit weight
// per level.
type Aux[T comparable] struct {
	values  []T
	cumW    []uint64 // len(values)+1; cumW[i] is total weight of values[:i]
	n       uint64
	less    func(a, b T) bool
	minItem T
	maxItem T
}

// BuildAux constructs the auxiliary snapshot of 4.3. Returns InvalidState
// if the sketch has never seen an Update (callers should check IsEmpty
// first; this guards direct construction misuse).
func (s *Sketch[T]) BuildAux() (*Aux[T], error) {
	if s.IsEmpty() {
		return nil, acmerr.New(acmerr.InvalidState, "cannot build auxiliary of an empty sketch")
	}

	blocks := make([][]T, 0, 1+len(s.levels))
	weights := make([]uint64, 0, 1+len(s.levels))

	if s.bbCount > 0 {
		bb := make([]T, s.bbCount)
		copy(bb, s.baseBuffer[:s.bbCount])
		sort.Slice(bb, func(i, j int) bool { return s.less(bb[i], bb[j]) })
		blocks = append(blocks, bb)
		weights = append(weights, 1)
	}
	for _, lvl := range s.occupiedLevelsAscending() {
		blocks = append(blocks, s.levels[lvl])
		// Level 0 is populated by subsampling a full 2K-item base buffer
		// down to K items, so each retained item there already stands in
		// for 2 original observations; every cascade level up doubles
		// again. Weight is therefore 2^(lvl+1), not 2^lvl.
		weights = append(weights, uint64(1)<<(lvl+1))
	}

	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	values := make([]T, 0, total)
	itemWeights := make([]uint64, 0, total)
	blockyTandemMergeSort(blocks, weights, s.less, &values, &itemWeights)

	cumW := make([]uint64, len(values)+1)
	var running uint64
	for i, w := range itemWeights {
		cumW[i] = running
		running += w
	}
	cumW[len(values)] = s.n

	return &Aux[T]{
		values:  values,
		cumW:    cumW,
		n:       s.n,
		less:    s.less,
		minItem: s.minItem,
		maxItem: s.maxItem,
	}, nil
}

// blockyTandemMergeSort performs the multi-way blocky tandem merge sort of
// 4.3 step 3: every input block is already sorted (base buffer pre-sorted
// by the caller, levels sorted by construction), so a k-way merge produces
// one globally sorted sequence without re-sorting any element. Since the
// block count varies per sketch, this keeps one cursor per block and at
// each step emits the smallest head among them, rather than building a
// fixed-shape offset array sized to a known level count.
func blockyTandemMergeSort[T comparable](blocks [][]T, weights []uint64, less func(a, b T) bool, outVals *[]T, outWeights *[]uint64) {
	type cursor struct {
		vals []T
		w    uint64
		pos  int
	}
	cursors := make([]cursor, len(blocks))
	for i, b := range blocks {
		cursors[i] = cursor{vals: b, w: weights[i]}
	}
	for {
		best := -1
		for i := range cursors {
			if cursors[i].pos >= len(cursors[i].vals) {
				continue
			}
			if best == -1 || less(cursors[i].vals[cursors[i].pos], cursors[best].vals[cursors[best].pos]) {
				best = i
			}
		}
		if best == -1 {
			return
		}
		*outVals = append(*outVals, cursors[best].vals[cursors[best].pos])
		*outWeights = append(*outWeights, cursors[best].w)
		cursors[best].pos++
	}
}

// N returns the stream length the auxiliary was built from.
func (a *Aux[T]) N() uint64 { return a.n }

// RetainedCount returns the number of distinct retained samples, |A|.
func (a *Aux[T]) RetainedCount() int { return len(a.values) }

// Rank returns the normalized rank of v: the fraction of the stream at or
// below v (inclusive) or strictly below v (exclusive), per 4.3.
func (a *Aux[T]) Rank(v T, inclusive bool) float64 {
	if a.n == 0 {
		return math.NaN()
	}
	crit := internal.InequalityLT
	if inclusive {
		crit = internal.InequalityLE
	}
	idx := internal.FindWithInequality(a.values, 0, len(a.values)-1, v, crit, a.less)
	if idx == -1 {
		return 0
	}
	if inclusive {
		return float64(a.cumW[idx+1]) / float64(a.n)
	}
	return float64(a.cumW[idx]) / float64(a.n)
}

// Quantile returns the value at normalized rank phi in [0,1], per 4.3: phi
// 0/1 return the exact observed min/max, otherwise the smallest retained
// value whose cumulative weight reaches ceil(phi*N).
func (a *Aux[T]) Quantile(phi float64) (T, error) {
	var zero T
	if a.n == 0 {
		return zero, acmerr.New(acmerr.InvalidState, "cannot query quantile of an empty auxiliary")
	}
	if phi < 0 || phi > 1 {
		return zero, acmerr.New(acmerr.InvalidArgument, "phi must be in [0, 1]")
	}
	if phi == 0 {
		return a.minItem, nil
	}
	if phi == 1 {
		return a.maxItem, nil
	}
	target := uint64(math.Ceil(phi * float64(a.n)))
	j := sort.Search(len(a.values), func(i int) bool { return a.cumW[i+1] >= target })
	if j == len(a.values) {
		j = len(a.values) - 1
	}
	return a.values[j], nil
}

// checkSplitPoints validates the split-point array required by PMF/CDF: it
// must be non-empty and strictly increasing per the ordering the auxiliary
// was built with.
func (a *Aux[T]) checkSplitPoints(splitPoints []T) error {
	if len(splitPoints) == 0 {
		return acmerr.New(acmerr.InvalidArgument, "splitPoints must not be empty")
	}
	for i := 1; i < len(splitPoints); i++ {
		if !a.less(splitPoints[i-1], splitPoints[i]) {
			return acmerr.New(acmerr.InvalidArgument, "splitPoints must be strictly increasing")
		}
	}
	return nil
}

// CDF returns, for each split point, the normalized rank at that point,
// followed by a terminal 1.0, via the linear-scan probing strategy of 4.3
// (one monotone pass over the sorted splitPoints, since each successive
// split point's rank search can resume from the prior one's position).
func (a *Aux[T]) CDF(splitPoints []T, inclusive bool) ([]float64, error) {
	if a.n == 0 {
		return nil, acmerr.New(acmerr.InvalidState, "cannot query CDF of an empty auxiliary")
	}
	if err := a.checkSplitPoints(splitPoints); err != nil {
		return nil, err
	}
	out := make([]float64, len(splitPoints)+1)
	pos := 0
	for i, sp := range splitPoints {
		for pos < len(a.values) && cdfLess(a.less, a.values[pos], sp, inclusive) {
			pos++
		}
		out[i] = float64(a.cumW[pos]) / float64(a.n)
	}
	out[len(splitPoints)] = 1.0
	return out, nil
}

func cdfLess[T comparable](less func(a, b T) bool, v, sp T, inclusive bool) bool {
	if inclusive {
		return less(v, sp) || v == sp
	}
	return less(v, sp)
}

// CDFBinarySearch is the bilinear-time alternative probing strategy 4.3
// requires to exist alongside the linear scan above: a fresh binary search
// per split point rather than a single monotone sweep. Both must agree;
// TestAux_CDFStrategiesAgree checks that within the floating-point
// tolerance of 8's PMF/CDF invariant.
func (a *Aux[T]) CDFBinarySearch(splitPoints []T, inclusive bool) ([]float64, error) {
	if a.n == 0 {
		return nil, acmerr.New(acmerr.InvalidState, "cannot query CDF of an empty auxiliary")
	}
	if err := a.checkSplitPoints(splitPoints); err != nil {
		return nil, err
	}
	out := make([]float64, len(splitPoints)+1)
	for i, sp := range splitPoints {
		out[i] = a.Rank(sp, inclusive)
	}
	out[len(splitPoints)] = 1.0
	return out, nil
}

// PMF returns the probability mass in each bucket delimited by splitPoints,
// derived from CDF by successive differencing per 4.3.
func (a *Aux[T]) PMF(splitPoints []T, inclusive bool) ([]float64, error) {
	cdf, err := a.CDF(splitPoints, inclusive)
	if err != nil {
		return nil, err
	}
	for i := len(cdf) - 1; i > 0; i-- {
		cdf[i] -= cdf[i-1]
	}
	return cdf, nil
}

// Iterator walks the auxiliary's retained (value, weight) pairs in
// ascending order, for callers who want raw samples without going through
// rank/quantile/PMF/CDF.
type Iterator[T comparable] struct {
	aux *Aux[T]
	pos int
}

// Iterator returns a fresh cursor positioned before the first element.
func (a *Aux[T]) Iterator() *Iterator[T] {
	return &Iterator[T]{aux: a, pos: -1}
}

// Next advances the cursor and reports whether an element was reached.
func (it *Iterator[T]) Next() bool {
	it.pos++
	return it.pos < len(it.aux.values)
}

// Value returns the current element's value.
func (it *Iterator[T]) Value() T { return it.aux.values[it.pos] }

// Weight returns the current element's implicit stream weight (2^(level+1)
// for a level sample, or 1 for a base-buffer sample).
func (it *Iterator[T]) Weight() uint64 {
	return it.aux.cumW[it.pos+1] - it.aux.cumW[it.pos]
}

// NaturalRank returns the cumulative count of the stream at or below the
// current element (inclusive).
func (it *Iterator[T]) NaturalRank() uint64 { return it.aux.cumW[it.pos+1] }

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

import "github.com/quantkit/quantkit/internal/acmerr"

// PartitionBoundaries splits the stream into numEquallySized equally
// weighted parts: a direct consumer of the auxiliary's sorted-samples and
// cumulative-weights arrays.
type PartitionBoundaries[T comparable] struct {
	TotalN        uint64
	Boundaries    []T
	NaturalRanks  []uint64
	NormRanks     []float64
	NumPartitions int
}

// PartitionBoundaries computes numEquallySized+1 boundary values at evenly
// spaced normalized ranks [0, 1/numEquallySized, ..., 1], forcing the first
// and last boundary to the auxiliary's exact min/max.
func (a *Aux[T]) PartitionBoundaries(numEquallySized int, inclusive bool) (*PartitionBoundaries[T], error) {
	if a.n == 0 {
		return nil, acmerr.New(acmerr.InvalidState, "cannot partition an empty auxiliary")
	}
	if numEquallySized < 1 {
		return nil, acmerr.New(acmerr.InvalidArgument, "numEquallySized must be >= 1")
	}

	normRanks := make([]float64, numEquallySized+1)
	for i := range normRanks {
		normRanks[i] = float64(i) / float64(numEquallySized)
	}

	boundaries := make([]T, len(normRanks))
	natRanks := make([]uint64, len(normRanks))
	for i, phi := range normRanks {
		v, err := a.Quantile(phi)
		if err != nil {
			return nil, err
		}
		boundaries[i] = v
		natRanks[i] = uint64(phi * float64(a.n))
	}
	boundaries[0] = a.minItem
	boundaries[len(boundaries)-1] = a.maxItem
	natRanks[0] = 0
	natRanks[len(natRanks)-1] = a.n

	return &PartitionBoundaries[T]{
		TotalN:        a.n,
		Boundaries:    boundaries,
		NaturalRanks:  natRanks,
		NormRanks:     normRanks,
		NumPartitions: numEquallySized,
	}, nil
}

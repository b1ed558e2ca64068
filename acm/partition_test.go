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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionBoundaries_EndpointsAreExactMinMax(t *testing.T) {
	aux := buildAuxFromRange(t, 64, 10000)
	pb, err := aux.PartitionBoundaries(4, true)
	require.NoError(t, err)
	require.Len(t, pb.Boundaries, 5)
	assert.Equal(t, aux.minItem, pb.Boundaries[0])
	assert.Equal(t, aux.maxItem, pb.Boundaries[len(pb.Boundaries)-1])
	assert.Equal(t, uint64(0), pb.NaturalRanks[0])
	assert.Equal(t, aux.n, pb.NaturalRanks[len(pb.NaturalRanks)-1])
	assert.Equal(t, 4, pb.NumPartitions)
}

func TestPartitionBoundaries_NormRanksAreEvenlySpaced(t *testing.T) {
	aux := buildAuxFromRange(t, 32, 2000)
	pb, err := aux.PartitionBoundaries(5, true)
	require.NoError(t, err)
	require.Len(t, pb.NormRanks, 6)
	for i, want := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		assert.InDelta(t, want, pb.NormRanks[i], 1e-9)
	}
}

func TestPartitionBoundaries_RejectsEmptyAuxAndBadCount(t *testing.T) {
	aux := buildAuxFromRange(t, 32, 500)
	_, err := aux.PartitionBoundaries(0, true)
	assert.Error(t, err)

	empty := &Aux[float64]{}
	_, err = empty.PartitionBoundaries(4, true)
	assert.Error(t, err)
}

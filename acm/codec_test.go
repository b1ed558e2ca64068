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

func TestCodec_EmptyRoundTrip(t *testing.T) {
	s, err := NewDoublesSketch(64)
	require.NoError(t, err)
	bytes, err := s.ToBytes(true, false)
	require.NoError(t, err)
	assert.Len(t, bytes, preambleEmptyBytes)

	back, err := Heapify[float64](bytes, doublesLess, s.serde)
	require.NoError(t, err)
	assert.True(t, back.IsEmpty())
	assert.Equal(t, s.K(), back.K())
}

func TestCodec_NonEmptyRoundTripCompactOrdered(t *testing.T) {
	s, err := NewDoublesSketch(32, WithSeed[float64](17))
	require.NoError(t, err)
	for i := 0; i < 3000; i++ {
		require.NoError(t, s.Update(float64(i)))
	}
	bytes, err := s.ToBytes(true, true)
	require.NoError(t, err)

	back, err := Heapify[float64](bytes, doublesLess, s.serde)
	require.NoError(t, err)
	assert.Equal(t, s.N(), back.N())
	assert.Equal(t, s.K(), back.K())
	assert.Equal(t, s.RetainedCount(), back.RetainedCount())
	minA, _ := s.MinItem()
	minB, _ := back.MinItem()
	assert.Equal(t, minA, minB)
	maxA, _ := s.MaxItem()
	maxB, _ := back.MaxItem()
	assert.Equal(t, maxA, maxB)
}

func TestCodec_NonEmptyRoundTripUpdatable(t *testing.T) {
	s, err := NewDoublesSketch(32, WithSeed[float64](19))
	require.NoError(t, err)
	for i := 0; i < 1500; i++ {
		require.NoError(t, s.Update(float64(i)))
	}
	bytes, err := s.ToBytes(false, false)
	require.NoError(t, err)
	assert.Len(t, bytes, preambleNonEmptyBytes+8*int(s.k)*2+8*int(s.k)*popcount64(s.bitPattern))

	back, err := Heapify[float64](bytes, doublesLess, s.serde)
	require.NoError(t, err)
	assert.Equal(t, s.N(), back.N())

	require.NoError(t, back.Update(9999))
	assert.Equal(t, s.N()+1, back.N())
}

// TestCodec_OrderedCompactReserializesIdentically checks the invariant that
// serializing an ordered, compact sketch twice yields byte-identical output.
func TestCodec_OrderedCompactReserializesIdentically(t *testing.T) {
	s, err := NewDoublesSketch(32, WithSeed[float64](23))
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		require.NoError(t, s.Update(float64(i)))
	}
	bytes1, err := s.ToBytes(true, true)
	require.NoError(t, err)

	back, err := Heapify[float64](bytes1, doublesLess, s.serde)
	require.NoError(t, err)
	bytes2, err := back.ToBytes(true, true)
	require.NoError(t, err)
	assert.Equal(t, bytes1, bytes2)
}

func TestCodec_WrapIsReadOnly(t *testing.T) {
	s, err := NewDoublesSketch(32, WithSeed[float64](29))
	require.NoError(t, err)
	require.NoError(t, s.Update(1))
	bytes, err := s.ToBytes(true, true)
	require.NoError(t, err)

	wrapped, err := Wrap[float64](bytes, doublesLess, s.serde)
	require.NoError(t, err)
	assert.Equal(t, s.N(), wrapped.N())
	assert.Error(t, wrapped.Update(2))
	assert.Error(t, MergeInto(wrapped, s))
}

func TestCodec_RejectsTruncatedBuffer(t *testing.T) {
	_, _, err := decodePreamble([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCodec_RejectsWrongFamily(t *testing.T) {
	p := preamble{preLongs: preLongsEmpty, serVer: currentSerVer, familyID: 99, flags: flagEmpty, k: 32}
	encoded := p.encode()
	_, _, err := decodePreamble(encoded)
	assert.Error(t, err)
}

func TestCodec_AcceptsLegacySerVer1(t *testing.T) {
	s, err := NewDoublesSketch(32)
	require.NoError(t, err)
	bytes, err := s.ToBytes(true, false)
	require.NoError(t, err)
	bytes[1] = 1 // downgrade serVer to the legacy tag
	back, err := Heapify[float64](bytes, doublesLess, s.serde)
	require.NoError(t, err)
	assert.True(t, back.IsEmpty())
}

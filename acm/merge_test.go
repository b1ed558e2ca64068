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

func TestMerge_SameKPreservesTotalN(t *testing.T) {
	a, err := NewDoublesSketch(32, WithSeed[float64](1))
	require.NoError(t, err)
	b, err := NewDoublesSketch(32, WithSeed[float64](2))
	require.NoError(t, err)
	for i := 0; i < 5000; i++ {
		require.NoError(t, a.Update(float64(i)))
	}
	for i := 5000; i < 9000; i++ {
		require.NoError(t, b.Update(float64(i)))
	}
	require.NoError(t, MergeInto(a, b))
	assert.Equal(t, uint64(9000), a.N())
}

func TestMerge_DownSampleRequiresPowerOfTwoRatio(t *testing.T) {
	a, err := NewDoublesSketch(48, WithSeed[float64](1))
	require.NoError(t, err)
	b, err := NewDoublesSketch(256, WithSeed[float64](2))
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		require.NoError(t, b.Update(float64(i)))
	}
	err = MergeInto(a, b)
	assert.Error(t, err)
}

func TestMerge_DownSamplePreservesTotalN(t *testing.T) {
	a, err := NewDoublesSketch(32, WithSeed[float64](1))
	require.NoError(t, err)
	b, err := NewDoublesSketch(128, WithSeed[float64](2))
	require.NoError(t, err)
	for i := 0; i < 2000; i++ {
		require.NoError(t, a.Update(float64(i)))
	}
	for i := 2000; i < 10000; i++ {
		require.NoError(t, b.Update(float64(i)))
	}
	require.NoError(t, MergeInto(a, b))
	assert.Equal(t, uint64(10000), a.N())
}

func TestMerge_ReverseOrientationRejected(t *testing.T) {
	a, err := NewDoublesSketch(256, WithSeed[float64](1))
	require.NoError(t, err)
	b, err := NewDoublesSketch(32, WithSeed[float64](2))
	require.NoError(t, err)
	require.NoError(t, b.Update(1))
	err = MergeInto(a, b)
	assert.Error(t, err)
}

func TestDownsampledCopy_SameKIsPlainCopy(t *testing.T) {
	s, err := NewDoublesSketch(32, WithSeed[float64](3))
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		require.NoError(t, s.Update(float64(i)))
	}
	cp, err := DownsampledCopy(s, 32)
	require.NoError(t, err)
	assert.Equal(t, s.N(), cp.N())
	assert.Equal(t, s.K(), cp.K())
}

func TestDownsampledCopy_SmallerKPreservesN(t *testing.T) {
	s, err := NewDoublesSketch(128, WithSeed[float64](4))
	require.NoError(t, err)
	for i := 0; i < 20000; i++ {
		require.NoError(t, s.Update(float64(i)))
	}
	cp, err := DownsampledCopy(s, 32)
	require.NoError(t, err)
	assert.Equal(t, uint16(32), cp.K())
	assert.Equal(t, s.N(), cp.N())
}

func TestCopy_IsIndependent(t *testing.T) {
	s, err := NewDoublesSketch(32, WithSeed[float64](5))
	require.NoError(t, err)
	require.NoError(t, s.Update(1))
	cp, err := Copy(s)
	require.NoError(t, err)
	require.NoError(t, cp.Update(2))
	assert.Equal(t, uint64(1), s.N())
	assert.Equal(t, uint64(2), cp.N())
}

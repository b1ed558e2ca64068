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

	"github.com/quantkit/quantkit/common"
	"github.com/quantkit/quantkit/internal"
	"github.com/quantkit/quantkit/internal/acmerr"
)

// ToBytes serializes the sketch per 6.1. compact=true emits only the live
// BB_count base-buffer slots (no padding) and marks the result read-only;
// compact=false emits the full 2K-slot base buffer (updatable layout).
// ordered=true sorts the base buffer before writing it, the precondition
// 6.1 requires for byte-identical re-serialization of an ordered+compact
// sketch.
func (s *Sketch[T]) ToBytes(compact bool, ordered bool) ([]byte, error) {
	flags := byte(0)
	if s.IsEmpty() {
		flags |= flagEmpty
	}
	if compact {
		flags |= flagCompact | flagReadOnly
	}
	if ordered {
		flags |= flagOrdered
	}

	p := preamble{
		serVer:   currentSerVer,
		familyID: byte(internal.FamilyEnum.Quantiles.Id),
		flags:    flags,
		k:        s.k,
	}
	if s.IsEmpty() {
		p.preLongs = preLongsEmpty
		return p.encode(), nil
	}
	p.preLongs = preLongsNonEmpty
	p.n = s.n
	p.min = mustFloat(s.minItem)
	p.max = mustFloat(s.maxItem)

	bb := make([]T, s.bbCount)
	copy(bb, s.baseBuffer[:s.bbCount])
	if ordered {
		sort.Slice(bb, func(i, j int) bool { return s.less(bb[i], bb[j]) })
	}

	var samples []T
	if compact {
		samples = make([]T, 0, int(s.bbCount)+int(s.k)*popcount64(s.bitPattern))
		samples = append(samples, bb...)
	} else {
		twoK := int(s.k) * 2
		padded := make([]T, twoK)
		copy(padded, bb)
		samples = make([]T, 0, twoK+int(s.k)*popcount64(s.bitPattern))
		samples = append(samples, padded...)
	}
	for _, lvl := range s.occupiedLevelsAscending() {
		samples = append(samples, s.levels[lvl]...)
	}

	payload := s.serde.SerializeManyToSlice(samples)
	header := p.encode()
	out := make([]byte, len(header)+len(payload))
	copy(out, header)
	copy(out[len(header):], payload)
	return out, nil
}

// mustFloat narrows T to float64 for the legacy doubles min/max preamble
// fields. For any other T (an item-typed sketch serialized through the same
// ToBytes) it returns 0, so those preamble fields carry 0 rather than the
// sketch's min/max.
func mustFloat[T comparable](v T) float64 {
	if f, ok := any(v).(float64); ok {
		return f
	}
	return 0
}

// Heapify parses a wire buffer per 6.1 and reconstructs a fully updatable
// sketch, regardless of whether the buffer was written compact or
// updatable -- "heapifying a compact buffer reconstructs the updatable
// form on demand" (3.1).
func Heapify[T comparable](data []byte, less common.LessFn[T], serde common.ItemSerde[T]) (*Sketch[T], error) {
	p, payloadOff, err := decodePreamble(data)
	if err != nil {
		return nil, err
	}
	if err := checkK(p.k); err != nil {
		return nil, err
	}
	s, err := newSketch(p.k, less, serde)
	if err != nil {
		return nil, err
	}
	if p.isEmpty() {
		return s, nil
	}
	return populateFromPreamble(s, p, data, payloadOff)
}

// Wrap parses a wire buffer per 6.1 into a read-only view: queries work
// exactly as on an updatable sketch, but Update/MergeInto return ReadOnly.
func Wrap[T comparable](data []byte, less common.LessFn[T], serde common.ItemSerde[T]) (*Sketch[T], error) {
	p, payloadOff, err := decodePreamble(data)
	if err != nil {
		return nil, err
	}
	if err := checkK(p.k); err != nil {
		return nil, err
	}
	s, err := newSketch(p.k, less, serde)
	if err != nil {
		return nil, err
	}
	s.readOnly = true
	if p.isEmpty() {
		return s, nil
	}
	out, err := populateFromPreamble(s, p, data, payloadOff)
	if err != nil {
		return nil, err
	}
	out.readOnly = true
	return out, nil
}

func populateFromPreamble[T comparable](s *Sketch[T], p preamble, data []byte, payloadOff int) (*Sketch[T], error) {
	twoK := int(s.k) * 2
	bbCount := int(p.n % uint64(twoK))
	bitPattern := p.n / uint64(twoK)
	numLevels := popcount64(bitPattern)

	bbLen := bbCount
	if !p.isCompact() {
		bbLen = twoK
	}
	wantLen := bbLen + int(s.k)*numLevels

	n, err := s.serde.SizeOfMany(data, payloadOff, wantLen)
	if err != nil {
		return nil, err
	}
	if len(data) < payloadOff+n {
		return nil, acmerr.New(acmerr.CorruptFormat, "buffer shorter than retained-item count requires")
	}
	samples, err := s.serde.DeserializeManyFromSlice(data, payloadOff, wantLen)
	if err != nil {
		return nil, err
	}

	s.n = p.n
	s.bitPattern = bitPattern
	s.bbCount = uint32(bbCount)
	s.hasMin = true
	s.minItem = samples[0]
	s.maxItem = samples[0]
	if f, ok := any(p.min).(T); ok {
		s.minItem = f
	}
	if f, ok := any(p.max).(T); ok {
		s.maxItem = f
	}

	pos := 0
	s.baseBuffer = make([]T, bbCount, twoK)
	copy(s.baseBuffer, samples[pos:pos+bbCount])
	pos += bbLen

	s.levels = make(map[uint8][]T, numLevels)
	for lvl := uint8(0); lvl < 64; lvl++ {
		if bitPattern&(uint64(1)<<lvl) == 0 {
			continue
		}
		block := make([]T, s.k)
		copy(block, samples[pos:pos+int(s.k)])
		s.levels[lvl] = block
		pos += int(s.k)
	}
	return s, nil
}

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
	"encoding/binary"
	"math"

	"github.com/quantkit/quantkit/internal"
	"github.com/quantkit/quantkit/internal/acmerr"
)

// Preamble byte layout: preLongs/serVer/familyID/flags framing, matching
// the scheme sampling/preamble_utils.go lays out for its own families.
const (
	preambleEmptyBytes    = 8
	preambleNonEmptyBytes = 32

	preLongsEmpty    = 1
	preLongsNonEmpty = 4

	currentSerVer = 3

	flagReadOnly = 0x02
	flagEmpty    = 0x04
	flagCompact  = 0x08
	flagOrdered  = 0x10
)

type preamble struct {
	preLongs byte
	serVer   byte
	familyID byte
	flags    byte
	k        uint16
	n        uint64
	min      float64
	max      float64
}

func (p preamble) isEmpty() bool    { return p.flags&flagEmpty != 0 }
func (p preamble) isCompact() bool  { return p.flags&flagCompact != 0 }
func (p preamble) isOrdered() bool  { return p.flags&flagOrdered != 0 }
func (p preamble) isReadOnly() bool { return p.flags&flagReadOnly != 0 }

// encode writes the preamble per 6.1, little-endian regardless of host
// endianness.
func (p preamble) encode() []byte {
	size := preambleEmptyBytes
	if !p.isEmpty() {
		size = preambleNonEmptyBytes
	}
	buf := make([]byte, size)
	buf[0] = p.preLongs
	buf[1] = p.serVer
	buf[2] = p.familyID
	buf[3] = p.flags
	binary.LittleEndian.PutUint16(buf[4:6], p.k)
	// bytes 6-7 unused/legacy-seed, left zero.
	if !p.isEmpty() {
		binary.LittleEndian.PutUint64(buf[8:16], p.n)
		binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(p.min))
		binary.LittleEndian.PutUint64(buf[24:32], math.Float64bits(p.max))
	}
	return buf
}

// decodePreamble validates and parses the preamble of a wire buffer,
// translating serVer 1's legacy short-encoded K into the current 2-byte
// field per 6.1's version-acceptance rule. Returns the parsed preamble and
// the byte offset at which the payload begins.
func decodePreamble(data []byte) (preamble, int, error) {
	if len(data) < preambleEmptyBytes {
		return preamble{}, 0, acmerr.New(acmerr.CorruptFormat, "buffer shorter than minimum preamble")
	}
	p := preamble{
		preLongs: data[0],
		serVer:   data[1],
		familyID: data[2],
		flags:    data[3],
		k:        binary.LittleEndian.Uint16(data[4:6]),
	}
	if p.serVer < 1 || p.serVer > currentSerVer {
		return preamble{}, 0, acmerr.New(acmerr.CorruptFormat, "unsupported serVer")
	}
	if p.familyID != byte(internal.FamilyEnum.Quantiles.Id) {
		return preamble{}, 0, acmerr.New(acmerr.CorruptFormat, "wrong familyID for quantiles sketch")
	}
	if p.serVer == 1 {
		// Legacy short-encoded K: the 2-byte field at offset 4 already
		// holds the true value for this family's legacy layout, so no
		// further translation of the field itself is required beyond
		// accepting the older serVer tag; promote serVer to current so
		// downstream logic need not branch on it again.
		p.serVer = currentSerVer
	}

	if p.isEmpty() {
		if p.preLongs != preLongsEmpty {
			return preamble{}, 0, acmerr.New(acmerr.CorruptFormat, "preLongs does not match EMPTY flag")
		}
		return p, preambleEmptyBytes, nil
	}

	if p.preLongs != preLongsNonEmpty {
		return preamble{}, 0, acmerr.New(acmerr.CorruptFormat, "preLongs does not match non-empty payload")
	}
	if len(data) < preambleNonEmptyBytes {
		return preamble{}, 0, acmerr.New(acmerr.CorruptFormat, "buffer shorter than non-empty preamble requires")
	}
	p.n = binary.LittleEndian.Uint64(data[8:16])
	p.min = math.Float64frombits(binary.LittleEndian.Uint64(data[16:24]))
	p.max = math.Float64frombits(binary.LittleEndian.Uint64(data[24:32]))
	if p.n == 0 {
		return preamble{}, 0, acmerr.New(acmerr.CorruptFormat, "flags/size contradict: EMPTY unset but N == 0")
	}
	return p, preambleNonEmptyBytes, nil
}

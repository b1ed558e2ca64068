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

// Package acmerr defines the single tagged error kind that every public
// operation in the quantiles and sampling sketches surfaces on failure. The
// teacher returns plain errors.New/fmt.Errorf with no taxonomy; once a
// caller needs to branch on failure class (a read-only view vs a corrupt
// buffer vs a bad argument), that calls for a Kind field, the idiomatic Go
// shape of os.PathError or net.OpError.
package acmerr

import "errors"

// Kind classifies why an operation failed.
type Kind int

const (
	// InvalidArgument: a caller-supplied parameter is out of its documented
	// domain (K out of range, negative rank, non-monotonic split points, a
	// down-sample ratio that is not a power of two, and so on).
	InvalidArgument Kind = iota
	// InvalidState: the sketch itself cannot accept the requested
	// operation (reservoir exceeded its capacity cap, VarOpt shrunk below
	// its minimum K, mutation attempted through a read-only view).
	InvalidState
	// CorruptFormat: a serialized buffer fails preamble or payload
	// validation (bad version, bad family ID, truncated buffer, flags
	// contradicting the payload).
	CorruptFormat
	// ReadOnly: a write was attempted on a sketch wrapping a read-only
	// memory region.
	ReadOnly
	// OutOfCapacity: a memory-backed sketch needed to grow and the
	// caller-supplied allocator refused.
	OutOfCapacity
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidState:
		return "InvalidState"
	case CorruptFormat:
		return "CorruptFormat"
	case ReadOnly:
		return "ReadOnly"
	case OutOfCapacity:
		return "OutOfCapacity"
	default:
		return "Unknown"
	}
}

// Error is the single error type every public operation returns. It is
// never partially informative: Kind always identifies which of the five
// documented failure classes occurred.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Is reports whether err is an *Error of the given kind, so callers can
// write `acmerr.Is(err, acmerr.InvalidState)` instead of type-asserting.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

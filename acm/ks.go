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

	"github.com/quantkit/quantkit/internal/acmerr"
)

// ksCriticalValues tabulates c(alpha) for the standard two-sample KS test,
// per 4.3's Kolmogorov-Smirnov query.
var ksCriticalValues = map[float64]float64{
	0.10:  1.2239,
	0.05:  1.3581,
	0.025: 1.4808,
	0.01:  1.6276,
	0.005: 1.7308,
}

// KSDelta computes D = sup|CDF_1(x) - CDF_2(x)| over the union of the two
// auxiliaries' own split points, per 4.3. Callers supply both sketches
// already converted to Aux via BuildAux.
func KSDelta[T comparable](a, b *Aux[T], less func(x, y T) bool) (float64, error) {
	if a.n == 0 || b.n == 0 {
		return 0, acmerr.New(acmerr.InvalidState, "cannot compute KS delta against an empty auxiliary")
	}
	splits := unionSplitPoints(a.values, b.values, less)
	if len(splits) == 0 {
		return 0, nil
	}
	cdfA, err := a.CDF(splits, true)
	if err != nil {
		return 0, err
	}
	cdfB, err := b.CDF(splits, true)
	if err != nil {
		return 0, err
	}
	maxDelta := 0.0
	for i := range cdfA {
		d := math.Abs(cdfA[i] - cdfB[i])
		if d > maxDelta {
			maxDelta = d
		}
	}
	return maxDelta, nil
}

// unionSplitPoints merges the distinct values of two already-sorted slices
// into one strictly increasing slice, the split-point set CDF comparisons
// are evaluated over.
func unionSplitPoints[T comparable](a, b []T, less func(x, y T) bool) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	appendUnique := func(v T) {
		if len(out) == 0 || less(out[len(out)-1], v) {
			out = append(out, v)
		}
	}
	for i < len(a) && j < len(b) {
		switch {
		case less(a[i], b[j]):
			appendUnique(a[i])
			i++
		case less(b[j], a[i]):
			appendUnique(b[j])
			j++
		default:
			appendUnique(a[i])
			i++
			j++
		}
	}
	for ; i < len(a); i++ {
		appendUnique(a[i])
	}
	for ; j < len(b); j++ {
		appendUnique(b[j])
	}
	return out
}

// KSThreshold returns c(alpha) * sqrt((n1+n2) / (n1*n2)), the critical
// value against which KSDelta is compared at significance alpha. alpha
// must be one of the tabulated values {0.10, 0.05, 0.025, 0.01, 0.005}.
func KSThreshold(n1, n2 uint64, alpha float64) (float64, error) {
	c, ok := ksCriticalValues[alpha]
	if !ok {
		return 0, acmerr.New(acmerr.InvalidArgument, "alpha must be one of the tabulated KS significance levels")
	}
	if n1 == 0 || n2 == 0 {
		return 0, acmerr.New(acmerr.InvalidArgument, "both sample sizes must be positive")
	}
	return c * math.Sqrt(float64(n1+n2)/(float64(n1)*float64(n2))), nil
}

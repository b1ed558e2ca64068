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

package internal

// Family identifies a sketch family on the wire: a fixed byte written into
// the preamble and checked on every heapify/wrap so that a buffer produced
// by one family can never be silently misread by another.
type Family struct {
	Id          int
	MaxPreLongs int
}

type families struct {
	Quantiles      Family
	ReservoirItems Family
	ReservoirUnion Family
	VarOptItems    Family
	VarOptUnion    Family
}

// FamilyEnum enumerates the families this module serializes. IDs are
// disjoint from each other; they do not need to match any external
// registry since this module defines its own wire protocol end to end.
var FamilyEnum = &families{
	Quantiles: Family{
		Id:          20,
		MaxPreLongs: 2,
	},
	ReservoirItems: Family{
		Id:          21,
		MaxPreLongs: 1,
	},
	ReservoirUnion: Family{
		Id:          22,
		MaxPreLongs: 1,
	},
	VarOptItems: Family{
		Id:          23,
		MaxPreLongs: 1,
	},
	VarOptUnion: Family{
		Id:          24,
		MaxPreLongs: 1,
	},
}

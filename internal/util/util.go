/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package util

import (
	"cmp"
	"fmt"
	"slices"

	"goarrg.com/debug"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

// PanicMarker is the value every assertion failure panics with.
const PanicMarker = "Fatal Error"

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("vkgen", "internal", "util"),
}

func abort(fmt string, args ...any) {
	instance.logger.EPrintf(fmt, args...)
	panic(PanicMarker)
}

// Abort reports an internal invariant violation along with the caller's
// stack and panics with PanicMarker.
func Abort(format string, args ...any) {
	abort("%s\n%s", fmt.Sprintf(format, args...), debug.StackTrace(1))
}

// IsAbort reports whether a recovered value came from Abort.
func IsAbort(r any) bool {
	s, ok := r.(string)
	return ok && s == PanicMarker
}

func SortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

func MapRunFuncSorted[M ~map[K]V, K cmp.Ordered, V any](m M, f func(K, V) error) error {
	for _, k := range SortedKeys(m) {
		err := f(k, m[k])
		if err != nil {
			return err
		}
	}

	return nil
}

func HasBits[N constraints.Integer](t, want N) bool {
	return (t & want) == want
}

// BitCount returns the number of set bits, used to flag multi-bit values.
func BitCount[N constraints.Unsigned](v N) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Dedup returns s with repeated elements removed, keeping first occurrences.
func Dedup[S ~[]E, E comparable](s S) S {
	seen := make(map[E]struct{}, len(s))
	out := make(S, 0, len(s))
	for _, e := range s {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

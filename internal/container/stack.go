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

package container

import "slices"

// Stack is the LIFO behind the required-marking and topological worklists
// and the emitter's scope closers.
type Stack[E any] struct {
	items []E
}

func (s *Stack[E]) Push(items ...E) {
	s.items = append(s.items, items...)
}

func (s *Stack[E]) Pop() E {
	last := len(s.items) - 1
	e := s.items[last]
	var zero E
	s.items[last] = zero
	s.items = s.items[:last]
	return e
}

func (s *Stack[E]) Peek() E {
	return s.items[len(s.items)-1]
}

func (s *Stack[E]) Len() int {
	return len(s.items)
}

func (s *Stack[E]) Empty() bool {
	return len(s.items) == 0
}

// Values returns the items bottom first.
func (s *Stack[E]) Values() []E {
	return slices.Clone(s.items)
}

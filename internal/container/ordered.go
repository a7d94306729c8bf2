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

// OrderedMap is a map that remembers insertion order. Registry entities are
// kept in one so that emitters walk them in declaration order.
type OrderedMap[K comparable, V any] struct {
	keys  []K
	index map[K]int
	data  []V
}

func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{index: map[K]int{}}
}

func (m *OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	if i, ok := m.index[k]; ok {
		return m.data[i], true
	}
	var zero V
	return zero, false
}

func (m *OrderedMap[K, V]) Has(k K) bool {
	_, ok := m.index[k]
	return ok
}

// Set inserts or replaces. Replacing keeps the original position.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if m.index == nil {
		m.index = map[K]int{}
	}
	if i, ok := m.index[k]; ok {
		m.data[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.data = append(m.data, v)
}

func (m *OrderedMap[K, V]) Delete(k K) {
	i, ok := m.index[k]
	if !ok {
		return
	}
	delete(m.index, k)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.data = append(m.data[:i], m.data[i+1:]...)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
}

func (m *OrderedMap[K, V]) Keys() []K {
	return append([]K(nil), m.keys...)
}

func (m *OrderedMap[K, V]) Values() []V {
	return append([]V(nil), m.data...)
}

// Each stops at the first error and returns it.
func (m *OrderedMap[K, V]) Each(f func(K, V) error) error {
	for i, k := range m.keys {
		if err := f(k, m.data[i]); err != nil {
			return err
		}
	}
	return nil
}

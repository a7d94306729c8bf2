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

import (
	"slices"
	"testing"
)

func TestStack(t *testing.T) {
	s := Stack[string]{}
	if !s.Empty() {
		t.Errorf("Expected empty stack")
	}
	s.Push("VkInstance")
	s.Push("VkDevice")
	if s.Peek() != "VkDevice" || s.Len() != 2 {
		t.Errorf("Expected VkDevice on top of 2 entries, got %q of %d", s.Peek(), s.Len())
	}
	if got := s.Pop(); got != "VkDevice" {
		t.Errorf("Expected VkDevice, got %q", got)
	}
	if got := s.Values(); !slices.Equal(got, []string{"VkInstance"}) {
		t.Errorf("Expected [VkInstance], got %v", got)
	}
	s.Push("VkQueue", "VkCommandBuffer")
	if got := s.Values(); !slices.Equal(got, []string{"VkInstance", "VkQueue", "VkCommandBuffer"}) {
		t.Errorf("Expected bottom first values, got %v", got)
	}
}

func TestOrderedMap(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 10)

	if got := m.Keys(); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("Expected insertion order, got %v", got)
	}
	if v, _ := m.Get("a"); v != 10 {
		t.Errorf("Expected 10, got %d", v)
	}

	m.Delete("c")
	if got := m.Keys(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}
	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Errorf("Expected b=2 after delete, got %d %v", v, ok)
	}
	if m.Has("c") {
		t.Errorf("Expected c to be gone")
	}
}

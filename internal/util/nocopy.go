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

import "goarrg.com/debug"

// NoCopy aborts when the value embedding it is used through a copy. Lock and
// Unlock make go vet's copylocks check report copies as well.
type NoCopy struct {
	self *NoCopy
}

// Init binds n to its address. Binding twice is an assertion failure.
func (n *NoCopy) Init() {
	if n.self != nil {
		abort("NoCopy bound twice:\n%s", debug.StackTrace(0))
	}
	n.self = n
}

// InitLazy binds a zero value on first use and reports whether it did, so
// zero values of the embedder stay usable.
func (n *NoCopy) InitLazy() bool {
	switch n.self {
	case nil:
		n.self = n
		return true
	case n:
		return false
	}
	abort("Value used through a copy:\n%s", debug.StackTrace(0))
	return false
}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}

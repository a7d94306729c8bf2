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

package vkgen

import (
	"fmt"

	"goarrg.com/debug"
	"goarrg.com/rhi/vkgen/emit"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/internal/util"
)

var logger = debug.NewLogger("vkgen")

// recoverAbort turns an assertion raised while generating t into a
// KindAssertion error. Any other panic is not ours and keeps unwinding.
func recoverAbort(t emit.Target, err *error) {
	r := recover()
	if r == nil {
		return
	}
	if !util.IsAbort(r) {
		panic(r)
	}
	*err = fail.Errorf(fail.KindAssertion, "Target %s: %s", t, fmt.Sprint(r))
}

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

// Package fail classifies generator errors so the driver can decide between
// aborting the run, aborting one target, or warning.
package fail

import (
	"errors"

	"goarrg.com/debug"
)

type Kind uint32

const (
	KindUnknown Kind = iota
	KindInput
	KindSemantic
	KindTarget
	KindVerify
	KindTool
	KindAssertion
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input error"
	case KindSemantic:
		return "semantic error"
	case KindTarget:
		return "target error"
	case KindVerify:
		return "verify mismatch"
	case KindTool:
		return "tool warning"
	case KindAssertion:
		return "assertion failure"
	default:
		return "error"
	}
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: debug.Errorf(format, args...)}
}

func Wrapf(kind Kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Err: debug.ErrorWrapf(err, format, args...)}
}

// Annotatef wraps err with more context, keeping its kind.
func Annotatef(err error, format string, args ...any) error {
	return Wrapf(KindOf(err), err, format, args...)
}

// KindOf returns the outermost kind found in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

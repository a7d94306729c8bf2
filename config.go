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
	"slices"
	"strconv"
	"strings"

	"goarrg.com/rhi/vkgen/emit"
	"goarrg.com/rhi/vkgen/internal/fail"
)

type Mode uint32

const (
	// ModeGenerate writes every produced file to Config.OutputDir.
	ModeGenerate Mode = iota
	// ModeVerify compares every produced file against Config.GoldenDir.
	ModeVerify
	// ModeIncremental copies only the files that differ to Config.OutputDir.
	ModeIncremental
	// ModeUpdate overwrites the files in Config.GoldenDir.
	ModeUpdate
)

var modeNames = []string{
	ModeGenerate:    "generate",
	ModeVerify:      "verify",
	ModeIncremental: "incremental",
	ModeUpdate:      "update",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

func (m *Mode) UnmarshalText(text []byte) error {
	i := slices.Index(modeNames, string(text))
	if i < 0 {
		return fail.Errorf(fail.KindInput, "Invalid mode %q, valid modes are: %s", text, strings.Join(modeNames, ", "))
	}
	*m = Mode(i)
	return nil
}

func (m Mode) MarshalText() ([]byte, error) {
	if int(m) >= len(modeNames) {
		return nil, fail.Errorf(fail.KindInput, "Invalid mode %d", uint32(m))
	}
	return []byte(modeNames[m]), nil
}

// ExtInst names an extended instruction set grammar and the prefix given to
// its operand kinds.
type ExtInst struct {
	Prefix string
	Path   string
}

type Config struct {
	// Registry is a vk.xml style registry or a SPIR-V core grammar, picked by
	// file extension.
	Registry   string
	API        string
	MergedAPIs []string
	// Targets defaults to every target reading the registry's input kind.
	Targets []emit.Target

	OutputDir string
	GoldenDir string
	Mode      Mode

	// FormatStyle is handed to clang-format as --style=file:<FormatStyle>,
	// --style=file is used when empty.
	FormatStyle string
	SkipFormat  bool

	Parallel bool
	// FailFast aborts every target on the first error in parallel mode.
	FailFast bool

	VideoXML string
	ExtInsts []ExtInst

	EnabledTags  []string
	DisabledTags []string

	// GoPackage is the package of the go_const output, discovered from the
	// destination directory when empty.
	GoPackage               string
	ExtensionPrototypeGuard bool
	SafeStructOptOut        []string
}

func (c *Config) inputKind() emit.InputKind {
	return emit.InputKindOf(c.Registry)
}

func (c *Config) targets() []emit.Target {
	if len(c.Targets) == 0 {
		return emit.DefaultTargets(c.inputKind())
	}
	return c.Targets
}

// destination is the directory the run writes to, the golden tree in
// verify and update mode.
func (c *Config) destination() string {
	switch c.Mode {
	case ModeVerify, ModeUpdate:
		return c.GoldenDir
	}
	if c.OutputDir == "" {
		return "."
	}
	return c.OutputDir
}

// Validate reports configurations that can never run. Unknown or mismatched
// targets are KindTarget errors, every other problem is KindInput.
func (c *Config) Validate() error {
	if c.Registry == "" {
		return fail.Errorf(fail.KindInput, "No registry provided")
	}
	if int(c.Mode) >= len(modeNames) {
		return fail.Errorf(fail.KindInput, "Invalid mode %d", uint32(c.Mode))
	}
	switch c.API {
	case "", "vulkan", "vulkansc":
	default:
		return fail.Errorf(fail.KindInput, "Unknown API %q, valid APIs are: vulkan, vulkansc", c.API)
	}
	if (c.Mode == ModeVerify || c.Mode == ModeUpdate) && c.GoldenDir == "" {
		return fail.Errorf(fail.KindInput, "Mode %s needs a golden directory", c.Mode)
	}

	kind := c.inputKind()
	seen := map[emit.Target]bool{}
	for _, t := range c.Targets {
		if _, err := t.MarshalText(); err != nil {
			return err
		}
		if seen[t] {
			return fail.Errorf(fail.KindTarget, "Target %s listed twice", t)
		}
		seen[t] = true
		if t.Input() != kind {
			return fail.Errorf(fail.KindTarget, "Target %s needs a %s registry, %q is %s", t, t.Input(), c.Registry, kind)
		}
	}

	if kind == emit.InputJSON {
		if c.VideoXML != "" {
			return fail.Errorf(fail.KindInput, "Video XML only applies to XML registries")
		}
	} else if len(c.ExtInsts) > 0 {
		return fail.Errorf(fail.KindInput, "Extended instruction sets only apply to SPIR-V grammars")
	}
	for _, e := range c.ExtInsts {
		if e.Path == "" {
			return fail.Errorf(fail.KindInput, "Extended instruction set with prefix %q has no path", e.Prefix)
		}
	}
	return nil
}

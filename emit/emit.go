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

// Package emit turns a linked registry or a SPIR-V grammar into generated
// source files. Each Target produces exactly one file.
package emit

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"goarrg.com/debug"
	"goarrg.com/rhi/vkgen/grammar"
	"goarrg.com/rhi/vkgen/internal/container"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/internal/util"
	"goarrg.com/rhi/vkgen/registry"
)

var logger = debug.NewLogger("vkgen", "emit")

// Preamble is the first line of every generated C or C++ file.
const Preamble = "// *** THIS FILE IS GENERATED ***"

type InputKind uint32

const (
	InputXML InputKind = iota
	InputJSON
)

func (k InputKind) String() string {
	if k == InputJSON {
		return "json"
	}
	return "xml"
}

// InputKindOf picks the input kind of a registry path by its extension.
func InputKindOf(path string) InputKind {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return InputJSON
	}
	return InputXML
}

type Target uint32

const (
	TargetHeader Target = iota
	TargetDispatchTable
	TargetEnumStringHelper
	TargetFormatUtils
	TargetSafeStructHeader
	TargetSafeStructSource
	TargetSafeStructUtils
	TargetReflection
	TargetGoConst
	TargetSpirvTables
	targetCount
)

var targetNames = [targetCount]string{
	TargetHeader:           "header",
	TargetDispatchTable:    "dispatch_table",
	TargetEnumStringHelper: "enum_string_helper",
	TargetFormatUtils:      "format_utils",
	TargetSafeStructHeader: "safe_struct_header",
	TargetSafeStructSource: "safe_struct_source",
	TargetSafeStructUtils:  "safe_struct_utils",
	TargetReflection:       "reflection",
	TargetGoConst:          "go_const",
	TargetSpirvTables:      "spirv_tables",
}

func (t Target) String() string {
	if t < targetCount {
		return targetNames[t]
	}
	return fmt.Sprintf("Target(%d)", uint32(t))
}

func ParseTarget(s string) (Target, error) {
	for i, name := range targetNames {
		if name == s {
			return Target(i), nil
		}
	}
	return 0, fail.Errorf(fail.KindTarget, "Unknown target %q, valid targets are: %s", s, strings.Join(targetNames[:], ", "))
}

func (t *Target) UnmarshalText(text []byte) error {
	v, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Target) MarshalText() ([]byte, error) {
	if t >= targetCount {
		return nil, fail.Errorf(fail.KindTarget, "Unknown target %d", uint32(t))
	}
	return []byte(t.String()), nil
}

func (t Target) Input() InputKind {
	if t == TargetSpirvTables {
		return InputJSON
	}
	return InputXML
}

// FileName returns the output file name of t for the given API variant.
func (t Target) FileName(apiName string) string {
	switch t {
	case TargetHeader:
		return headerBase(apiName) + ".h"
	case TargetDispatchTable:
		return "vk_dispatch_table.h"
	case TargetEnumStringHelper:
		return "vk_enum_string_helper.h"
	case TargetFormatUtils:
		return "vk_format_utils.h"
	case TargetSafeStructHeader:
		return "vk_safe_struct.hpp"
	case TargetSafeStructSource:
		return "vk_safe_struct.cpp"
	case TargetSafeStructUtils:
		return "vk_safe_struct_utils.cpp"
	case TargetReflection:
		return apiName + ".json"
	case TargetGoConst:
		return "zvk_const.go"
	case TargetSpirvTables:
		return "core_tables_body.inc"
	}
	util.Abort("Unknown target: %d", uint32(t))
	return ""
}

func headerBase(apiName string) string {
	switch apiName {
	case "", "vulkan":
		return "vulkan_core"
	case "vulkansc":
		return "vulkan_sc_core"
	}
	return apiName + "_core"
}

func AllTargets() []Target {
	list := make([]Target, targetCount)
	for i := range list {
		list[i] = Target(i)
	}
	return list
}

// DefaultTargets lists every target that reads the given input kind.
func DefaultTargets(kind InputKind) []Target {
	var list []Target
	for _, t := range AllTargets() {
		if t.Input() == kind {
			list = append(list, t)
		}
	}
	return list
}

type Input struct {
	API      *registry.API
	Grammar  *grammar.Grammar
	ExtInsts []*grammar.ExtInstSet
}

type GeneratorOptions struct {
	Target Target
	// APIName defaults to the name of the loaded registry API.
	APIName string
	// ExtensionPrototypeGuard additionally wraps extension prototypes in
	// VK_ONLY_EXPORTED_PROTOTYPES.
	ExtensionPrototypeGuard bool
	// SafeStructOptOut lists structs whose safe twin is hand written by the
	// host, DefaultSafeStructOptOut when nil.
	SafeStructOptOut []string
	// GoPackage is the package clause of the go_const target, "vk" when empty.
	GoPackage string
}

type generator struct {
	in   Input
	opts GeneratorOptions
	api  *registry.API

	out    bytes.Buffer
	scopes container.Stack[string]
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.out, format, args...)
}

// open writes line and remembers closer for the matching close call.
func (g *generator) open(line, closer string) {
	g.printf("%s\n", line)
	g.scopes.Push(closer)
}

func (g *generator) close() {
	if g.scopes.Empty() {
		util.Abort("Unbalanced scope close")
	}
	g.printf("%s\n", g.scopes.Pop())
}

// ifdef opens a preprocessor guard when protect is set and reports whether
// it did.
func (g *generator) ifdef(protect string) bool {
	if protect == "" {
		return false
	}
	g.open("#ifdef "+protect, "#endif  // "+protect)
	return true
}

func (g *generator) endif(opened bool) {
	if opened {
		g.close()
	}
}

func (g *generator) source() string {
	if g.api != nil && g.api.Source != "" {
		return filepath.Base(g.api.Source)
	}
	return "registry"
}

// Emit generates the file of opts.Target into w. The output always ends in a
// single newline and uses LF line endings.
func Emit(in Input, opts GeneratorOptions, w io.Writer) error {
	if opts.Target >= targetCount {
		return fail.Errorf(fail.KindTarget, "Unknown target %d", uint32(opts.Target))
	}
	switch opts.Target.Input() {
	case InputXML:
		if in.API == nil {
			return fail.Errorf(fail.KindTarget, "Target %s needs an XML registry", opts.Target)
		}
		if opts.APIName == "" {
			opts.APIName = in.API.Name
		}
	case InputJSON:
		if in.Grammar == nil {
			return fail.Errorf(fail.KindTarget, "Target %s needs a JSON grammar", opts.Target)
		}
	}
	if opts.SafeStructOptOut == nil {
		opts.SafeStructOptOut = DefaultSafeStructOptOut
	}
	if opts.GoPackage == "" {
		opts.GoPackage = "vk"
	}

	g := &generator{in: in, opts: opts, api: in.API}
	logger.IPrintf("Generating %s", opts.Target)

	var err error
	switch opts.Target {
	case TargetHeader:
		err = g.genHeader()
	case TargetDispatchTable:
		err = g.genDispatchTable()
	case TargetEnumStringHelper:
		err = g.genEnumStringHelper()
	case TargetFormatUtils:
		err = g.genFormatUtils()
	case TargetSafeStructHeader:
		err = g.genSafeStructHeader()
	case TargetSafeStructSource:
		err = g.genSafeStructSource()
	case TargetSafeStructUtils:
		err = g.genSafeStructUtils()
	case TargetReflection:
		err = g.genReflection()
	case TargetGoConst:
		err = g.genGoConst()
	case TargetSpirvTables:
		err = g.genSpirvTables()
	}
	if err != nil {
		return fail.Annotatef(err, "Target %s", opts.Target)
	}
	if !g.scopes.Empty() {
		util.Abort("Target %s left %d scopes open", opts.Target, g.scopes.Len())
	}

	data := bytes.ReplaceAll(g.out.Bytes(), []byte("\r\n"), []byte("\n"))
	data = append(bytes.TrimRight(data, "\n"), '\n')
	if _, err := w.Write(data); err != nil {
		return fail.Wrapf(fail.KindInput, err, "Failed to write %s", opts.Target)
	}
	return nil
}

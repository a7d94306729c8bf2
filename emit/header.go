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

package emit

import (
	"strings"

	"goarrg.com/rhi/vkgen/registry"
)

func (g *generator) genHeader() error {
	guard := strings.ToUpper(headerBase(g.opts.APIName)) + "_H_"

	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from %s\n\n", g.source())
	g.open("#ifndef "+guard, "#endif  // "+guard)
	g.printf("#define %s 1\n\n", guard)
	g.open("#ifdef __cplusplus\nextern \"C\" {\n#endif", "#ifdef __cplusplus\n}\n#endif\n")
	g.printf("\n#include \"vk_platform.h\"\n")

	emitted := map[string]bool{}
	for _, s := range g.sections() {
		g.headerSection(s, emitted)
	}

	g.printf("\n")
	g.close()
	g.close()
	return nil
}

func (g *generator) headerSection(s section, emitted map[string]bool) {
	owned := func(name string, o *registry.Origin) bool {
		if emitted[name] || owner(o) != s.name {
			return false
		}
		emitted[name] = true
		return true
	}

	g.printf("\n\n")
	guarded := g.ifdef(s.protect())
	if s.extension != nil {
		g.open("#ifndef "+s.name, "#endif  // "+s.name)
		g.printf("#define %s 1\n", s.name)
	} else {
		g.printf("// %s is a preprocessor guard. Do not pass it to API calls.\n", s.name)
		g.printf("#define %s 1\n", s.name)
	}

	for _, d := range g.api.Defines.Values() {
		if owned(d.Name, &d.Origin) {
			g.printf("%s\n\n", d.Body)
		}
	}
	for _, b := range g.api.BaseTypes.Values() {
		if owned(b.Name, &b.Origin) && b.Body != "" {
			g.printf("%s\n", b.Body)
		}
	}
	for _, h := range g.api.Handles.Values() {
		if owned(h.Name, &h.Origin) {
			if h.Dispatchable {
				g.printf("VK_DEFINE_HANDLE(%s)\n", h.Name)
			} else {
				g.printf("VK_DEFINE_NON_DISPATCHABLE_HANDLE(%s)\n", h.Name)
			}
		}
	}
	for _, c := range g.api.Constants.Values() {
		if owned(c.Name, &c.Origin) {
			g.printf("#define %s %s\n", c.Name, constantValue(c, s.version != nil))
		}
	}
	g.headerTypes(owned)

	var commands []*registry.Command
	var names []string
	for _, a := range g.api.Aliases.Values() {
		if !owned(a.Name, &a.Origin) {
			continue
		}
		switch a.Kind {
		case registry.KindCommand:
			if c, ok := g.api.Commands.Get(a.Target); ok {
				commands = append(commands, c)
				names = append(names, a.Name)
			}
		case registry.KindConstant:
			g.printf("#define %s %s\n", a.Name, a.Target)
		default:
			g.printf("typedef %s %s;\n", a.Target, a.Name)
		}
	}
	{
		var own []*registry.Command
		var ownNames []string
		for _, c := range g.api.Commands.Values() {
			if owned(c.Name, &c.Origin) {
				own = append(own, c)
				ownNames = append(ownNames, c.Name)
			}
		}
		commands = append(own, commands...)
		names = append(ownNames, names...)
	}

	if len(commands) > 0 {
		for i, c := range commands {
			g.printf("typedef %s (VKAPI_PTR *PFN_%s)(%s);\n", c.ReturnType, names[i], paramList(c.Params))
		}
		g.printf("\n")
		g.open("#ifndef VK_NO_PROTOTYPES", "#endif")
		exported := s.extension != nil && g.opts.ExtensionPrototypeGuard
		if exported {
			g.open("#ifndef VK_ONLY_EXPORTED_PROTOTYPES", "#endif")
		}
		for i, c := range commands {
			g.printf("VKAPI_ATTR %s VKAPI_CALL %s(%s);\n", c.ReturnType, names[i], paramList(c.Params))
		}
		if exported {
			g.close()
		}
		g.close()
	}

	if s.extension != nil {
		g.close()
	}
	g.endif(guarded)
}

type headerType struct {
	write func()
	deps  []string
}

// headerTypes writes the enums, bitmasks, flags, function pointers and
// structs of one section in registry declaration order. Dependencies owned by
// the same section are written first, so every name is declared before a
// member or parameter uses it, and a Flags typedef directly follows its
// FlagBits.
func (g *generator) headerTypes(owned func(string, *registry.Origin) bool) {
	types := map[string]*headerType{}
	followers := map[string][]string{}
	var order []string
	add := func(name string, t *headerType) {
		types[name] = t
		order = append(order, name)
	}

	for _, e := range g.api.Enums.Values() {
		if owned(e.Name, &e.Origin) {
			add(e.Name, &headerType{write: func() { g.headerEnum(e) }})
		}
	}
	for _, b := range g.api.Bitmasks.Values() {
		if owned(b.Name, &b.Origin) {
			add(b.Name, &headerType{write: func() { g.headerBitmask(b) }})
		}
	}
	for _, f := range g.api.Flags.Values() {
		if owned(f.Name, &f.Origin) {
			t := &headerType{write: func() { g.printf("typedef %s %s;\n", f.BaseType, f.Name) }}
			if f.BitmaskName != "" {
				t.deps = []string{f.BitmaskName}
				followers[f.BitmaskName] = append(followers[f.BitmaskName], f.Name)
			}
			add(f.Name, t)
		}
	}
	for _, fp := range g.api.FuncPointers.Values() {
		if owned(fp.Name, &fp.Origin) {
			t := &headerType{write: func() { g.printf("%s\n", fp.Body) }}
			t.deps = append(t.deps, g.api.Dealias(baseTypeName(fp.ReturnType)))
			for _, p := range fp.Params {
				t.deps = append(t.deps, g.api.Dealias(p.Type))
			}
			add(fp.Name, t)
		}
	}
	for _, st := range g.api.Structs.Values() {
		if owned(st.Name, &st.Origin) {
			t := &headerType{write: func() { g.headerStruct(st) }}
			for _, m := range st.Members {
				t.deps = append(t.deps, g.api.Dealias(m.Type))
			}
			add(st.Name, t)
		}
	}

	done := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		t, ok := types[name]
		if !ok || done[name] {
			return
		}
		done[name] = true
		for _, d := range t.deps {
			visit(d)
		}
		t.write()
		for _, f := range followers[name] {
			visit(f)
		}
	}
	for _, name := range g.api.TypeOrder {
		visit(name)
	}
	// Bitmasks without a <type> entry of their own.
	for _, name := range order {
		visit(name)
	}
}

func baseTypeName(full string) string {
	base := strings.TrimSpace(strings.TrimPrefix(full, "const "))
	base = strings.TrimSpace(strings.TrimRight(base, "*"))
	return strings.TrimSuffix(base, " const")
}

func paramList(params []*registry.Param) string {
	if len(params) == 0 {
		return "void"
	}
	decls := make([]string, len(params))
	for i, p := range params {
		decls[i] = p.CDeclaration
	}
	return strings.Join(decls, ", ")
}

// constantValue adds the integer suffix core constants carry in the
// published headers.
func constantValue(c *registry.Constant, core bool) string {
	if !core || !c.IsInt || strings.ContainsAny(c.Value, "()~") {
		return c.Value
	}
	switch c.Type {
	case "uint32_t":
		return c.Value + "U"
	case "uint64_t":
		return c.Value + "ULL"
	}
	return c.Value
}

func (g *generator) headerEnum(e *registry.Enum) {
	g.printf("\ntypedef enum %s {\n", e.Name)
	for _, f := range e.Fields {
		guarded := g.ifdef(f.Protect)
		if f.Alias != "" {
			g.printf("    %s = %s,\n", f.Name, f.Alias)
		} else {
			g.printf("    %s = %s,\n", f.Name, f.ValueStr)
		}
		g.endif(guarded)
	}
	g.printf("    %s = 0x7FFFFFFF\n", g.maxEnumName(e.Name))
	g.printf("} %s;\n", e.Name)
}

func (g *generator) headerBitmask(b *registry.Bitmask) {
	if b.BitWidth == 64 {
		g.printf("\n// Flag bits for %s\n", b.FlagName)
		g.printf("typedef VkFlags64 %s;\n", b.Name)
		for _, f := range b.Flags {
			guarded := g.ifdef(f.Protect)
			if f.Alias != "" {
				g.printf("static const %s %s = %s;\n", b.Name, f.Name, f.Alias)
			} else {
				g.printf("static const %s %s = %sULL;\n", b.Name, f.Name, f.ValueStr)
			}
			g.endif(guarded)
		}
		return
	}

	g.printf("\ntypedef enum %s {\n", b.Name)
	for _, f := range b.Flags {
		guarded := g.ifdef(f.Protect)
		if f.Alias != "" {
			g.printf("    %s = %s,\n", f.Name, f.Alias)
		} else {
			g.printf("    %s = %s,\n", f.Name, f.ValueStr)
		}
		g.endif(guarded)
	}
	g.printf("    %s = 0x7FFFFFFF\n", g.maxEnumName(b.Name))
	g.printf("} %s;\n", b.Name)
}

func (g *generator) headerStruct(s *registry.Struct) {
	kind := "struct"
	if s.Union {
		kind = "union"
	}
	width := 0
	for _, m := range s.Members {
		width = max(width, len(m.FullType))
	}
	width += 4

	g.printf("\ntypedef %s %s {\n", kind, s.Name)
	for _, m := range s.Members {
		decl := strings.TrimPrefix(m.CDeclaration, m.FullType+" ")
		g.printf("    %-*s%s;\n", width, m.FullType, decl)
	}
	g.printf("} %s;\n", s.Name)
}

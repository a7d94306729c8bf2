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
	"goarrg.com/rhi/vkgen/registry"
)

func (g *generator) genEnumStringHelper() error {
	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from %s\n\n", g.source())
	g.printf("#pragma once\n")
	g.printf("#ifdef __cplusplus\n#include <string>\n#endif\n")
	g.printf("#include <vulkan/vulkan.h>\n")

	for _, e := range g.api.Enums.Values() {
		guarded := g.ifdef(e.Protect())
		g.stringEnum(e)
		g.endif(guarded)
	}
	for _, b := range g.api.Bitmasks.Values() {
		guarded := g.ifdef(b.Protect())
		g.stringBitmask(b)
		g.endif(guarded)
	}
	return nil
}

// stringEnum writes string_<Enum>. Aliases fold into the case of their
// canonical value and values already handled are skipped.
func (g *generator) stringEnum(e *registry.Enum) {
	g.printf("static inline const char* string_%s(%s input_value) {\n", e.Name, e.Name)
	g.printf("    switch (input_value) {\n")
	seen := map[int64]bool{}
	for _, f := range e.Fields {
		if f.Alias != "" || seen[f.Value] {
			continue
		}
		seen[f.Value] = true
		guarded := g.ifdef(f.Protect)
		g.printf("        case %s:\n", f.Name)
		g.printf("            return \"%s\";\n", f.Name)
		g.endif(guarded)
	}
	g.printf("        default:\n")
	g.printf("            return \"Unhandled %s\";\n", e.Name)
	g.printf("    }\n")
	g.printf("}\n")
}

func (g *generator) stringBitmask(b *registry.Bitmask) {
	single := func(yield func(*registry.Flag)) {
		seen := map[uint64]bool{}
		for _, f := range b.Flags {
			if f.Alias != "" || f.Zero || f.MultiBit || seen[f.Value] {
				continue
			}
			seen[f.Value] = true
			yield(f)
		}
	}

	if b.BitWidth == 64 {
		g.printf("static inline const char* string_%s(uint64_t input_value) {\n", b.Name)
		single(func(f *registry.Flag) {
			guarded := g.ifdef(f.Protect)
			g.printf("    if (input_value == %s) return \"%s\";\n", f.Name, f.Name)
			g.endif(guarded)
		})
		g.printf("    return \"Unhandled %s\";\n", b.Name)
		g.printf("}\n")
	} else {
		g.printf("static inline const char* string_%s(%s input_value) {\n", b.Name, b.Name)
		g.printf("    switch (input_value) {\n")
		single(func(f *registry.Flag) {
			guarded := g.ifdef(f.Protect)
			g.printf("        case %s:\n", f.Name)
			g.printf("            return \"%s\";\n", f.Name)
			g.endif(guarded)
		})
		g.printf("        default:\n")
		g.printf("            return \"Unhandled %s\";\n", b.Name)
		g.printf("    }\n")
		g.printf("}\n")
	}

	if b.FlagName == "" {
		return
	}
	cast := "static_cast<" + b.Name + ">(1U << index)"
	if b.BitWidth == 64 {
		cast = "static_cast<uint64_t>(1ULL << index)"
	}
	g.open("\n#ifdef __cplusplus", "#endif  // __cplusplus")
	g.printf("static inline std::string string_%s(%s input_value) {\n", b.FlagName, b.FlagName)
	g.printf("    std::string ret;\n")
	g.printf("    int index = 0;\n")
	g.printf("    while (input_value) {\n")
	g.printf("        if (input_value & 1) {\n")
	g.printf("            if (!ret.empty()) ret.append(\"|\");\n")
	g.printf("            ret.append(string_%s(%s));\n", b.Name, cast)
	g.printf("        }\n")
	g.printf("        ++index;\n")
	g.printf("        input_value >>= 1;\n")
	g.printf("    }\n")
	g.printf("    if (ret.empty()) ret.append(\"%s(0)\");\n", b.FlagName)
	g.printf("    return ret;\n")
	g.printf("}\n")
	g.close()
}

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
	"fmt"
	"slices"
	"strings"

	"goarrg.com/rhi/vkgen/internal/util"
	"goarrg.com/rhi/vkgen/registry"
)

// DefaultSafeStructOptOut lists the structs whose safe twins need host side
// knowledge to deep copy, their methods are declared but not generated.
var DefaultSafeStructOptOut = []string{
	"VkAccelerationStructureBuildGeometryInfoKHR",
	"VkAccelerationStructureGeometryKHR",
	"VkMicromapBuildInfoEXT",
	"VkXlibSurfaceCreateInfoKHR",
	"VkXcbSurfaceCreateInfoKHR",
	"VkWaylandSurfaceCreateInfoKHR",
}

// safeGates holds copy conditions that the registry does not express, the
// verb is replaced by the source prefix.
var safeGates = map[string]string{
	"VkFramebufferCreateInfo.pAttachments":            "!(%[1]sflags & VK_FRAMEBUFFER_CREATE_IMAGELESS_BIT)",
	"VkDescriptorSetLayoutBinding.pImmutableSamplers": descriptorTypeGate("SAMPLER", "COMBINED_IMAGE_SAMPLER"),
	"VkWriteDescriptorSet.pImageInfo": descriptorTypeGate("SAMPLER", "COMBINED_IMAGE_SAMPLER",
		"SAMPLED_IMAGE", "STORAGE_IMAGE", "INPUT_ATTACHMENT"),
	"VkWriteDescriptorSet.pBufferInfo": descriptorTypeGate("UNIFORM_BUFFER", "STORAGE_BUFFER",
		"UNIFORM_BUFFER_DYNAMIC", "STORAGE_BUFFER_DYNAMIC"),
	"VkWriteDescriptorSet.pTexelBufferView": descriptorTypeGate("UNIFORM_TEXEL_BUFFER", "STORAGE_TEXEL_BUFFER"),
}

// descriptorTypeGate matches descriptorType against VK_DESCRIPTOR_TYPE_ values.
func descriptorTypeGate(types ...string) string {
	terms := make([]string, len(types))
	for i, t := range types {
		terms[i] = "%[1]sdescriptorType == VK_DESCRIPTOR_TYPE_" + t
	}
	return "(" + strings.Join(terms, " || ") + ")"
}

type safeKind uint32

const (
	safePlain safeKind = iota
	safeShallow
	safePNext
	safeString
	safeStringArray
	safeStructValue
	safeStructFixed
	safeStructPointer
	safeStructArray
	safeFixedArray
	safeArray
	safeByteArray
	safeSingle
)

func safeName(name string) string {
	return "safe_" + name
}

// safeStructs returns every struct that gets a safe twin. A struct needs one
// when it has an sType or a pointer, or embeds or points at a struct that
// needs one.
func (g *generator) safeStructs() map[string]bool {
	safe := map[string]bool{}
	for _, s := range g.api.Structs.Values() {
		if s.Union || s.Name == "VkBaseInStructure" || s.Name == "VkBaseOutStructure" {
			continue
		}
		if s.SType != "" || slices.ContainsFunc(s.Members, func(m *registry.Member) bool { return m.Pointer }) {
			safe[s.Name] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, s := range g.api.Structs.Values() {
			if safe[s.Name] || s.Union || s.Name == "VkBaseInStructure" || s.Name == "VkBaseOutStructure" {
				continue
			}
			for _, m := range s.Members {
				if m.Struct != nil && safe[m.Struct.Name] {
					safe[s.Name] = true
					changed = true
					break
				}
			}
		}
	}
	return safe
}

// safeOrder lists safe structs in declaration order, which already places
// structs after every struct they embed by value.
func (g *generator) safeOrder() ([]*registry.Struct, map[string]bool) {
	safe := g.safeStructs()
	var list []*registry.Struct
	for _, s := range g.api.Structs.Values() {
		if safe[s.Name] {
			list = append(list, s)
		}
	}
	return list, safe
}

func (g *generator) optedOut(name string) bool {
	return slices.Contains(g.opts.SafeStructOptOut, name)
}

func safeKindOf(m *registry.Member, safe map[string]bool) safeKind {
	nested := m.Struct != nil && safe[m.Struct.Name]
	switch {
	case m.IsPNext():
		return safePNext
	case m.IsString():
		return safeString
	case m.IsStringArray():
		if m.Length == "" {
			return safeShallow
		}
		return safeStringArray
	case nested && m.PointerDepth == 0 && len(m.FixedSizeArray) > 0:
		return safeStructFixed
	case nested && m.PointerDepth == 0:
		return safeStructValue
	case nested && m.PointerDepth == 1 && m.Length != "":
		return safeStructArray
	case nested && m.PointerDepth == 1:
		return safeStructPointer
	case m.PointerDepth == 0 && len(m.FixedSizeArray) > 0:
		return safeFixedArray
	case m.PointerDepth == 0:
		return safePlain
	case m.PointerDepth == 1 && m.Type == "void" && m.Length != "":
		return safeByteArray
	case m.PointerDepth == 1 && m.Length != "":
		return safeArray
	case m.PointerDepth == 1 && m.Type != "void":
		return safeSingle
	}
	return safeShallow
}

// safeDecl is the member declaration inside the safe twin.
func safeDecl(m *registry.Member, kind safeKind) string {
	switch kind {
	case safeStructValue:
		return safeName(m.Struct.Name) + " " + m.Name
	case safeStructFixed:
		return safeName(m.Struct.Name) + " " + m.Name + "[" + strings.Join(m.FixedSizeArray, "][") + "]"
	case safeStructPointer, safeStructArray:
		return safeName(m.Struct.Name) + "* " + m.Name + "{}"
	case safePlain:
		if m.Values != "" && !strings.Contains(m.Values, ",") {
			return m.CDeclaration + " = " + m.Values
		}
		if m.BitFieldWidth > 0 {
			return m.CDeclaration
		}
	}
	return m.CDeclaration + "{}"
}

func (g *generator) genSafeStructHeader() error {
	list, safe := g.safeOrder()

	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from %s\n\n", g.source())
	g.printf("#pragma once\n\n")
	g.printf("#include <vulkan/vulkan.h>\n\n")
	g.printf("#include <cstdint>\n#include <cstring>\n#include <functional>\n#include <utility>\n#include <vector>\n\n")
	g.open("namespace vku {", "}  // namespace vku")

	g.printf("\n// Sizes of pNext structures unknown to this file, keyed by sType. Unknown\n")
	g.printf("// structures are copied as a blob when listed and dropped otherwise.\n")
	g.printf("extern std::vector<std::pair<uint32_t, uint32_t>> custom_stype_info;\n\n")
	g.printf("struct PNextCopyState {\n")
	g.printf("    // Called after each pNext node is copied.\n")
	g.printf("    std::function<bool(VkBaseOutStructure* safe_struct, const VkBaseOutStructure* in_struct)> init;\n")
	g.printf("};\n\n")
	g.printf("void* SafePnextCopy(const void* pNext, PNextCopyState* copy_state = {});\n")
	g.printf("void FreePnextChain(const void* pNext);\n")
	g.printf("char* SafeStringCopy(const char* in_string);\n\n")

	for _, s := range list {
		guarded := g.ifdef(s.Protect())
		g.printf("struct %s;\n", safeName(s.Name))
		g.endif(guarded)
	}

	for _, s := range list {
		guarded := g.ifdef(s.Protect())
		sn := safeName(s.Name)
		g.printf("\nstruct %s {\n", sn)
		for _, m := range s.Members {
			g.printf("    %s;\n", safeDecl(m, safeKindOf(m, safe)))
		}
		g.printf("\n")
		g.printf("    %s(const %s* in_struct, PNextCopyState* copy_state = {}, bool copy_pnext = true);\n", sn, s.Name)
		g.printf("    %s(const %s& copy_src);\n", sn, sn)
		g.printf("    %s& operator=(const %s& copy_src);\n", sn, sn)
		g.printf("    %s();\n", sn)
		g.printf("    ~%s();\n", sn)
		g.printf("    void initialize(const %s* in_struct, PNextCopyState* copy_state = {}, bool copy_pnext = true);\n", s.Name)
		g.printf("    void initialize(const %s* copy_src, PNextCopyState* copy_state = {});\n", sn)
		g.printf("    %s* ptr() { return reinterpret_cast<%s*>(this); }\n", s.Name, s.Name)
		g.printf("    %s const* ptr() const { return reinterpret_cast<%s const*>(this); }\n", s.Name, s.Name)
		g.printf("\n  private:\n")
		g.printf("    void release();\n")
		g.printf("};\n")
		g.endif(guarded)
	}
	g.printf("\n")
	g.close()
	return nil
}

// safeCopy writes the statements copying m from src, which is in_struct->
// for the raw struct or copy_src-> for another safe twin.
func (g *generator) safeCopy(s *registry.Struct, m *registry.Member, kind safeKind, src string, fromSafe bool) {
	name := m.Name
	from := src + name
	length := ""
	if m.Length != "" {
		length = "(" + lengthExpr(m.Length, s, src) + ")"
	}
	cond := from
	if gate, ok := safeGates[s.Name+"."+name]; ok {
		cond = fmt.Sprintf("%s && %s", from, fmt.Sprintf(gate, src))
	}
	if length != "" {
		cond = length + " && " + cond
	}

	switch kind {
	case safePlain:
		g.printf("    %s = %s;\n", name, from)
	case safeShallow:
		g.printf("    %s = %s;\n", name, from)
	case safeFixedArray:
		g.printf("    memcpy((void*)%s, (const void*)%s, sizeof(%s));\n", name, from, name)
	case safePNext:
		if fromSafe {
			g.printf("    %s = SafePnextCopy(%s);\n", name, from)
		} else {
			g.printf("    if (copy_pnext) {\n")
			g.printf("        %s = SafePnextCopy(%s, copy_state);\n", name, from)
			g.printf("    }\n")
		}
	case safeString:
		g.printf("    %s = SafeStringCopy(%s);\n", name, from)
	case safeStringArray:
		g.printf("    if (%s) {\n", cond)
		g.printf("        char** tmp_%s = new char*[%s];\n", name, length)
		g.printf("        for (uint32_t i = 0; i < %s; ++i) {\n", length)
		g.printf("            tmp_%s[i] = SafeStringCopy(%s[i]);\n", name, from)
		g.printf("        }\n")
		g.printf("        %s = tmp_%s;\n", name, name)
		g.printf("    }\n")
	case safeStructValue:
		if fromSafe {
			g.printf("    %s.initialize(&%s);\n", name, from)
		} else {
			g.printf("    %s.initialize(&%s, copy_state);\n", name, from)
		}
	case safeStructFixed:
		if len(m.FixedSizeArray) != 1 {
			util.Abort("%s.%s: multi dimensional arrays of safe structs are not supported", s.Name, name)
		}
		g.printf("    for (uint32_t i = 0; i < %s; ++i) {\n", m.FixedSizeArray[0])
		if fromSafe {
			g.printf("        %s[i].initialize(&%s[i]);\n", name, from)
		} else {
			g.printf("        %s[i].initialize(&%s[i], copy_state);\n", name, from)
		}
		g.printf("    }\n")
	case safeStructPointer:
		g.printf("    if (%s) {\n", cond)
		if fromSafe {
			g.printf("        %s = new %s(*%s);\n", name, safeName(m.Struct.Name), from)
		} else {
			g.printf("        %s = new %s(%s, copy_state);\n", name, safeName(m.Struct.Name), from)
		}
		g.printf("    }\n")
	case safeStructArray:
		g.printf("    if (%s) {\n", cond)
		g.printf("        %s = new %s[%s];\n", name, safeName(m.Struct.Name), length)
		g.printf("        for (uint32_t i = 0; i < %s; ++i) {\n", length)
		if fromSafe {
			g.printf("            %s[i].initialize(&%s[i]);\n", name, from)
		} else {
			g.printf("            %s[i].initialize(&%s[i], copy_state);\n", name, from)
		}
		g.printf("        }\n")
		g.printf("    }\n")
	case safeArray:
		g.printf("    if (%s) {\n", cond)
		g.printf("        %s = new %s[%s];\n", name, m.Type, length)
		g.printf("        memcpy((void*)%s, (const void*)%s, sizeof(%s) * %s);\n", name, from, m.Type, length)
		g.printf("    }\n")
	case safeByteArray:
		g.printf("    if (%s) {\n", cond)
		g.printf("        auto tmp_%s = new uint8_t[%s];\n", name, length)
		g.printf("        memcpy((void*)tmp_%s, (const void*)%s, %s);\n", name, from, length)
		g.printf("        %s = tmp_%s;\n", name, name)
		g.printf("    }\n")
	case safeSingle:
		g.printf("    if (%s) {\n", cond)
		g.printf("        %s = new %s(*%s);\n", name, m.Type, from)
		g.printf("    }\n")
	}
}

// safeRelease writes the statements releasing what safeCopy allocated.
func (g *generator) safeRelease(s *registry.Struct, m *registry.Member, kind safeKind) {
	name := m.Name
	switch kind {
	case safePNext:
		g.printf("    FreePnextChain(%s);\n", name)
		g.printf("    %s = nullptr;\n", name)
	case safeString, safeArray, safeStructArray:
		g.printf("    delete[] %s;\n", name)
		g.printf("    %s = nullptr;\n", name)
	case safeStringArray:
		g.printf("    if (%s) {\n", name)
		g.printf("        for (uint32_t i = 0; i < %s; ++i) {\n", "("+lengthExpr(m.Length, s, "")+")")
		g.printf("            delete[] %s[i];\n", name)
		g.printf("        }\n")
		g.printf("        delete[] %s;\n", name)
		g.printf("    }\n")
		g.printf("    %s = nullptr;\n", name)
	case safeByteArray:
		g.printf("    delete[] reinterpret_cast<const uint8_t*>(%s);\n", name)
		g.printf("    %s = nullptr;\n", name)
	case safeStructPointer, safeSingle:
		g.printf("    delete %s;\n", name)
		g.printf("    %s = nullptr;\n", name)
	}
}

func (g *generator) genSafeStructSource() error {
	list, safe := g.safeOrder()

	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from %s\n\n", g.source())
	g.printf("#include \"vk_safe_struct.hpp\"\n\n")
	g.printf("#include <cstddef>\n#include <cstring>\n\n")
	g.open("namespace vku {", "}  // namespace vku")

	for _, s := range list {
		if g.optedOut(s.Name) {
			logger.VPrintf("Skipping opted out safe struct %q", s.Name)
			continue
		}
		guarded := g.ifdef(s.Protect())
		sn := safeName(s.Name)
		kinds := make([]safeKind, len(s.Members))
		for i, m := range s.Members {
			kinds[i] = safeKindOf(m, safe)
		}

		g.printf("\n%s::%s(const %s* in_struct, [[maybe_unused]] PNextCopyState* copy_state, bool copy_pnext) {\n", sn, sn, s.Name)
		g.printf("    initialize(in_struct, copy_state, copy_pnext);\n")
		g.printf("}\n\n")
		g.printf("%s::%s() {}\n\n", sn, sn)
		g.printf("%s::%s(const %s& copy_src) { initialize(&copy_src); }\n\n", sn, sn, sn)
		g.printf("%s& %s::operator=(const %s& copy_src) {\n", sn, sn, sn)
		g.printf("    if (&copy_src == this) return *this;\n")
		g.printf("    initialize(&copy_src);\n")
		g.printf("    return *this;\n")
		g.printf("}\n\n")
		g.printf("%s::~%s() { release(); }\n\n", sn, sn)

		g.printf("void %s::release() {\n", sn)
		for i, m := range s.Members {
			g.safeRelease(s, m, kinds[i])
		}
		g.printf("}\n\n")

		g.printf("void %s::initialize(const %s* in_struct, [[maybe_unused]] PNextCopyState* copy_state, [[maybe_unused]] bool copy_pnext) {\n", sn, s.Name)
		g.printf("    release();\n")
		for i, m := range s.Members {
			g.safeCopy(s, m, kinds[i], "in_struct->", false)
		}
		g.printf("}\n\n")

		g.printf("void %s::initialize(const %s* copy_src, [[maybe_unused]] PNextCopyState* copy_state) {\n", sn, sn)
		g.printf("    release();\n")
		for i, m := range s.Members {
			g.safeCopy(s, m, kinds[i], "copy_src->", true)
		}
		g.printf("}\n")
		g.endif(guarded)
	}
	g.printf("\n")
	g.close()
	return nil
}

// chainable lists the safe structs that can appear in a pNext chain.
func (g *generator) chainable() []*registry.Struct {
	list, _ := g.safeOrder()
	var out []*registry.Struct
	for _, s := range list {
		if s.SType != "" && len(s.Extends) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (g *generator) genSafeStructUtils() error {
	chain := g.chainable()

	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from %s\n\n", g.source())
	g.printf("#include \"vk_safe_struct.hpp\"\n\n")
	g.printf("#include <cstdlib>\n#include <cstring>\n\n")
	g.open("namespace vku {", "}  // namespace vku")

	g.printf("\nstd::vector<std::pair<uint32_t, uint32_t>> custom_stype_info{};\n\n")

	g.printf("char* SafeStringCopy(const char* in_string) {\n")
	g.printf("    if (nullptr == in_string) return nullptr;\n")
	g.printf("    size_t len = strlen(in_string);\n")
	g.printf("    char* dest = new char[len + 1];\n")
	g.printf("    memcpy(dest, in_string, len + 1);\n")
	g.printf("    return dest;\n")
	g.printf("}\n\n")

	g.printf("void* SafePnextCopy(const void* pNext, PNextCopyState* copy_state) {\n")
	g.printf("    void* first_pNext{};\n")
	g.printf("    VkBaseOutStructure* prev_pNext{};\n")
	g.printf("    void* safe_pNext{};\n\n")
	g.printf("    while (pNext) {\n")
	g.printf("        const VkBaseOutStructure* header = reinterpret_cast<const VkBaseOutStructure*>(pNext);\n\n")
	g.printf("        switch (header->sType) {\n")
	for _, s := range chain {
		guarded := g.ifdef(s.Protect())
		g.printf("            case %s:\n", s.SType)
		g.printf("                safe_pNext = new %s(reinterpret_cast<const %s*>(pNext), copy_state, false);\n", safeName(s.Name), s.Name)
		g.printf("                break;\n")
		g.endif(guarded)
	}
	g.printf("            default: {\n")
	g.printf("                for (auto item : custom_stype_info) {\n")
	g.printf("                    if (item.first == static_cast<uint32_t>(header->sType)) {\n")
	g.printf("                        safe_pNext = malloc(item.second);\n")
	g.printf("                        memcpy(safe_pNext, header, item.second);\n")
	g.printf("                        reinterpret_cast<VkBaseOutStructure*>(safe_pNext)->pNext = nullptr;\n")
	g.printf("                        break;\n")
	g.printf("                    }\n")
	g.printf("                }\n")
	g.printf("                break;\n")
	g.printf("            }\n")
	g.printf("        }\n\n")
	g.printf("        if (safe_pNext) {\n")
	g.printf("            if (copy_state && copy_state->init) {\n")
	g.printf("                copy_state->init(reinterpret_cast<VkBaseOutStructure*>(safe_pNext), header);\n")
	g.printf("            }\n")
	g.printf("            if (!first_pNext) {\n")
	g.printf("                first_pNext = safe_pNext;\n")
	g.printf("            }\n")
	g.printf("            if (prev_pNext) {\n")
	g.printf("                prev_pNext->pNext = reinterpret_cast<VkBaseOutStructure*>(safe_pNext);\n")
	g.printf("            }\n")
	g.printf("            prev_pNext = reinterpret_cast<VkBaseOutStructure*>(safe_pNext);\n")
	g.printf("            safe_pNext = nullptr;\n")
	g.printf("        }\n")
	g.printf("        pNext = header->pNext;\n")
	g.printf("    }\n\n")
	g.printf("    return first_pNext;\n")
	g.printf("}\n\n")

	g.printf("void FreePnextChain(const void* pNext) {\n")
	g.printf("    void* current = const_cast<void*>(pNext);\n")
	g.printf("    while (current) {\n")
	g.printf("        auto header = reinterpret_cast<VkBaseOutStructure*>(current);\n")
	g.printf("        void* next = header->pNext;\n")
	g.printf("        // Detach first so the destructors below do not walk the chain again.\n")
	g.printf("        header->pNext = nullptr;\n\n")
	g.printf("        switch (header->sType) {\n")
	for _, s := range chain {
		guarded := g.ifdef(s.Protect())
		g.printf("            case %s:\n", s.SType)
		g.printf("                delete reinterpret_cast<%s*>(header);\n", safeName(s.Name))
		g.printf("                break;\n")
		g.endif(guarded)
	}
	g.printf("            default:\n")
	g.printf("                free(current);\n")
	g.printf("                break;\n")
	g.printf("        }\n")
	g.printf("        current = next;\n")
	g.printf("    }\n")
	g.printf("}\n\n")

	g.close()
	return nil
}

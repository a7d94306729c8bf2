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
	"strings"

	"goarrg.com/rhi/vkgen/internal/util"
	"goarrg.com/rhi/vkgen/registry"
)

const (
	formatMaxComponents = 4
	formatMaxPlanes     = 3
)

var formatComponentTypes = []string{"R", "G", "B", "A", "D", "S"}

func compatibilityClassName(class string) string {
	class = strings.ReplaceAll(strings.ToUpper(class), "-", "")
	return sanitizeIdent("VKU_FORMAT_COMPATIBILITY_CLASS_" + strings.ReplaceAll(class, " ", "_"))
}

func numericalTypeName(nf string) string {
	if nf == "" {
		return "VKU_FORMAT_NUMERICAL_TYPE_NONE"
	}
	return "VKU_FORMAT_NUMERICAL_TYPE_" + sanitizeIdent(nf)
}

// formatSwitch writes a function whose body is a switch over every format.
// Formats producing the same body share one set of case labels, formats
// producing an empty body fall through to def.
func (g *generator) formatSwitch(signature, def string, body func(*registry.Format) string) {
	groups := map[string][]*registry.Format{}
	var order []string
	for _, f := range g.api.Formats {
		b := body(f)
		if b == "" {
			continue
		}
		if _, ok := groups[b]; !ok {
			order = append(order, b)
		}
		groups[b] = append(groups[b], f)
	}

	g.printf("\nstatic inline %s {\n", signature)
	g.printf("    switch (format) {\n")
	for _, b := range order {
		for _, f := range groups[b] {
			guarded := g.ifdef(f.Protect())
			g.printf("        case %s:\n", f.Name)
			g.endif(guarded)
		}
		g.printf("            %s\n", b)
	}
	g.printf("        default:\n")
	g.printf("            %s\n", def)
	g.printf("    }\n")
	g.printf("}\n")
}

func (g *generator) formatPredicate(name string, pred func(*registry.Format) bool) {
	g.formatSwitch("bool "+name+"(VkFormat format)", "return false;", func(f *registry.Format) string {
		if pred(f) {
			return "return true;"
		}
		return ""
	})
}

func (g *generator) formatUint(name string, def uint32, value func(*registry.Format) uint32) {
	g.formatSwitch("uint32_t "+name+"(VkFormat format)", fmt.Sprintf("return %d;", def), func(f *registry.Format) string {
		if v := value(f); v != def {
			return fmt.Sprintf("return %d;", v)
		}
		return ""
	})
}

func (g *generator) formatNumerical(name string, value func(*registry.Format) string) {
	g.formatSwitch("enum VKU_FORMAT_NUMERICAL_TYPE "+name+"(VkFormat format)", "return "+numericalTypeName("")+";", func(f *registry.Format) string {
		if v := value(f); v != "" {
			return "return " + numericalTypeName(v) + ";"
		}
		return ""
	})
}

func (g *generator) formatEnums() ([]string, []string, []string) {
	numerical := map[string]bool{}
	classes := map[string]bool{}
	compressed := map[string]bool{}
	for _, f := range g.api.Formats {
		classes[f.ClassName] = true
		if f.Compressed != "" {
			compressed[f.Compressed] = true
		}
		for _, c := range f.Components {
			if c.NumericFormat != "" {
				numerical[c.NumericFormat] = true
			}
		}
	}
	return util.SortedKeys(numerical), util.SortedKeys(classes), util.SortedKeys(compressed)
}

func (g *generator) genFormatUtils() error {
	numerical, classes, compressed := g.formatEnums()

	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from %s\n\n", g.source())
	g.printf("#pragma once\n\n")
	g.printf("#include <stdbool.h>\n#include <stdint.h>\n#include <vulkan/vulkan.h>\n\n")
	g.open("#ifdef __cplusplus\nextern \"C\" {\n#endif", "#ifdef __cplusplus\n}\n#endif")

	g.printf("\n#define VKU_FORMAT_INVALID_INDEX 0xFFFFFFFF\n")
	g.printf("#define VKU_FORMAT_MAX_PLANES %d\n", formatMaxPlanes)
	g.printf("#define VKU_FORMAT_MAX_COMPONENTS %d\n\n", formatMaxComponents)

	g.printf("enum VKU_FORMAT_NUMERICAL_TYPE {\n")
	g.printf("    %s = 0,\n", numericalTypeName(""))
	for _, nf := range numerical {
		g.printf("    %s,\n", numericalTypeName(nf))
	}
	g.printf("};\n\n")

	g.printf("enum VKU_FORMAT_COMPATIBILITY_CLASS {\n")
	g.printf("    VKU_FORMAT_COMPATIBILITY_CLASS_NONE = 0,\n")
	for _, c := range classes {
		g.printf("    %s,\n", compatibilityClassName(c))
	}
	g.printf("    VKU_FORMAT_COMPATIBILITY_CLASS_MAX_ENUM = 0x7FFFFFFF\n")
	g.printf("};\n\n")

	g.printf("enum VKU_FORMAT_COMPONENT_TYPE {\n")
	g.printf("    VKU_FORMAT_COMPONENT_TYPE_NONE,\n")
	for _, c := range formatComponentTypes {
		g.printf("    VKU_FORMAT_COMPONENT_TYPE_%s,\n", c)
	}
	g.printf("    VKU_FORMAT_COMPONENT_TYPE_COMPRESSED,\n")
	g.printf("};\n\n")

	g.printf("struct VKU_FORMAT_COMPONENT_INFO {\n")
	g.printf("    enum VKU_FORMAT_COMPONENT_TYPE type;\n")
	g.printf("    uint32_t size;  // bits, 0 when compressed\n")
	g.printf("};\n\n")

	g.printf("struct VKU_FORMAT_INFO {\n")
	g.printf("    enum VKU_FORMAT_COMPATIBILITY_CLASS compatibility;\n")
	g.printf("    uint32_t block_size;  // bytes per texel block\n")
	g.printf("    uint32_t texel_per_block;\n")
	g.printf("    VkExtent3D block_extent;\n")
	g.printf("    uint32_t component_count;\n")
	g.printf("    struct VKU_FORMAT_COMPONENT_INFO components[VKU_FORMAT_MAX_COMPONENTS];\n")
	g.printf("};\n\n")

	g.printf("struct VKU_FORMAT_PER_PLANE_COMPATIBILITY {\n")
	g.printf("    uint32_t width_divisor;\n")
	g.printf("    uint32_t height_divisor;\n")
	g.printf("    VkFormat compatible_format;\n")
	g.printf("};\n\n")

	g.printf("struct VKU_FORMAT_MULTIPLANE_COMPATIBILITY {\n")
	g.printf("    struct VKU_FORMAT_PER_PLANE_COMPATIBILITY per_plane[VKU_FORMAT_MAX_PLANES];\n")
	g.printf("};\n")

	g.formatPredicate("vkuFormatIsCompressed", (*registry.Format).IsCompressed)
	for _, tag := range compressed {
		g.formatPredicate("vkuFormatIsCompressed_"+sanitizeIdent(tag), func(f *registry.Format) bool {
			return f.Compressed == tag
		})
	}

	g.formatPredicate("vkuFormatIsDepthOnly", (*registry.Format).IsDepthOnly)
	g.formatPredicate("vkuFormatIsStencilOnly", (*registry.Format).IsStencilOnly)
	g.formatPredicate("vkuFormatIsDepthAndStencil", (*registry.Format).IsDepthAndStencil)
	g.formatPredicate("vkuFormatIsDepthOrStencil", (*registry.Format).IsDepthOrStencil)
	g.formatPredicate("vkuFormatHasDepth", (*registry.Format).HasDepth)
	g.formatPredicate("vkuFormatHasStencil", (*registry.Format).HasStencil)
	g.formatPredicate("vkuFormatIsPacked", (*registry.Format).IsPacked)
	g.formatPredicate("vkuFormatIsMultiplane", (*registry.Format).IsMultiplane)
	g.formatPredicate("vkuFormatRequiresYcbcrConversion", (*registry.Format).RequiresYcbcrConversion)
	g.formatPredicate("vkuFormatIsXChromaSubsampled", (*registry.Format).IsXChromaSubsampled)
	g.formatPredicate("vkuFormatIsYChromaSubsampled", (*registry.Format).IsYChromaSubsampled)
	g.formatPredicate("vkuFormatIsSinglePlane_422", (*registry.Format).IsSinglePlane422)

	for _, nf := range numerical {
		g.formatPredicate("vkuFormatIs"+sanitizeIdent(nf), func(f *registry.Format) bool {
			return f.NumericFormat() == nf
		})
	}
	g.formatPredicate("vkuFormatIsSampledInt", func(f *registry.Format) bool {
		nf := f.NumericFormat()
		return nf == "SINT" || nf == "UINT"
	})
	g.formatPredicate("vkuFormatIsSampledFloat", func(f *registry.Format) bool {
		switch f.NumericFormat() {
		case "UNORM", "SNORM", "USCALED", "SSCALED", "UFLOAT", "SFLOAT", "SRGB":
			return true
		}
		return false
	})
	for _, bits := range []uint32{8, 16, 32, 64} {
		g.formatPredicate(fmt.Sprintf("vkuFormatIs%dbit", bits), func(f *registry.Format) bool {
			return f.AllComponentBits(bits)
		})
	}

	g.formatUint("vkuFormatDepthSize", 0, (*registry.Format).DepthSize)
	g.formatUint("vkuFormatStencilSize", 0, (*registry.Format).StencilSize)
	g.formatUint("vkuFormatPlaneCount", 1, (*registry.Format).PlaneCount)
	g.formatUint("vkuFormatComponentCount", 0, func(f *registry.Format) uint32 { return uint32(len(f.Components)) })
	g.formatUint("vkuFormatElementSize", 0, func(f *registry.Format) uint32 { return f.BlockSize })
	g.formatUint("vkuFormatTexelsPerBlock", 0, func(f *registry.Format) uint32 { return f.TexelsPerBlock })
	g.formatNumerical("vkuFormatDepthNumericalType", (*registry.Format).DepthNumericalType)
	g.formatNumerical("vkuFormatStencilNumericalType", (*registry.Format).StencilNumericalType)

	g.formatSwitch("enum VKU_FORMAT_COMPATIBILITY_CLASS vkuFormatCompatibilityClass(VkFormat format)",
		"return VKU_FORMAT_COMPATIBILITY_CLASS_NONE;", func(f *registry.Format) string {
			return "return " + compatibilityClassName(f.ClassName) + ";"
		})

	g.formatSwitch("struct VKU_FORMAT_INFO vkuGetFormatInfo(VkFormat format)",
		"{ struct VKU_FORMAT_INFO out = {VKU_FORMAT_COMPATIBILITY_CLASS_NONE, 0, 0, {0, 0, 0}, 0, {{VKU_FORMAT_COMPONENT_TYPE_NONE, 0}}}; return out; }",
		formatInfoBody)

	g.formatSwitch("struct VKU_FORMAT_MULTIPLANE_COMPATIBILITY vkuGetFormatCompatibility(VkFormat format)",
		"{ struct VKU_FORMAT_MULTIPLANE_COMPATIBILITY out = {{{1, 1, VK_FORMAT_UNDEFINED}, {1, 1, VK_FORMAT_UNDEFINED}, {1, 1, VK_FORMAT_UNDEFINED}}}; return out; }",
		func(f *registry.Format) string {
			if len(f.Planes) == 0 {
				return ""
			}
			return multiplaneBody(f)
		})

	g.printf("\n// Returns the format compatible with one plane of a multi-planar format,\n")
	g.printf("// VK_FORMAT_UNDEFINED when the plane does not exist.\n")
	g.printf("static inline VkFormat vkuFindMultiplaneCompatibleFormat(VkFormat mp_fmt, uint32_t plane) {\n")
	g.printf("    if (plane >= VKU_FORMAT_MAX_PLANES) {\n")
	g.printf("        return VK_FORMAT_UNDEFINED;\n")
	g.printf("    }\n")
	g.printf("    return vkuGetFormatCompatibility(mp_fmt).per_plane[plane].compatible_format;\n")
	g.printf("}\n\n")

	g.printf("static inline VkExtent2D vkuFindMultiplaneExtentDivisors(VkFormat mp_fmt, uint32_t plane) {\n")
	g.printf("    VkExtent2D divisors = {1, 1};\n")
	g.printf("    if (plane >= VKU_FORMAT_MAX_PLANES) {\n")
	g.printf("        return divisors;\n")
	g.printf("    }\n")
	g.printf("    const struct VKU_FORMAT_MULTIPLANE_COMPATIBILITY mp = vkuGetFormatCompatibility(mp_fmt);\n")
	g.printf("    divisors.width = mp.per_plane[plane].width_divisor;\n")
	g.printf("    divisors.height = mp.per_plane[plane].height_divisor;\n")
	g.printf("    return divisors;\n")
	g.printf("}\n\n")

	g.close()
	return nil
}

func formatInfoBody(f *registry.Format) string {
	if len(f.Components) > formatMaxComponents {
		util.Abort("Format %q has %d components", f.Name, len(f.Components))
	}
	components := make([]string, 0, len(f.Components))
	for _, c := range f.Components {
		if c.Compressed {
			components = append(components, "{VKU_FORMAT_COMPONENT_TYPE_"+c.Type+", 0}")
		} else {
			components = append(components, fmt.Sprintf("{VKU_FORMAT_COMPONENT_TYPE_%s, %d}", c.Type, c.Bits))
		}
	}
	if len(components) == 0 {
		components = append(components, "{VKU_FORMAT_COMPONENT_TYPE_NONE, 0}")
	}
	return fmt.Sprintf("{ struct VKU_FORMAT_INFO out = {%s, %d, %d, {%d, %d, %d}, %d, {%s}}; return out; }",
		compatibilityClassName(f.ClassName), f.BlockSize, f.TexelsPerBlock,
		f.BlockExtent.X, f.BlockExtent.Y, f.BlockExtent.Z,
		len(f.Components), strings.Join(components, ", "))
}

func multiplaneBody(f *registry.Format) string {
	planes := make([]string, formatMaxPlanes)
	for i := range planes {
		planes[i] = "{1, 1, VK_FORMAT_UNDEFINED}"
	}
	for _, p := range f.Planes {
		if p.Index < 0 || p.Index >= formatMaxPlanes {
			util.Abort("Format %q has plane index %d", f.Name, p.Index)
		}
		planes[p.Index] = fmt.Sprintf("{%d, %d, %s}", p.WidthDivisor, p.HeightDivisor, p.Compatible)
	}
	return fmt.Sprintf("{ struct VKU_FORMAT_MULTIPLANE_COMPATIBILITY out = {{%s}}; return out; }", strings.Join(planes, ", "))
}

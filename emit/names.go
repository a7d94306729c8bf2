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

	"github.com/iancoleman/strcase"
	"goarrg.com/rhi/vkgen/internal/util"
	"goarrg.com/rhi/vkgen/registry"
)

// section is a version or extension block of the output, in registry order.
type section struct {
	name      string
	version   *registry.Version
	extension *registry.Extension
}

func (s section) protect() string {
	if s.extension != nil {
		return s.extension.Protect
	}
	return ""
}

func (g *generator) sections() []section {
	var list []section
	for _, v := range g.api.Versions.Values() {
		list = append(list, section{name: v.Name, version: v})
	}
	for _, e := range g.api.Extensions.Values() {
		list = append(list, section{name: e.Name, extension: e})
	}
	return list
}

// owner names the section that first introduced an entity.
func owner(o *registry.Origin) string {
	if o.Version != nil {
		return o.Version.Name
	}
	if len(o.Extensions) > 0 {
		return o.Extensions[0].Name
	}
	return ""
}

// splitTag separates a trailing vendor tag, VkFooEXT gives VkFoo and EXT.
func (g *generator) splitTag(name string) (string, string) {
	for _, tag := range util.SortedKeys(g.api.Tags) {
		if base, ok := strings.CutSuffix(name, tag); ok && base != "" {
			return base, tag
		}
	}
	return name, ""
}

// enumPrefix returns the SCREAMING_SNAKE form of a type name used for its
// values, VkShaderStageFlagBits gives VK_SHADER_STAGE_FLAG_BITS.
func (g *generator) enumPrefix(name string) (string, string) {
	base, tag := g.splitTag(name)
	return strcase.ToScreamingSnake(base), tag
}

func (g *generator) maxEnumName(name string) string {
	prefix, tag := g.enumPrefix(name)
	if tag != "" {
		return prefix + "_MAX_ENUM_" + tag
	}
	return prefix + "_MAX_ENUM"
}

func isIdentByte(b byte, first bool) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (!first && b >= '0' && b <= '9')
}

// sanitizeIdent replaces every character that cannot appear in a C
// identifier with an underscore and prefixes a leading digit with k.
func sanitizeIdent(s string) string {
	b := []byte(s)
	for i := range b {
		if !isIdentByte(b[i], false) {
			b[i] = '_'
		}
	}
	if len(b) > 0 && b[0] >= '0' && b[0] <= '9' {
		return "k" + string(b)
	}
	return string(b)
}

// lengthExpr rewrites the identifiers of a length expression that name
// members of s so they are read through prefix.
func lengthExpr(expr string, s *registry.Struct, prefix string) string {
	out := strings.Builder{}
	for i := 0; i < len(expr); {
		if !isIdentByte(expr[i], true) {
			out.WriteByte(expr[i])
			i++
			continue
		}
		j := i + 1
		for j < len(expr) && isIdentByte(expr[j], false) {
			j++
		}
		id := expr[i:j]
		member := strings.HasSuffix(expr[:i], "->") || strings.HasSuffix(expr[:i], ".")
		if !member && s.Member(id) != nil {
			out.WriteString(prefix)
		}
		out.WriteString(id)
		i = j
	}
	return out.String()
}

// goTypeName drops the Vk prefix and camel cases the rest.
func goTypeName(name string) string {
	return strcase.ToCamel(strings.TrimPrefix(name, "Vk"))
}

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
	"go/format"
	"strconv"
	"strings"

	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/registry"
)

// goConstName trims the VK_ prefix and the _BIT marker of a C value name.
func goConstName(name string, dropBit bool) string {
	id := strings.TrimPrefix(name, "VK_")
	if dropBit {
		id = strings.ReplaceAll(id, "_BIT_", "_")
		id = strings.TrimSuffix(id, "_BIT")
	}
	return sanitizeIdent(id)
}

// goConstValue converts an API constant to a Go constant expression, or
// returns false when it has no Go form.
func goConstValue(c *registry.Constant) (string, bool) {
	if c.IsInt {
		return strconv.FormatInt(c.ValueInt, 10), true
	}
	v := strings.TrimSpace(c.Value)
	if strings.HasPrefix(v, "\"") {
		if _, err := strconv.Unquote(v); err == nil {
			return v, true
		}
		return "", false
	}
	if inner, ok := strings.CutPrefix(strings.TrimSuffix(strings.TrimPrefix(v, "("), ")"), "~"); ok {
		bits := "uint32"
		switch {
		case strings.HasSuffix(inner, "ULL"):
			bits, inner = "uint64", strings.TrimSuffix(inner, "ULL")
		case strings.HasSuffix(inner, "U"):
			inner = strings.TrimSuffix(inner, "U")
		}
		n, err := strconv.ParseUint(inner, 0, 64)
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("^%s(%d)", bits, n), true
	}
	f := strings.TrimRight(v, "Ff")
	if _, err := strconv.ParseFloat(f, 64); err == nil {
		return f, true
	}
	return "", false
}

type goConstWriter struct {
	g    *generator
	used map[string]bool
}

// declare reserves a package level identifier, the first declaration wins.
func (w *goConstWriter) declare(id string) bool {
	if w.used[id] {
		logger.VPrintf("Skipping duplicate Go identifier %q", id)
		return false
	}
	w.used[id] = true
	return true
}

func (w *goConstWriter) enum(e *registry.Enum) {
	g := w.g
	gT := goTypeName(e.Name)
	if !w.declare(gT) {
		return
	}
	base := "int32"
	if e.BitWidth == 64 {
		base = "int64"
	}

	g.printf("\ntype %s %s\n\n", gT, base)
	g.printf("const (\n")
	names := map[string]string{}
	var identifiers []string
	seen := map[int64]bool{}
	for _, f := range e.Fields {
		if f.Alias != "" {
			continue
		}
		id := goConstName(f.Name, false)
		if !w.declare(id) {
			continue
		}
		names[f.Name] = id
		g.printf("\t%s %s = %d\n", id, gT, f.Value)
		if !seen[f.Value] {
			seen[f.Value] = true
			identifiers = append(identifiers, id)
		}
	}
	for _, f := range e.Fields {
		if f.Alias == "" {
			continue
		}
		target, ok := names[f.Alias]
		if !ok {
			continue
		}
		if id := goConstName(f.Name, false); w.declare(id) {
			g.printf("\t%s %s = %s\n", id, gT, target)
		}
	}
	g.printf(")\n")

	g.printf("\nfunc (v %s) String() string {\n", gT)
	g.printf("\tswitch v {\n")
	for _, id := range identifiers {
		g.printf("\tcase %s:\n\t\treturn %q\n", id, id)
	}
	g.printf("\t}\n")
	g.printf("\treturn fmt.Sprintf(\"%s(%%d)\", %s(v))\n", gT, base)
	g.printf("}\n")
}

func (w *goConstWriter) bitmask(b *registry.Bitmask) {
	g := w.g
	name := b.FlagName
	if name == "" {
		name = b.Name
	}
	gT := goTypeName(name)
	if !w.declare(gT) {
		return
	}
	base := "uint32"
	if b.BitWidth == 64 {
		base = "uint64"
	}

	g.printf("\ntype %s %s\n\n", gT, base)
	g.printf("const (\n")
	names := map[string]string{}
	var single []string
	for _, f := range b.Flags {
		if f.Alias != "" {
			continue
		}
		id := goConstName(f.Name, true)
		if w.used[id] {
			id = goConstName(f.Name, false)
		}
		if !w.declare(id) {
			continue
		}
		names[f.Name] = id
		g.printf("\t%s %s = 0x%X\n", id, gT, f.Value)
		if !f.Zero && !f.MultiBit {
			single = append(single, id)
		}
	}
	for _, f := range b.Flags {
		if f.Alias == "" {
			continue
		}
		target, ok := names[f.Alias]
		if !ok {
			continue
		}
		if id := goConstName(f.Name, true); w.declare(id) {
			g.printf("\t%s %s = %s\n", id, gT, target)
		}
	}
	g.printf(")\n")

	g.printf("\nfunc (v %[1]s) HasBits(want %[1]s) bool {\n", gT)
	g.printf("\treturn (v & want) == want\n")
	g.printf("}\n")

	g.printf("\nfunc (v %s) String() string {\n", gT)
	g.printf("\tstr := \"\"\n")
	for _, id := range single {
		g.printf("\tif v.HasBits(%s) {\n\t\tstr += \"%s|\"\n\t}\n", id, id)
	}
	g.printf("\treturn strings.TrimSuffix(str, \"|\")\n")
	g.printf("}\n")
}

// formats writes BlockSize and BlockExtent lookups on the Format type,
// grouping formats that share a value into one case.
func (w *goConstWriter) formats() {
	g := w.g
	groupCases := func(value func(*registry.Format) string, def string) {
		groups := map[string][]string{}
		var order []string
		for _, f := range g.api.Formats {
			v := value(f)
			if v == def {
				continue
			}
			if _, ok := groups[v]; !ok {
				order = append(order, v)
			}
			groups[v] = append(groups[v], goConstName(f.Name, false))
		}
		g.printf("\tswitch f {\n")
		for _, v := range order {
			g.printf("\tcase %s:\n\t\treturn %s\n", strings.Join(groups[v], ", "), v)
		}
		g.printf("\t}\n")
		g.printf("\treturn %s\n", def)
	}

	g.printf("\n// BlockSize returns the size in bytes of one texel block.\n")
	g.printf("func (f Format) BlockSize() uint32 {\n")
	groupCases(func(f *registry.Format) string { return strconv.FormatUint(uint64(f.BlockSize), 10) }, "0")
	g.printf("}\n")

	g.printf("\nfunc (f Format) BlockExtent() gmath.Extent3u32 {\n")
	groupCases(func(f *registry.Format) string {
		e := f.BlockExtent
		return fmt.Sprintf("gmath.Extent3u32{X: %d, Y: %d, Z: %d}", e.X, e.Y, e.Z)
	}, "gmath.Extent3u32{X: 1, Y: 1, Z: 1}")
	g.printf("}\n")
}

func (g *generator) genGoConst() error {
	hasFormats := len(g.api.Formats) > 0 && g.api.Enums.Has("VkFormat")
	hasFlags := false
	for _, b := range g.api.Bitmasks.Values() {
		if len(b.Flags) > 0 {
			hasFlags = true
		}
	}

	g.printf("// Code generated by vkgen from %s; DO NOT EDIT.\n\n", g.source())
	g.printf("package %s\n\n", g.opts.GoPackage)
	g.printf("import (\n")
	if g.api.Enums.Len() > 0 {
		g.printf("\t\"fmt\"\n")
	}
	g.printf("\t\"strings\"\n")
	if hasFormats {
		g.printf("\n\t\"goarrg.com/gmath\"\n")
	}
	g.printf(")\n")
	if !hasFlags {
		g.printf("\nvar _ = strings.TrimSuffix\n")
	}

	w := &goConstWriter{g: g, used: map[string]bool{}}

	{
		g.printf("\nconst (\n")
		for _, c := range g.api.Constants.Values() {
			v, ok := goConstValue(c)
			if !ok {
				logger.VPrintf("Constant %q has no Go form: %q", c.Name, c.Value)
				continue
			}
			if id := goConstName(c.Name, false); w.declare(id) {
				g.printf("\t%s = %s\n", id, v)
			}
		}
		g.printf(")\n")
	}

	for _, e := range g.api.Enums.Values() {
		w.enum(e)
	}
	for _, b := range g.api.Bitmasks.Values() {
		w.bitmask(b)
	}
	if hasFormats {
		w.formats()
	}

	src, err := format.Source(g.out.Bytes())
	if err != nil {
		return fail.Wrapf(fail.KindAssertion, err, "Generated Go source does not parse")
	}
	g.out.Reset()
	g.out.Write(src)
	return nil
}

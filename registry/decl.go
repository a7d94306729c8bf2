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

package registry

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"goarrg.com/debug"
)

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cType normalises a C type fragment so pointers bind to the type.
func cType(s string) string {
	s = collapseSpace(s)
	s = strings.ReplaceAll(s, " *", "*")
	return strings.TrimSpace(s)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseExternSync(v string) (ExternSync, string) {
	switch {
	case v == "":
		return ExternSyncNone, ""
	case v == "true":
		return ExternSyncAlways, ""
	case v == "maybe":
		return ExternSyncMaybe, ""
	case strings.HasPrefix(v, "maybe:"):
		return ExternSyncSubtypeMaybe, strings.TrimPrefix(v, "maybe:")
	default:
		return ExternSyncSubtype, v
	}
}

// parseDecl reads a <member> or <param> element. Text before <name> is the
// type, text after it holds array dimensions or a bit-field width.
func parseDecl(n *xmlquery.Node) (Decl, error) {
	d := Decl{}
	pre := strings.Builder{}
	post := strings.Builder{}
	seenName := false

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if seenName {
				post.WriteString(c.Data)
			} else {
				pre.WriteString(c.Data)
			}
		case xmlquery.ElementNode:
			switch c.Data {
			case "comment":
			case "name":
				d.Name = strings.TrimSpace(c.InnerText())
				seenName = true
			case "type":
				d.Type = strings.TrimSpace(c.InnerText())
				pre.WriteString(c.InnerText())
			default:
				if seenName {
					post.WriteString(c.InnerText())
				} else {
					pre.WriteString(c.InnerText())
				}
			}
		}
	}

	if d.Name == "" {
		return d, debug.Errorf("Missing <name> in <%s>", n.Data)
	}
	if d.Type == "" {
		return d, debug.Errorf("Missing <type> in <%s> %q", n.Data, d.Name)
	}

	d.FullType = cType(pre.String())
	d.Const = strings.HasPrefix(d.FullType, "const ")
	d.PointerDepth = strings.Count(d.FullType, "*")
	d.Pointer = d.PointerDepth > 0

	suffix := strings.TrimSpace(post.String())
	for strings.HasPrefix(suffix, "[") {
		end := strings.Index(suffix, "]")
		if end < 0 {
			return d, debug.Errorf("Unterminated array dimension on %q", d.Name)
		}
		d.FixedSizeArray = append(d.FixedSizeArray, strings.TrimSpace(suffix[1:end]))
		suffix = strings.TrimSpace(suffix[end+1:])
	}
	if w, ok := strings.CutPrefix(suffix, ":"); ok {
		width, err := strconv.Atoi(strings.TrimSpace(w))
		if err != nil {
			return d, debug.ErrorWrapf(err, "Invalid bit-field width on %q", d.Name)
		}
		d.BitFieldWidth = width
		suffix = ""
	}
	if suffix != "" {
		return d, debug.Errorf("Unexpected declarator suffix %q on %q", suffix, d.Name)
	}

	d.CDeclaration = d.FullType + " " + d.Name
	for _, dim := range d.FixedSizeArray {
		d.CDeclaration += "[" + dim + "]"
	}
	if d.BitFieldWidth > 0 {
		d.CDeclaration += ":" + strconv.Itoa(d.BitFieldWidth)
	}

	d.AltLength = n.SelectAttr("altlen")
	length := n.SelectAttr("len")
	if strings.HasPrefix(length, "latexmath:") {
		length = d.AltLength
	}
	for _, part := range splitList(length) {
		if part == "null-terminated" {
			d.NullTerminated = true
		} else if d.Length == "" {
			d.Length = part
		}
	}
	if d.Type == "char" && d.PointerDepth == 1 && d.Length == "" {
		d.NullTerminated = true
	}

	optional := splitList(n.SelectAttr("optional"))
	d.Optional = len(optional) > 0 && optional[0] == "true"
	d.OptionalPointer = len(optional) > 1 && optional[1] == "true"

	d.ExternSync, d.ExternSyncPath = parseExternSync(n.SelectAttr("externsync"))
	d.NoAutoValidity = n.SelectAttr("noautovalidity") == "true"
	d.LimitType = n.SelectAttr("limittype")
	d.APIs = splitList(n.SelectAttr("api"))

	return d, nil
}

// lengthIdentifiers returns the identifiers referenced by a length
// expression such as "codeSize / 4" or "pAllocateInfo->descriptorSetCount".
func lengthIdentifiers(expr string) []string {
	var ids []string
	start := -1
	for i := 0; i <= len(expr); i++ {
		isIdent := i < len(expr) && (expr[i] == '_' ||
			(expr[i] >= 'a' && expr[i] <= 'z') || (expr[i] >= 'A' && expr[i] <= 'Z') ||
			(start >= 0 && expr[i] >= '0' && expr[i] <= '9'))
		if isIdent {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			ids = append(ids, expr[start:i])
			start = -1
		}
	}
	return ids
}

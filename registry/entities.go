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
	"math"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/internal/util"
)

func categoryKind(category string) Kind {
	switch category {
	case "handle":
		return KindHandle
	case "struct":
		return KindStruct
	case "union":
		return KindUnion
	case "enum":
		return KindEnum
	case "bitmask":
		return KindFlags
	case "basetype":
		return KindBaseType
	case "define":
		return KindDefine
	case "funcpointer":
		return KindFuncPointer
	case "include":
		return KindInclude
	default:
		return KindExternal
	}
}

// materialize builds model entities for every required name, in the order
// they are declared in the registry.
func (l *loader) materialize(*xmlquery.Node) error {
	api := l.api

	for _, name := range l.types.Keys() {
		origin, ok := l.required[name]
		if !ok {
			continue
		}
		n, _ := l.types.Get(name)
		category := n.SelectAttr("category")

		if alias := n.SelectAttr("alias"); alias != "" {
			api.Aliases.Set(name, &Alias{Name: name, Target: alias, Kind: categoryKind(category), Origin: *origin})
			continue
		}
		api.TypeOrder = append(api.TypeOrder, name)

		var err error
		switch category {
		case "handle":
			h := &Handle{
				Name:         name,
				Type:         n.SelectAttr("objtypeenum"),
				Dispatchable: childText(n, "type") == "VK_DEFINE_HANDLE",
				Origin:       *origin,
			}
			if parents := splitList(n.SelectAttr("parent")); len(parents) > 0 {
				h.ParentName = parents[0]
			}
			api.Handles.Set(name, h)

		case "struct", "union":
			err = l.newStruct(name, n, *origin)

		case "enum":
			err = l.newEnum(name, *origin)

		case "bitmask":
			f := &Flags{
				Name:        name,
				BaseType:    childText(n, "type"),
				BitmaskName: n.SelectAttr("requires"),
				Origin:      *origin,
			}
			if f.BitmaskName == "" {
				f.BitmaskName = n.SelectAttr("bitvalues")
			}
			api.Flags.Set(name, f)

		case "basetype":
			api.BaseTypes.Set(name, &BaseType{
				Name:   name,
				Type:   childText(n, "type"),
				Body:   strings.TrimSpace(n.InnerText()),
				Origin: *origin,
			})

		case "define":
			d := &Define{
				Name:     name,
				Body:     strings.TrimSpace(n.InnerText()),
				Requires: n.SelectAttr("requires"),
				Origin:   *origin,
			}
			if name == "VK_HEADER_VERSION" {
				fields := strings.Fields(d.Body)
				if len(fields) > 0 {
					if v, perr := strconv.ParseUint(fields[len(fields)-1], 10, 32); perr == nil {
						api.HeaderVersion = uint32(v)
					}
				}
			}
			api.Defines.Set(name, d)

		case "funcpointer":
			err = l.newFuncPointer(name, n, *origin)

		case "include", "":
		default:
			err = fail.Errorf(fail.KindSemantic, "%q: type %q has unknown category %q", l.src, name, category)
		}
		if err != nil {
			return err
		}
	}

	for _, name := range l.commands.Keys() {
		origin, ok := l.required[name]
		if !ok {
			continue
		}
		n, _ := l.commands.Get(name)
		if alias := n.SelectAttr("alias"); alias != "" {
			api.Aliases.Set(name, &Alias{Name: name, Target: alias, Kind: KindCommand, Origin: *origin})
			continue
		}
		c, err := l.newCommand(name, n, *origin)
		if err != nil {
			return err
		}
		api.Commands.Set(name, c)
	}

	for _, name := range l.constants.Keys() {
		origin, ok := l.required[name]
		if !ok {
			continue
		}
		n, _ := l.constants.Get(name)
		if alias := n.SelectAttr("alias"); alias != "" {
			api.Aliases.Set(name, &Alias{Name: name, Target: alias, Kind: KindConstant, Origin: *origin})
			continue
		}
		c := &Constant{
			Name:    name,
			Type:    n.SelectAttr("type"),
			Value:   n.SelectAttr("value"),
			Comment: n.SelectAttr("comment"),
			Origin:  *origin,
		}
		if v, err := strconv.ParseInt(c.Value, 0, 64); err == nil {
			c.ValueInt, c.IsInt = v, true
		}
		api.Constants.Set(name, c)
	}
	for _, c := range l.extConsts.Values() {
		if api.Constants.Has(c.Name) {
			return fail.Errorf(fail.KindSemantic, "%q: duplicate constant %q", l.src, c.Name)
		}
		api.Constants.Set(c.Name, c)
	}

	for name, fields := range l.extFields {
		if !api.Enums.Has(name) && !api.Bitmasks.Has(name) && fields.Len() > 0 {
			logger.VPrintf("Dropping %d extension values of %q, type is not part of %q", fields.Len(), name, api.Name)
		}
	}
	return nil
}

func (l *loader) newStruct(name string, n *xmlquery.Node, origin Origin) error {
	s := &Struct{
		Name:           name,
		Union:          n.SelectAttr("category") == "union",
		ReturnedOnly:   n.SelectAttr("returnedonly") == "true",
		AllowDuplicate: n.SelectAttr("allowduplicate") == "true",
		Extends:        splitList(n.SelectAttr("structextends")),
		Comment:        n.SelectAttr("comment"),
		Deprecate:      l.deprecated[name],
		Origin:         origin,
	}

	seen := map[string]bool{}
	for _, mn := range elements(n, "member") {
		if !l.admits(mn) {
			continue
		}
		d, err := parseDecl(mn)
		if err != nil {
			return fail.Wrapf(fail.KindSemantic, err, "%q: struct %q", l.src, name)
		}
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true

		m := &Member{
			Decl:       d,
			Values:     mn.SelectAttr("values"),
			Selector:   mn.SelectAttr("selector"),
			Selection:  splitList(mn.SelectAttr("selection")),
			Deprecated: mn.SelectAttr("deprecated"),
		}
		if m.Name == "sType" && m.Type == "VkStructureType" && m.Values != "" {
			s.SType = splitList(m.Values)[0]
		}
		s.Members = append(s.Members, m)
	}

	l.api.Structs.Set(name, s)
	return nil
}

func (l *loader) newEnum(name string, origin Origin) error {
	block := l.enumBlocks[name]
	width := 32
	isBitmask := false
	comment := ""
	if block != nil {
		isBitmask = block.SelectAttr("type") == "bitmask"
		comment = block.SelectAttr("comment")
		if w := block.SelectAttr("bitwidth"); w != "" {
			v, err := strconv.Atoi(w)
			if err != nil || (v != 32 && v != 64) {
				return fail.Errorf(fail.KindSemantic, "%q: enum %q has invalid bitwidth %q", l.src, name, w)
			}
			width = v
		}
	} else if strings.Contains(name, "FlagBits") {
		isBitmask = true
	}

	type field struct {
		name, alias, valueStr, comment string
		value                          int64
		origin                         Origin
		inherited                      bool
	}
	var fields []*field
	index := map[string]*field{}

	add := func(f *field) error {
		if have, ok := index[f.name]; ok {
			if have.alias != f.alias || have.value != f.value {
				return fail.Errorf(fail.KindSemantic, "%q: duplicate enum %q in %q with conflicting values (%s%s vs %s%s)",
					l.src, f.name, name, have.valueStr, have.alias, f.valueStr, f.alias)
			}
			if have.origin.Version == nil {
				have.origin.Version = f.origin.Version
			}
			for _, e := range f.origin.Extensions {
				have.origin.addExtension(e)
			}
			return nil
		}
		index[f.name] = f
		fields = append(fields, f)
		return nil
	}

	if block != nil {
		for _, fn := range elements(block, "enum") {
			if !l.admits(fn) || l.removed[fn.SelectAttr("name")] {
				continue
			}
			f := &field{
				name:      fn.SelectAttr("name"),
				alias:     fn.SelectAttr("alias"),
				comment:   fn.SelectAttr("comment"),
				origin:    Origin{Version: origin.Version},
				inherited: true,
			}
			if f.alias == "" {
				v, s, err := fieldValue(fn, 0)
				if err != nil {
					return fail.Wrapf(fail.KindSemantic, err, "%q: enum %q", l.src, name)
				}
				f.value, f.valueStr = v, s
			}
			if err := add(f); err != nil {
				return err
			}
		}
	}
	if ext, ok := l.extFields[name]; ok {
		for _, p := range ext.Values() {
			err := add(&field{
				name:     p.name,
				alias:    p.alias,
				valueStr: p.valueStr,
				comment:  p.comment,
				value:    p.value,
				origin:   p.origin,
			})
			if err != nil {
				return err
			}
		}
	}

	byValue := map[int64]string{}
	for _, f := range fields {
		if f.alias != "" {
			continue
		}
		if other, ok := byValue[f.value]; ok {
			logger.WPrintf("%s: %q and %q share value %s", name, other, f.name, f.valueStr)
			continue
		}
		byValue[f.value] = f.name
	}

	if isBitmask {
		b := &Bitmask{Name: name, BitWidth: width, Comment: comment, Origin: origin}
		for _, f := range fields {
			flag := &Flag{
				Name:      f.name,
				Alias:     f.alias,
				ValueStr:  f.valueStr,
				Comment:   f.comment,
				Protect:   f.origin.Protect(),
				Required:  true,
				inherited: f.inherited,
				Origin:    f.origin,
			}
			if f.alias == "" {
				// 64-bit flags carry bit 63 in the sign of the parsed value.
				flag.Value = uint64(f.value)
				if width == 32 && (f.value < 0 || flag.Value > math.MaxUint32) {
					return fail.Errorf(fail.KindSemantic, "%q: flag %q does not fit the 32-bit bitmask %q", l.src, f.name, name)
				}
				flag.Zero = flag.Value == 0
				flag.MultiBit = util.BitCount(flag.Value) > 1
			}
			b.Flags = append(b.Flags, flag)
		}
		l.api.Bitmasks.Set(name, b)
		return nil
	}

	e := &Enum{Name: name, BitWidth: width, Comment: comment, Origin: origin}
	for _, f := range fields {
		e.Fields = append(e.Fields, &EnumField{
			Name:     f.name,
			Alias:    f.alias,
			Negative: f.value < 0,
			Value:    f.value,
			ValueStr: f.valueStr,
			Comment:  f.comment,
			Protect:  f.origin.Protect(),
			Required: true,
			Origin:   f.origin,
		})
	}
	l.api.Enums.Set(name, e)
	return nil
}

func (l *loader) newCommand(name string, n *xmlquery.Node, origin Origin) (*Command, error) {
	proto := xmlquery.FindOne(n, "proto")
	pd, err := parseDecl(proto)
	if err != nil {
		return nil, fail.Wrapf(fail.KindSemantic, err, "%q: command %q", l.src, name)
	}

	c := &Command{
		Name:          name,
		ReturnType:    pd.FullType,
		Tasks:         splitList(n.SelectAttr("tasks")),
		Queues:        splitList(n.SelectAttr("queues")),
		AllowNoQueues: n.SelectAttr("allownoqueues") == "true",
		SuccessCodes:  splitList(n.SelectAttr("successcodes")),
		ErrorCodes:    splitList(n.SelectAttr("errorcodes")),
		RenderPass:    n.SelectAttr("renderpass"),
		VideoCoding:   n.SelectAttr("videocoding"),
		Deprecate:     l.deprecated[name],
		Origin:        origin,
	}
	for _, level := range splitList(n.SelectAttr("cmdbufferlevel")) {
		switch level {
		case "primary":
			c.Primary = true
		case "secondary":
			c.Secondary = true
		}
	}

	seen := map[string]bool{}
	for _, pn := range elements(n, "param") {
		if !l.admits(pn) {
			continue
		}
		d, err := parseDecl(pn)
		if err != nil {
			return nil, fail.Wrapf(fail.KindSemantic, err, "%q: command %q", l.src, name)
		}
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		c.Params = append(c.Params, &Param{Decl: d})
	}
	if sync := xmlquery.FindOne(n, "implicitexternsyncparams"); sync != nil {
		for _, p := range elements(sync, "param") {
			c.ImplicitExternSync = append(c.ImplicitExternSync, strings.TrimSpace(p.InnerText()))
		}
	}

	c.CPrototype = "VKAPI_ATTR " + c.ReturnType + " VKAPI_CALL " + name + "(" + paramList(c.Params) + ");"
	c.CFuncPointer = "typedef " + c.ReturnType + " (VKAPI_PTR *PFN_" + name + ")(" + paramList(c.Params) + ");"
	return c, nil
}

func paramList(params []*Param) string {
	if len(params) == 0 {
		return "void"
	}
	decls := make([]string, len(params))
	for i, p := range params {
		decls[i] = p.CDeclaration
	}
	return strings.Join(decls, ", ")
}

func (l *loader) newFuncPointer(name string, n *xmlquery.Node, origin Origin) error {
	fp := &FuncPointer{
		Name:     name,
		Requires: n.SelectAttr("requires"),
		Body:     strings.TrimSpace(n.InnerText()),
		Origin:   origin,
	}

	if proto := xmlquery.FindOne(n, "proto"); proto != nil {
		pd, err := parseDecl(proto)
		if err != nil {
			return fail.Wrapf(fail.KindSemantic, err, "%q: funcpointer %q", l.src, name)
		}
		fp.ReturnType = pd.FullType
		for _, pn := range elements(n, "param") {
			d, err := parseDecl(pn)
			if err != nil {
				return fail.Wrapf(fail.KindSemantic, err, "%q: funcpointer %q", l.src, name)
			}
			fp.Params = append(fp.Params, &Param{Decl: d})
		}
		l.api.FuncPointers.Set(name, fp)
		return nil
	}

	body := collapseSpace(fp.Body)
	ret, _, ok := strings.Cut(strings.TrimPrefix(body, "typedef "), "(VKAPI_PTR")
	if !ok {
		return fail.Errorf(fail.KindSemantic, "%q: funcpointer %q is not a VKAPI_PTR typedef", l.src, name)
	}
	fp.ReturnType = cType(ret)

	_, args, _ := strings.Cut(body, ")(")
	args = strings.TrimSuffix(strings.TrimSpace(args), ";")
	args = strings.TrimSuffix(args, ")")
	if strings.TrimSpace(args) != "void" {
		for _, arg := range splitList(args) {
			fields := strings.Fields(strings.ReplaceAll(cType(arg), "*", "* "))
			if len(fields) < 2 {
				return fail.Errorf(fail.KindSemantic, "%q: funcpointer %q has malformed parameter %q", l.src, name, arg)
			}
			full := cType(strings.Join(fields[:len(fields)-1], " "))
			base := strings.Trim(strings.TrimPrefix(full, "const "), "* ")
			base = strings.TrimSuffix(base, " const")
			fp.Params = append(fp.Params, &Param{Decl: Decl{
				Name:         fields[len(fields)-1],
				Type:         strings.Trim(base, "* "),
				FullType:     full,
				Const:        strings.HasPrefix(full, "const "),
				PointerDepth: strings.Count(full, "*"),
				Pointer:      strings.Contains(full, "*"),
				CDeclaration: full + " " + fields[len(fields)-1],
			}})
		}
	}
	l.api.FuncPointers.Set(name, fp)
	return nil
}

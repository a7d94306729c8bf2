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
	"slices"

	"goarrg.com/rhi/vkgen/internal/container"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/internal/util"
)

// Commands that are called before any instance exists.
var bootstrapCommands = map[string]bool{
	"vkCreateInstance":                       true,
	"vkEnumerateInstanceVersion":             true,
	"vkEnumerateInstanceLayerProperties":     true,
	"vkEnumerateInstanceExtensionProperties": true,
	"vkGetInstanceProcAddr":                  true,
}

func link(api *API) error {
	steps := []struct {
		name string
		f    func(*API) error
	}{
		{"aliases", linkAliases},
		{"declarations", linkDecls},
		{"struct extensions", linkExtends},
		{"struct order", sortStructs},
		{"handles", linkHandles},
		{"commands", linkCommands},
		{"interfaces", linkInterfaces},
		{"returned only", linkReturnedOnly},
		{"deprecations", linkDeprecations},
		{"sync", func(api *API) error { linkSync(api); return nil }},
		{"video codecs", linkVideoCodecs},
	}
	for _, s := range steps {
		logger.VPrintf("%s: linking %s", api.Source, s.name)
		if err := s.f(api); err != nil {
			return err
		}
	}
	return nil
}

// Dealias returns the canonical name of name, or name itself when it is not
// an alias.
func (api *API) Dealias(name string) string {
	if c, ok := api.aliases[name]; ok {
		return c
	}
	return name
}

func (api *API) IsAlias(name string) bool {
	_, ok := api.aliases[name]
	return ok
}

// linkAliases collapses every alias chain to its canonical entity and
// records the alias on that entity.
func linkAliases(api *API) error {
	edges := map[string]string{}
	for _, a := range api.Aliases.Values() {
		edges[a.Name] = a.Target
	}
	for _, e := range api.Enums.Values() {
		for _, f := range e.Fields {
			if f.Alias != "" {
				edges[f.Name] = f.Alias
			}
		}
	}
	for _, b := range api.Bitmasks.Values() {
		for _, f := range b.Flags {
			if f.Alias != "" {
				edges[f.Name] = f.Alias
			}
		}
	}

	for _, name := range util.SortedKeys(edges) {
		seen := []string{name}
		target := edges[name]
		for {
			next, ok := edges[target]
			if !ok {
				break
			}
			if slices.Contains(seen, target) {
				return fail.Errorf(fail.KindSemantic, "%q: alias cycle %v", api.Source, append(seen, target))
			}
			seen = append(seen, target)
			target = next
		}
		api.aliases[name] = target
	}

	for _, a := range api.Aliases.Values() {
		a.Target = api.aliases[a.Name]
		if !addAlias(api, a) {
			return fail.Errorf(fail.KindSemantic, "%q: alias %q targets unknown %s %q", api.Source, a.Name, a.Kind, a.Target)
		}
	}

	for _, e := range api.Enums.Values() {
		for _, f := range e.Fields {
			if f.Alias == "" {
				continue
			}
			f.Alias = api.aliases[f.Name]
			c := e.Field(f.Alias)
			if c == nil {
				return fail.Errorf(fail.KindSemantic, "%q: enum alias %q targets %q which is not a field of %q", api.Source, f.Name, f.Alias, e.Name)
			}
			c.Aliases = append(c.Aliases, f.Name)
			f.Value, f.ValueStr, f.Negative = c.Value, c.ValueStr, c.Negative
		}
	}
	for _, b := range api.Bitmasks.Values() {
		for _, f := range b.Flags {
			if f.Alias == "" {
				continue
			}
			f.Alias = api.aliases[f.Name]
			c := b.Flag(f.Alias)
			if c == nil {
				return fail.Errorf(fail.KindSemantic, "%q: flag alias %q targets %q which is not a flag of %q", api.Source, f.Name, f.Alias, b.Name)
			}
			c.Aliases = append(c.Aliases, f.Name)
			f.Value, f.ValueStr, f.Zero, f.MultiBit = c.Value, c.ValueStr, c.Zero, c.MultiBit
		}
	}
	return nil
}

func addAlias(api *API, a *Alias) bool {
	switch a.Kind {
	case KindCommand:
		if c, ok := api.Commands.Get(a.Target); ok {
			c.Aliases = append(c.Aliases, a.Name)
			return true
		}
	case KindConstant:
		if c, ok := api.Constants.Get(a.Target); ok {
			c.Aliases = append(c.Aliases, a.Name)
			return true
		}
	default:
		if h, ok := api.Handles.Get(a.Target); ok {
			h.Aliases = append(h.Aliases, a.Name)
			return true
		}
		if s, ok := api.Structs.Get(a.Target); ok {
			s.Aliases = append(s.Aliases, a.Name)
			return true
		}
		if e, ok := api.Enums.Get(a.Target); ok {
			e.Aliases = append(e.Aliases, a.Name)
			return true
		}
		if b, ok := api.Bitmasks.Get(a.Target); ok {
			b.Aliases = append(b.Aliases, a.Name)
			return true
		}
		if f, ok := api.Flags.Get(a.Target); ok {
			f.Aliases = append(f.Aliases, a.Name)
			return true
		}
		if a.Kind == KindExternal || a.Kind == KindBaseType || a.Kind == KindFuncPointer || a.Kind == KindDefine {
			_, v := api.Lookup(a.Target)
			return v != nil
		}
	}
	return false
}

func (api *API) resolveDecl(d *Decl) {
	kind, v := api.Lookup(d.Type)
	d.TypeKind = kind
	switch v := v.(type) {
	case *Struct:
		d.Struct = v
	case *Enum:
		d.Enum = v
	case *Bitmask:
		d.Bitmask = v
	case *Flags:
		d.Flags = v
	case *Handle:
		d.Handle = v
	case nil:
		d.TypeKind = KindExternal
	}
}

// lengthSibling finds the sibling a length expression is counted by.
func lengthSibling[T any](expr string, siblings []T, decl func(T) *Decl) *Decl {
	for _, id := range lengthIdentifiers(expr) {
		for _, s := range siblings {
			if d := decl(s); d.Name == id {
				return d
			}
		}
	}
	return nil
}

func linkDecls(api *API) error {
	memberDecl := func(m *Member) *Decl { return &m.Decl }
	paramDecl := func(p *Param) *Decl { return &p.Decl }

	for _, s := range api.Structs.Values() {
		for _, m := range s.Members {
			api.resolveDecl(&m.Decl)
			if m.Length != "" {
				m.LengthDecl = lengthSibling(m.Length, s.Members, memberDecl)
			}
		}
	}
	for _, c := range api.Commands.Values() {
		for _, p := range c.Params {
			api.resolveDecl(&p.Decl)
			if p.Length != "" {
				p.LengthDecl = lengthSibling(p.Length, c.Params, paramDecl)
			}
		}
	}
	for _, fp := range api.FuncPointers.Values() {
		for _, p := range fp.Params {
			api.resolveDecl(&p.Decl)
		}
	}
	for _, f := range api.Flags.Values() {
		if f.BitmaskName == "" {
			continue
		}
		b, ok := api.Bitmasks.Get(api.Dealias(f.BitmaskName))
		if !ok {
			continue
		}
		f.Bitmask = b
		if b.FlagName == "" {
			b.FlagName = f.Name
		}
	}
	return nil
}

func linkExtends(api *API) error {
	for _, s := range api.Structs.Values() {
		for i, name := range s.Extends {
			canon := api.Dealias(name)
			s.Extends[i] = canon
			base, ok := api.Structs.Get(canon)
			if !ok {
				logger.VPrintf("%s extends %q which is not part of %q", s.Name, name, api.Name)
				continue
			}
			if !slices.Contains(base.ExtendedBy, s.Name) {
				base.ExtendedBy = append(base.ExtendedBy, s.Name)
			}
		}
	}
	return nil
}

// sortStructs orders structs after everything they embed by value or extend.
// Structs of equal depth keep their registry order.
func sortStructs(api *API) error {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := map[string]int{}

	var visit func(s *Struct) error
	visit = func(s *Struct) error {
		switch state[s.Name] {
		case visited:
			return nil
		case visiting:
			return fail.Errorf(fail.KindSemantic, "%q: struct %q contains itself", api.Source, s.Name)
		}
		state[s.Name] = visiting

		deps := []*Struct{}
		for _, m := range s.Members {
			if m.Struct != nil && !m.Pointer {
				deps = append(deps, m.Struct)
			}
		}
		for _, name := range s.Extends {
			if base, ok := api.Structs.Get(name); ok {
				deps = append(deps, base)
			}
		}

		s.Depth = 0
		for _, d := range deps {
			if err := visit(d); err != nil {
				return err
			}
			s.Depth = max(s.Depth, d.Depth+1)
		}
		state[s.Name] = visited
		return nil
	}

	structs := api.Structs.Values()
	for _, s := range structs {
		if err := visit(s); err != nil {
			return err
		}
	}
	slices.SortStableFunc(structs, func(a, b *Struct) int { return a.Depth - b.Depth })

	sorted := container.NewOrderedMap[string, *Struct]()
	for _, s := range structs {
		sorted.Set(s.Name, s)
	}
	api.Structs = sorted
	return nil
}

func linkHandles(api *API) error {
	for _, h := range api.Handles.Values() {
		if h.ParentName == "" {
			continue
		}
		p, ok := api.Handles.Get(api.Dealias(h.ParentName))
		if !ok {
			return fail.Errorf(fail.KindSemantic, "%q: handle %q has unknown parent %q", api.Source, h.Name, h.ParentName)
		}
		h.Parent = p
	}
	for _, h := range api.Handles.Values() {
		depth := 0
		for p := h; p != nil; p = p.Parent {
			if p.Name == "VkDevice" {
				h.Device = true
				break
			}
			if depth++; depth > api.Handles.Len() {
				return fail.Errorf(fail.KindSemantic, "%q: handle %q has a parent cycle", api.Source, h.Name)
			}
		}
		h.Instance = !h.Device
	}
	return nil
}

func linkCommands(api *API) error {
	for _, c := range api.Commands.Values() {
		c.Instance = bootstrapCommands[c.Name]
		if len(c.Params) > 0 {
			switch api.Dealias(c.Params[0].Type) {
			case "VkInstance", "VkPhysicalDevice":
				c.Instance = true
			}
		}
		c.Device = !c.Instance
	}
	return nil
}

// linkInterfaces fills the per version and per extension reverse lookups.
// Core flags of a bitmask introduced by an extension are counted as part of
// that extension.
func linkInterfaces(api *API) error {
	for _, b := range api.Bitmasks.Values() {
		if len(b.Extensions) == 0 {
			continue
		}
		for _, f := range b.Flags {
			if f.inherited && len(f.Extensions) == 0 {
				f.Extensions = slices.Clone(b.Extensions)
			}
		}
	}

	each := func(o *Origin, f func(*Interface)) {
		if o.Version != nil {
			f(&o.Version.Interface)
		}
		for _, e := range o.Extensions {
			f(&e.Interface)
		}
	}
	for _, h := range api.Handles.Values() {
		each(&h.Origin, func(i *Interface) { i.Handles = append(i.Handles, h) })
	}
	for _, c := range api.Commands.Values() {
		each(&c.Origin, func(i *Interface) { i.Commands = append(i.Commands, c) })
	}
	for _, s := range api.Structs.Values() {
		each(&s.Origin, func(i *Interface) { i.Structs = append(i.Structs, s) })
	}
	for _, e := range api.Enums.Values() {
		each(&e.Origin, func(i *Interface) { i.Enums = append(i.Enums, e) })
		for _, f := range e.Fields {
			each(&f.Origin, func(i *Interface) {
				if i.EnumFields == nil {
					i.EnumFields = map[string][]*EnumField{}
				}
				i.EnumFields[e.Name] = append(i.EnumFields[e.Name], f)
			})
		}
	}
	for _, b := range api.Bitmasks.Values() {
		each(&b.Origin, func(i *Interface) { i.Bitmasks = append(i.Bitmasks, b) })
		for _, f := range b.Flags {
			each(&f.Origin, func(i *Interface) {
				if i.FlagBits == nil {
					i.FlagBits = map[string][]*Flag{}
				}
				i.FlagBits[b.Name] = append(i.FlagBits[b.Name], f)
			})
		}
	}
	for _, f := range api.Flags.Values() {
		each(&f.Origin, func(i *Interface) { i.Flags = append(i.Flags, f) })
	}
	for _, c := range api.Constants.Values() {
		each(&c.Origin, func(i *Interface) { i.Constants = append(i.Constants, c) })
	}
	for _, fp := range api.FuncPointers.Values() {
		each(&fp.Origin, func(i *Interface) { i.FuncPointers = append(i.FuncPointers, fp) })
	}
	return nil
}

// linkReturnedOnly marks every struct, enum and bitmask that no command
// accepts as input.
func linkReturnedOnly(api *API) error {
	input := map[string]bool{}
	work := container.Stack[string]{}
	push := func(name string) {
		name = api.Dealias(name)
		if !input[name] {
			input[name] = true
			work.Push(name)
		}
	}

	for _, c := range api.Commands.Values() {
		for _, p := range c.Params {
			if p.Pointer && !p.Const {
				continue
			}
			push(p.Type)
		}
	}
	for !work.Empty() {
		name := work.Pop()
		if s, ok := api.Structs.Get(name); ok {
			if s.ReturnedOnly {
				continue
			}
			for _, m := range s.Members {
				push(m.Type)
			}
			for _, e := range s.ExtendedBy {
				push(e)
			}
		}
		if f, ok := api.Flags.Get(name); ok && f.Bitmask != nil {
			push(f.Bitmask.Name)
		}
	}

	for _, s := range api.Structs.Values() {
		s.ReturnedOnly = s.ReturnedOnly || !input[s.Name]
	}
	for _, e := range api.Enums.Values() {
		e.ReturnedOnly = !input[e.Name]
	}
	for _, b := range api.Bitmasks.Values() {
		b.ReturnedOnly = !input[b.Name]
	}
	return nil
}

func linkDeprecations(api *API) error {
	resolve := func(d *Deprecate) {
		if d != nil && d.VersionName != "" {
			d.Version, _ = api.Versions.Get(d.VersionName)
		}
	}
	for _, s := range api.Structs.Values() {
		resolve(s.Deprecate)
	}
	for _, c := range api.Commands.Values() {
		resolve(c.Deprecate)
	}

	for _, e := range api.Extensions.Values() {
		if e.PromotedTo != "" {
			if v, ok := api.Versions.Get(e.PromotedTo); ok {
				e.PromotedToVersion = v
			} else if x, ok := api.Extensions.Get(e.PromotedTo); ok {
				e.PromotedToExtension = x
			}
		}
		if e.DeprecatedBy != "" {
			e.DeprecatedByVersion, _ = api.Versions.Get(e.DeprecatedBy)
		}
	}
	return nil
}

// ExtensionsOf returns the extensions that introduce the entity called name.
func (api *API) ExtensionsOf(name string) []*Extension {
	_, v := api.Lookup(name)
	switch v := v.(type) {
	case *Handle:
		return v.Extensions
	case *Struct:
		return v.Extensions
	case *Enum:
		return v.Extensions
	case *Bitmask:
		return v.Extensions
	case *Flags:
		return v.Extensions
	case *BaseType:
		return v.Extensions
	case *FuncPointer:
		return v.Extensions
	case *Define:
		return v.Extensions
	case *Command:
		return v.Extensions
	case *Constant:
		return v.Extensions
	}
	return nil
}

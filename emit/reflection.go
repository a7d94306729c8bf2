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
	"encoding/json"

	"github.com/tidwall/pretty"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/registry"
)

type reflectOrigin struct {
	Version    string   `json:"version,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
}

type reflectVersion struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Major  uint32 `json:"major"`
	Minor  uint32 `json:"minor"`
}

type reflectExtension struct {
	Name         string   `json:"name"`
	Number       uint32   `json:"number"`
	Type         string   `json:"type,omitempty"`
	SpecVersion  string   `json:"specVersion,omitempty"`
	Platform     string   `json:"platform,omitempty"`
	Protect      string   `json:"protect,omitempty"`
	Provisional  bool     `json:"provisional,omitempty"`
	Depends      string   `json:"depends,omitempty"`
	PromotedTo   string   `json:"promotedTo,omitempty"`
	DeprecatedBy string   `json:"deprecatedBy,omitempty"`
	ObsoletedBy  string   `json:"obsoletedBy,omitempty"`
	Commands     []string `json:"commands,omitempty"`
	Structs      []string `json:"structs,omitempty"`
	Enums        []string `json:"enums,omitempty"`
}

type reflectHandle struct {
	Name         string `json:"name"`
	Parent       string `json:"parent,omitempty"`
	Dispatchable bool   `json:"dispatchable"`
	Device       bool   `json:"device"`
	reflectOrigin
}

type reflectValue struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Protect string `json:"protect,omitempty"`
}

type reflectEnum struct {
	Name     string         `json:"name"`
	BitWidth int            `json:"bitWidth"`
	Bitmask  bool           `json:"bitmask,omitempty"`
	Flags    string         `json:"flags,omitempty"`
	Values   []reflectValue `json:"values"`
	// Names maps every value name, aliases included, to its index in Values.
	Names map[string]int `json:"names"`
	reflectOrigin
}

type reflectMember struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	FullType   string `json:"fullType"`
	Length     string `json:"length,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
	ExternSync string `json:"externSync,omitempty"`
	Array      string `json:"array,omitempty"`
}

type reflectStruct struct {
	Name         string          `json:"name"`
	Union        bool            `json:"union,omitempty"`
	SType        string          `json:"sType,omitempty"`
	ReturnedOnly bool            `json:"returnedOnly,omitempty"`
	Extends      []string        `json:"extends,omitempty"`
	Members      []reflectMember `json:"members"`
	reflectOrigin
}

type reflectCommand struct {
	Name         string          `json:"name"`
	ReturnType   string          `json:"returnType"`
	Device       bool            `json:"device"`
	Params       []reflectMember `json:"params"`
	SuccessCodes []string        `json:"successCodes,omitempty"`
	ErrorCodes   []string        `json:"errorCodes,omitempty"`
	Queues       []string        `json:"queues,omitempty"`
	reflectOrigin
}

type reflectConstant struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type reflectFormat struct {
	Name             string   `json:"name"`
	Class            string   `json:"class"`
	BlockSize        uint32   `json:"blockSize"`
	TexelsPerBlock   uint32   `json:"texelsPerBlock"`
	BlockExtent      []uint32 `json:"blockExtent"`
	Compressed       string   `json:"compressed,omitempty"`
	Chroma           string   `json:"chroma,omitempty"`
	Components       []string `json:"components"`
	Planes           int      `json:"planes,omitempty"`
	SpirvImageFormat string   `json:"spirvImageFormat,omitempty"`
}

type reflectSync struct {
	Name          string   `json:"name"`
	SupportQueues []string `json:"supportQueues,omitempty"`
	SupportStages []string `json:"supportStages,omitempty"`
	SupportMax    bool     `json:"supportMax,omitempty"`
	Equivalent    []string `json:"equivalent,omitempty"`
	EquivalentMax bool     `json:"equivalentMax,omitempty"`
}

type reflectAPI struct {
	Name          string                     `json:"name"`
	HeaderVersion uint32                     `json:"headerVersion"`
	Versions      []reflectVersion           `json:"versions"`
	Extensions    []reflectExtension         `json:"extensions"`
	Unsupported   []string                   `json:"unsupported,omitempty"`
	Handles       []reflectHandle            `json:"handles"`
	Enums         []reflectEnum              `json:"enums"`
	Structs       []reflectStruct            `json:"structs"`
	Commands      []reflectCommand           `json:"commands"`
	Constants     map[string]reflectConstant `json:"constants"`
	Aliases       map[string]string          `json:"aliases"`
	Formats       []reflectFormat            `json:"formats,omitempty"`
	SyncStages    []reflectSync              `json:"syncStages,omitempty"`
	SyncAccesses  []reflectSync              `json:"syncAccesses,omitempty"`
	SpirvCaps     []string                   `json:"spirvCapabilities,omitempty"`
	SpirvExts     []string                   `json:"spirvExtensions,omitempty"`
}

func originOf(o *registry.Origin) reflectOrigin {
	r := reflectOrigin{}
	if o.Version != nil {
		r.Version = o.Version.Name
	}
	for _, e := range o.Extensions {
		r.Extensions = append(r.Extensions, e.Name)
	}
	return r
}

func memberOf(d *registry.Decl) reflectMember {
	m := reflectMember{
		Name:     d.Name,
		Type:     d.Type,
		FullType: d.FullType,
		Length:   d.Length,
		Optional: d.Optional,
	}
	if d.ExternSync != registry.ExternSyncNone {
		m.ExternSync = d.ExternSync.String()
	}
	for _, dim := range d.FixedSizeArray {
		m.Array += "[" + dim + "]"
	}
	return m
}

func reflectSupport(name string, s *registry.SyncSupport, e *registry.SyncEquivalent) reflectSync {
	r := reflectSync{Name: name}
	if s != nil {
		r.SupportQueues, r.SupportStages, r.SupportMax = s.Queues, s.Stages, s.Max
	}
	if e != nil {
		r.Equivalent = append(append(r.Equivalent, e.Stages...), e.Accesses...)
		r.EquivalentMax = e.Max
	}
	return r
}

func (g *generator) reflectEnums() []reflectEnum {
	var list []reflectEnum
	for _, e := range g.api.Enums.Values() {
		r := reflectEnum{Name: e.Name, BitWidth: e.BitWidth, Names: map[string]int{}, reflectOrigin: originOf(&e.Origin)}
		for _, f := range e.Fields {
			if f.Alias != "" {
				continue
			}
			r.Names[f.Name] = len(r.Values)
			r.Values = append(r.Values, reflectValue{Name: f.Name, Value: f.ValueStr, Protect: f.Protect})
		}
		for _, f := range e.Fields {
			if f.Alias != "" {
				if i, ok := r.Names[g.api.Dealias(f.Name)]; ok {
					r.Names[f.Name] = i
				} else if i, ok := r.Names[f.Alias]; ok {
					r.Names[f.Name] = i
				}
			}
		}
		list = append(list, r)
	}
	for _, b := range g.api.Bitmasks.Values() {
		r := reflectEnum{Name: b.Name, BitWidth: b.BitWidth, Bitmask: true, Flags: b.FlagName, Names: map[string]int{}, reflectOrigin: originOf(&b.Origin)}
		for _, f := range b.Flags {
			if f.Alias != "" {
				continue
			}
			r.Names[f.Name] = len(r.Values)
			r.Values = append(r.Values, reflectValue{Name: f.Name, Value: f.ValueStr, Protect: f.Protect})
		}
		for _, f := range b.Flags {
			if f.Alias != "" {
				if i, ok := r.Names[f.Alias]; ok {
					r.Names[f.Name] = i
				}
			}
		}
		list = append(list, r)
	}
	return list
}

func (g *generator) genReflection() error {
	api := g.api
	r := reflectAPI{
		Name:          g.opts.APIName,
		HeaderVersion: api.HeaderVersion,
		Unsupported:   api.Unsupported,
		Enums:         g.reflectEnums(),
		Constants:     map[string]reflectConstant{},
		Aliases:       map[string]string{},
	}

	for _, v := range api.Versions.Values() {
		r.Versions = append(r.Versions, reflectVersion{Name: v.Name, Number: v.Number, Major: v.Major, Minor: v.Minor})
	}
	for _, e := range api.Extensions.Values() {
		re := reflectExtension{
			Name:         e.Name,
			Number:       e.Number,
			Type:         e.Type,
			SpecVersion:  e.SpecVersion,
			Platform:     e.Platform,
			Protect:      e.Protect,
			Provisional:  e.Provisional,
			PromotedTo:   e.PromotedTo,
			DeprecatedBy: e.DeprecatedBy,
			ObsoletedBy:  e.ObsoletedBy,
		}
		if e.Depends != nil {
			re.Depends = e.Depends.String()
		}
		for _, c := range e.Commands {
			re.Commands = append(re.Commands, c.Name)
		}
		for _, s := range e.Structs {
			re.Structs = append(re.Structs, s.Name)
		}
		for _, en := range e.Enums {
			re.Enums = append(re.Enums, en.Name)
		}
		r.Extensions = append(r.Extensions, re)
	}
	for _, h := range api.Handles.Values() {
		r.Handles = append(r.Handles, reflectHandle{
			Name:          h.Name,
			Parent:        h.ParentName,
			Dispatchable:  h.Dispatchable,
			Device:        h.Device,
			reflectOrigin: originOf(&h.Origin),
		})
	}
	for _, s := range api.Structs.Values() {
		rs := reflectStruct{
			Name:          s.Name,
			Union:         s.Union,
			SType:         s.SType,
			ReturnedOnly:  s.ReturnedOnly,
			Extends:       s.Extends,
			reflectOrigin: originOf(&s.Origin),
		}
		for _, m := range s.Members {
			rs.Members = append(rs.Members, memberOf(&m.Decl))
		}
		r.Structs = append(r.Structs, rs)
	}
	for _, c := range api.Commands.Values() {
		rc := reflectCommand{
			Name:          c.Name,
			ReturnType:    c.ReturnType,
			Device:        c.Device,
			SuccessCodes:  c.SuccessCodes,
			ErrorCodes:    c.ErrorCodes,
			Queues:        c.Queues,
			Params:        []reflectMember{},
			reflectOrigin: originOf(&c.Origin),
		}
		for _, p := range c.Params {
			rc.Params = append(rc.Params, memberOf(&p.Decl))
		}
		r.Commands = append(r.Commands, rc)
	}
	for _, c := range api.Constants.Values() {
		r.Constants[c.Name] = reflectConstant{Type: c.Type, Value: c.Value}
	}
	for _, a := range api.Aliases.Values() {
		r.Aliases[a.Name] = a.Target
	}
	for _, f := range api.Formats {
		rf := reflectFormat{
			Name:             f.Name,
			Class:            f.ClassName,
			BlockSize:        f.BlockSize,
			TexelsPerBlock:   f.TexelsPerBlock,
			BlockExtent:      []uint32{f.BlockExtent.X, f.BlockExtent.Y, f.BlockExtent.Z},
			Compressed:       f.Compressed,
			Chroma:           f.Chroma,
			Components:       []string{},
			Planes:           len(f.Planes),
			SpirvImageFormat: f.SpirvImageFormat,
		}
		for _, c := range f.Components {
			rf.Components = append(rf.Components, c.Type)
		}
		r.Formats = append(r.Formats, rf)
	}
	for _, s := range api.SyncStages {
		r.SyncStages = append(r.SyncStages, reflectSupport(s.Name, s.Support, s.Equivalent))
	}
	for _, a := range api.SyncAccesses {
		r.SyncAccesses = append(r.SyncAccesses, reflectSupport(a.Name, a.Support, a.Equivalent))
	}
	for _, s := range api.SpirvCapabilities {
		if s.Enabled(api) {
			r.SpirvCaps = append(r.SpirvCaps, s.Name)
		}
	}
	for _, s := range api.SpirvExtensions {
		if s.Enabled(api) {
			r.SpirvExts = append(r.SpirvExts, s.Name)
		}
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fail.Wrapf(fail.KindAssertion, err, "Failed to marshal reflection of %q", api.Name)
	}
	g.out.Write(pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  ", SortKeys: true}))
	return nil
}

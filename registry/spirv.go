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

import "github.com/antchfx/xmlquery"

func (l *loader) parseSpirv(root *xmlquery.Node) error {
	parse := func(n *xmlquery.Node, extension bool) *Spirv {
		s := &Spirv{Name: n.SelectAttr("name"), Extension: extension, Capability: !extension}
		for _, e := range elements(n, "enable") {
			s.Enables = append(s.Enables, &SpirvEnables{
				Version:   e.SelectAttr("version"),
				Extension: e.SelectAttr("extension"),
				Struct:    e.SelectAttr("struct"),
				Feature:   e.SelectAttr("feature"),
				Requires:  e.SelectAttr("requires"),
				Alias:     e.SelectAttr("alias"),
				Property:  e.SelectAttr("property"),
				Member:    e.SelectAttr("member"),
				Value:     e.SelectAttr("value"),
			})
		}
		return s
	}
	for _, n := range xmlquery.Find(root, "spirvextensions/spirvextension") {
		l.api.SpirvExtensions = append(l.api.SpirvExtensions, parse(n, true))
	}
	for _, n := range xmlquery.Find(root, "spirvcapabilities/spirvcapability") {
		l.api.SpirvCapabilities = append(l.api.SpirvCapabilities, parse(n, false))
	}
	return nil
}

// Enabled reports whether any enable entry is satisfied by the versions and
// extensions of api.
func (s *Spirv) Enabled(api *API) bool {
	for _, e := range s.Enables {
		switch {
		case e.Version != "":
			if api.Versions.Has(e.Version) {
				return true
			}
		case e.Extension != "":
			if api.Extensions.Has(e.Extension) {
				return true
			}
		default:
			expr, err := ParseExpr(e.Requires)
			if err == nil && expr.Eval(func(n string) bool { return api.Versions.Has(n) || api.Extensions.Has(n) }) {
				return true
			}
		}
	}
	return false
}

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
	"github.com/antchfx/xmlquery"
	"goarrg.com/rhi/vkgen/internal/fail"
)

func (l *loader) parseVideoCodecs(root *xmlquery.Node) error {
	for _, n := range xmlquery.Find(root, "videocodecs/videocodec") {
		c := &VideoCodec{
			Name:   n.SelectAttr("name"),
			Value:  n.SelectAttr("value"),
			Extend: n.SelectAttr("extend"),
		}
		for _, p := range elements(n, "videoprofiles") {
			vp := &VideoProfiles{Struct: p.SelectAttr("struct")}
			for _, m := range elements(p, "videoprofilemember") {
				vm := &VideoProfileMember{Name: m.SelectAttr("name")}
				for _, v := range elements(m, "videoprofile") {
					vm.Values = append(vm.Values, &VideoProfileValue{Name: v.SelectAttr("name"), Value: v.SelectAttr("value")})
				}
				vp.Members = append(vp.Members, vm)
			}
			c.Profiles = append(c.Profiles, vp)
		}
		for _, vc := range elements(n, "videocapabilities") {
			c.Capabilities = append(c.Capabilities, vc.SelectAttr("struct"))
		}
		for _, f := range elements(n, "videoformat") {
			vf := &VideoFormat{Name: f.SelectAttr("name"), Usage: f.SelectAttr("usage")}
			if vf.Name == "" {
				vf.Name = f.SelectAttr("extend")
			}
			for _, r := range elements(f, "videorequirecapabilities") {
				vf.RequiredCaps = append(vf.RequiredCaps, &VideoRequiredCapabilities{
					Struct: r.SelectAttr("struct"),
					Member: r.SelectAttr("member"),
					Value:  r.SelectAttr("value"),
				})
			}
			for _, p := range elements(f, "videoformatproperties") {
				vf.Properties = append(vf.Properties, p.SelectAttr("struct"))
			}
			c.Formats = append(c.Formats, vf)
		}
		l.api.VideoCodecs = append(l.api.VideoCodecs, c)
	}
	return nil
}

// linkVideoCodecs folds every codec's base codec into it. Formats sharing a
// name with a base format are merged into that format.
func linkVideoCodecs(api *API) error {
	byName := map[string]*VideoCodec{}
	for _, c := range api.VideoCodecs {
		byName[c.Name] = c
	}
	done := map[string]bool{}

	var resolve func(c *VideoCodec, depth int) error
	resolve = func(c *VideoCodec, depth int) error {
		if done[c.Name] || c.Extend == "" {
			done[c.Name] = true
			return nil
		}
		if depth > len(api.VideoCodecs) {
			return fail.Errorf(fail.KindSemantic, "Video codec %q extends itself", c.Name)
		}
		base, ok := byName[c.Extend]
		if !ok {
			return fail.Errorf(fail.KindSemantic, "Video codec %q extends unknown codec %q", c.Name, c.Extend)
		}
		if err := resolve(base, depth+1); err != nil {
			return err
		}

		c.Profiles = append(append([]*VideoProfiles(nil), base.Profiles...), c.Profiles...)
		c.Capabilities = append(append([]string(nil), base.Capabilities...), c.Capabilities...)

		formats := make([]*VideoFormat, 0, len(base.Formats)+len(c.Formats))
		index := map[string]*VideoFormat{}
		for _, f := range base.Formats {
			cp := *f
			cp.RequiredCaps = append([]*VideoRequiredCapabilities(nil), f.RequiredCaps...)
			cp.Properties = append([]string(nil), f.Properties...)
			formats = append(formats, &cp)
			index[cp.Name] = &cp
		}
		for _, f := range c.Formats {
			if have, ok := index[f.Name]; ok {
				if f.Usage != "" {
					have.Usage = f.Usage
				}
				have.RequiredCaps = append(have.RequiredCaps, f.RequiredCaps...)
				have.Properties = append(have.Properties, f.Properties...)
				continue
			}
			formats = append(formats, f)
			index[f.Name] = f
		}
		c.Formats = formats
		done[c.Name] = true
		return nil
	}

	for _, c := range api.VideoCodecs {
		if err := resolve(c, 0); err != nil {
			return err
		}
	}
	return nil
}

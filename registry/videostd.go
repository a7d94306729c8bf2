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
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"goarrg.com/rhi/vkgen/internal/container"
	"goarrg.com/rhi/vkgen/internal/fail"
)

// LoadMergedVideoStd attaches the Video Std headers described by the
// registry at path to api.
func (api *API) LoadMergedVideoStd(path string) error {
	fIn, err := os.Open(path)
	if err != nil {
		return fail.Wrapf(fail.KindInput, err, "Failed to open video registry %q", path)
	}
	defer fIn.Close()
	return api.LoadMergedVideoStdReader(fIn, path)
}

func (api *API) LoadMergedVideoStdReader(r io.Reader, name string) error {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return fail.Wrapf(fail.KindInput, err, "Failed to parse %q", name)
	}
	root := xmlquery.FindOne(doc, "/registry")
	if root == nil {
		return fail.Errorf(fail.KindInput, "%q: missing <registry> root element", name)
	}

	l := newLoader(name, LoadOptions{API: api.Name})
	if err := l.parseTypes(root); err != nil {
		return err
	}
	if err := l.parseEnums(root); err != nil {
		return err
	}

	std := &VideoStd{
		Enums:     container.NewOrderedMap[string, *Enum](),
		Structs:   container.NewOrderedMap[string, *Struct](),
		Constants: container.NewOrderedMap[string, *Constant](),
	}

	for _, ext := range xmlquery.Find(root, "extensions/extension") {
		if ok, _ := l.apiMatch(ext.SelectAttr("supported")); !ok {
			continue
		}
		h := &VideoStdHeader{
			Name:       ext.SelectAttr("name"),
			HeaderFile: "vk_video/" + ext.SelectAttr("name") + ".h",
		}
		for _, block := range elements(ext, "require") {
			for _, c := range elements(block, "") {
				cname := c.SelectAttr("name")
				switch c.Data {
				case "type":
					if n, ok := l.types.Get(cname); ok && n.SelectAttr("category") == "include" {
						if cname != h.HeaderFile {
							h.Depends = append(h.Depends, cname)
						}
						continue
					}
					h.Types = append(h.Types, cname)

				case "enum":
					h.Enums = append(h.Enums, cname)
					value := c.SelectAttr("value")
					if value == "" {
						continue
					}
					if strings.HasSuffix(cname, "_SPEC_VERSION") {
						h.Version, h.VersionName = value, cname
					}
					cst := &Constant{Name: cname, Value: value, Type: "uint32_t"}
					if strings.HasPrefix(value, "\"") {
						cst.Type = "char*"
					}
					std.Constants.Set(cname, cst)
				}
			}
		}
		std.Headers = append(std.Headers, h)
	}

	for _, cname := range l.constants.Keys() {
		n, _ := l.constants.Get(cname)
		std.Constants.Set(cname, &Constant{Name: cname, Type: n.SelectAttr("type"), Value: n.SelectAttr("value"), Comment: n.SelectAttr("comment")})
	}

	for _, tname := range l.types.Keys() {
		n, _ := l.types.Get(tname)
		switch n.SelectAttr("category") {
		case "struct", "union":
			err = l.newStruct(tname, n, Origin{})
		case "enum":
			err = l.newEnum(tname, Origin{})
		}
		if err != nil {
			return err
		}
	}
	if err := linkDecls(l.api); err != nil {
		return err
	}
	if err := sortStructs(l.api); err != nil {
		return err
	}
	for _, s := range l.api.Structs.Values() {
		std.Structs.Set(s.Name, s)
	}
	for _, e := range l.api.Enums.Values() {
		std.Enums.Set(e.Name, e)
	}

	logger.VPrintf("%s: %d Video Std headers, %d structs, %d enums", name, len(std.Headers), std.Structs.Len(), std.Enums.Len())
	api.VideoStd = std
	return nil
}

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
	"goarrg.com/gmath"
	"goarrg.com/rhi/vkgen/internal/fail"
)

func (l *loader) parseFormats(root *xmlquery.Node) error {
	vkFormat, hasFormatEnum := l.api.Enums.Get("VkFormat")

	for _, fn := range xmlquery.Find(root, "formats/format") {
		name := fn.SelectAttr("name")
		if !hasFormatEnum {
			break
		}
		field := vkFormat.Field(name)
		if field == nil {
			logger.VPrintf("Dropping format %q, not part of %q", name, l.api.Name)
			continue
		}

		f := &Format{
			Name:       name,
			ClassName:  fn.SelectAttr("class"),
			Chroma:     fn.SelectAttr("chroma"),
			Compressed: fn.SelectAttr("compressed"),
			Origin:     field.Origin,
		}

		parseU32 := func(attr string, def uint32) (uint32, error) {
			v := fn.SelectAttr(attr)
			if v == "" {
				return def, nil
			}
			u, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return 0, fail.Wrapf(fail.KindSemantic, err, "%q: format %q has invalid %s", l.src, name, attr)
			}
			return uint32(u), nil
		}

		var err error
		if f.BlockSize, err = parseU32("blockSize", 0); err != nil {
			return err
		}
		if f.TexelsPerBlock, err = parseU32("texelsPerBlock", 1); err != nil {
			return err
		}
		if f.Packed, err = parseU32("packed", 0); err != nil {
			return err
		}

		f.BlockExtent = gmath.Extent3u32{X: 1, Y: 1, Z: 1}
		if be := fn.SelectAttr("blockExtent"); be != "" {
			parts := strings.Split(be, ",")
			if len(parts) != 3 {
				return fail.Errorf(fail.KindSemantic, "%q: format %q has malformed blockExtent %q", l.src, name, be)
			}
			var dims [3]uint32
			for i, p := range parts {
				v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
				if err != nil {
					return fail.Wrapf(fail.KindSemantic, err, "%q: format %q blockExtent", l.src, name)
				}
				dims[i] = uint32(v)
			}
			f.BlockExtent = gmath.Extent3u32{X: dims[0], Y: dims[1], Z: dims[2]}
		}

		for _, c := range elements(fn, "") {
			switch c.Data {
			case "component":
				fc := &FormatComponent{
					Type:          c.SelectAttr("name"),
					NumericFormat: c.SelectAttr("numericFormat"),
					PlaneIndex:    -1,
				}
				switch fc.Type {
				case "R", "G", "B", "A", "D", "S":
				default:
					return fail.Errorf(fail.KindSemantic, "%q: format %q has unexpected component %q", l.src, name, fc.Type)
				}
				if bits := c.SelectAttr("bits"); bits == "compressed" {
					fc.Compressed = true
				} else {
					v, err := strconv.ParseUint(bits, 10, 32)
					if err != nil || !gmath.InRange(v, 1, 64) {
						return fail.Errorf(fail.KindSemantic, "%q: format %q component %q has invalid bits %q", l.src, name, fc.Type, bits)
					}
					fc.Bits = uint32(v)
				}
				if p := c.SelectAttr("planeIndex"); p != "" {
					v, err := strconv.Atoi(p)
					if err != nil {
						return fail.Wrapf(fail.KindSemantic, err, "%q: format %q planeIndex", l.src, name)
					}
					fc.PlaneIndex = v
				}
				f.Components = append(f.Components, fc)

			case "plane":
				fp := &FormatPlane{Compatible: c.SelectAttr("compatible")}
				idx, err1 := strconv.Atoi(c.SelectAttr("index"))
				wd, err2 := strconv.ParseUint(c.SelectAttr("widthDivisor"), 10, 32)
				hd, err3 := strconv.ParseUint(c.SelectAttr("heightDivisor"), 10, 32)
				if err1 != nil || err2 != nil || err3 != nil {
					return fail.Errorf(fail.KindSemantic, "%q: format %q has a malformed plane", l.src, name)
				}
				fp.Index, fp.WidthDivisor, fp.HeightDivisor = idx, uint32(wd), uint32(hd)
				f.Planes = append(f.Planes, fp)

			case "spirvimageformat":
				f.SpirvImageFormat = c.SelectAttr("name")
			}
		}

		l.api.Formats = append(l.api.Formats, f)
	}
	return nil
}

func (f *Format) Component(t string) *FormatComponent {
	for _, c := range f.Components {
		if c.Type == t {
			return c
		}
	}
	return nil
}

func (f *Format) HasComponent(t string) bool {
	return f.Component(t) != nil
}

func (f *Format) DepthSize() uint32 {
	if c := f.Component("D"); c != nil {
		return c.Bits
	}
	return 0
}

func (f *Format) StencilSize() uint32 {
	if c := f.Component("S"); c != nil {
		return c.Bits
	}
	return 0
}

func (f *Format) HasDepth() bool   { return f.HasComponent("D") }
func (f *Format) HasStencil() bool { return f.HasComponent("S") }

func (f *Format) IsDepthOnly() bool   { return f.HasDepth() && !f.HasStencil() }
func (f *Format) IsStencilOnly() bool { return f.HasStencil() && !f.HasDepth() }

func (f *Format) IsDepthAndStencil() bool { return f.HasDepth() && f.HasStencil() }
func (f *Format) IsDepthOrStencil() bool  { return f.HasDepth() || f.HasStencil() }

func (f *Format) DepthNumericalType() string {
	if c := f.Component("D"); c != nil {
		return c.NumericFormat
	}
	return ""
}

func (f *Format) StencilNumericalType() string {
	if c := f.Component("S"); c != nil {
		return c.NumericFormat
	}
	return ""
}

func (f *Format) IsCompressed() bool { return f.Compressed != "" }
func (f *Format) IsPacked() bool     { return f.Packed != 0 }
func (f *Format) IsMultiplane() bool { return len(f.Planes) > 1 }

func (f *Format) PlaneCount() uint32 {
	if len(f.Planes) == 0 {
		return 1
	}
	return uint32(len(f.Planes))
}

func (f *Format) RequiresYcbcrConversion() bool { return f.Chroma != "" }

func (f *Format) IsXChromaSubsampled() bool { return f.Chroma == "420" || f.Chroma == "422" }
func (f *Format) IsYChromaSubsampled() bool { return f.Chroma == "420" }

func (f *Format) IsSinglePlane422() bool { return f.Chroma == "422" && len(f.Planes) == 0 }

// NumericFormat returns the numeric format shared by every component, or an
// empty string when they differ.
func (f *Format) NumericFormat() string {
	nf := ""
	for i, c := range f.Components {
		if i == 0 {
			nf = c.NumericFormat
		} else if c.NumericFormat != nf {
			return ""
		}
	}
	return nf
}

// AllComponentBits reports whether every component is exactly bits wide.
func (f *Format) AllComponentBits(bits uint32) bool {
	if len(f.Components) == 0 {
		return false
	}
	for _, c := range f.Components {
		if c.Compressed || c.Bits != bits {
			return false
		}
	}
	return true
}

func (f *Format) Plane(index int) *FormatPlane {
	for _, p := range f.Planes {
		if p.Index == index {
			return p
		}
	}
	return nil
}

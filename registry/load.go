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
	"slices"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"goarrg.com/debug"
	"goarrg.com/gmath"
	"goarrg.com/rhi/vkgen/internal/container"
	"goarrg.com/rhi/vkgen/internal/fail"
)

var logger = debug.NewLogger("vkgen", "registry")

const (
	extBase      = 1000000000
	extBlockSize = 1000
)

type LoadOptions struct {
	// API selects the variant, "vulkan" when empty.
	API string
	// MergedAPIs admits elements of other variants. On duplicates the
	// element naming API wins.
	MergedAPIs []string
	// EnabledTags limits extensions to the listed author tags when non empty.
	EnabledTags  []string
	DisabledTags []string
}

func Load(path string, opts LoadOptions) (*API, error) {
	fIn, err := os.Open(path)
	if err != nil {
		return nil, fail.Wrapf(fail.KindInput, err, "Failed to open registry %q", path)
	}
	defer fIn.Close()
	return LoadReader(fIn, path, opts)
}

func LoadReader(r io.Reader, name string, opts LoadOptions) (*API, error) {
	if opts.API == "" {
		opts.API = "vulkan"
	}

	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fail.Wrapf(fail.KindInput, err, "Failed to parse %q", name)
	}
	root := xmlquery.FindOne(doc, "/registry")
	if root == nil {
		return nil, fail.Errorf(fail.KindInput, "%q: missing <registry> root element", name)
	}

	l := newLoader(name, opts)

	steps := []struct {
		name string
		f    func(*xmlquery.Node) error
	}{
		{"platforms", l.parsePlatforms},
		{"tags", l.parseTags},
		{"types", l.parseTypes},
		{"enums", l.parseEnums},
		{"commands", l.parseCommands},
		{"features", l.parseFeatures},
		{"extensions", l.parseExtensions},
		{"requirements", l.applyRequirements},
		{"entities", l.materialize},
		{"formats", l.parseFormats},
		{"sync", l.parseSync},
		{"spirv", l.parseSpirv},
		{"videocodecs", l.parseVideoCodecs},
	}
	for _, s := range steps {
		logger.VPrintf("%s: loading %s", name, s.name)
		if err := s.f(root); err != nil {
			if fail.KindOf(err) == fail.KindUnknown {
				err = fail.Wrapf(fail.KindSemantic, err, "%q: failed to load %s", name, s.name)
			}
			return nil, err
		}
	}

	if err := link(l.api); err != nil {
		return nil, err
	}
	return l.api, nil
}

type pendingField struct {
	name     string
	alias    string
	value    int64
	valueStr string
	comment  string
	origin   Origin
}

type requirer struct {
	version   *Version
	extension *Extension
	node      *xmlquery.Node
}

func (r requirer) name() string {
	if r.version != nil {
		return r.version.Name
	}
	return r.extension.Name
}

func (r requirer) iface() *Interface {
	if r.version != nil {
		return &r.version.Interface
	}
	return &r.extension.Interface
}

func (r requirer) origin() Origin {
	if r.version != nil {
		return Origin{Version: r.version}
	}
	return Origin{Extensions: []*Extension{r.extension}}
}

type loader struct {
	src  string
	opts LoadOptions
	api  *API

	types      *container.OrderedMap[string, *xmlquery.Node]
	explicit   map[string]bool
	enumBlocks map[string]*xmlquery.Node
	commands   *container.OrderedMap[string, *xmlquery.Node]
	constants  *container.OrderedMap[string, *xmlquery.Node]

	features   []requirer
	required   map[string]*Origin
	removed    map[string]bool
	extFields  map[string]*container.OrderedMap[string, *pendingField]
	extConsts  *container.OrderedMap[string, *Constant]
	deprecated map[string]*Deprecate
}

func newLoader(name string, opts LoadOptions) *loader {
	l := &loader{
		src:        name,
		opts:       opts,
		api:        newAPI(opts.API),
		types:      container.NewOrderedMap[string, *xmlquery.Node](),
		explicit:   map[string]bool{},
		enumBlocks: map[string]*xmlquery.Node{},
		commands:   container.NewOrderedMap[string, *xmlquery.Node](),
		constants:  container.NewOrderedMap[string, *xmlquery.Node](),
		required:   map[string]*Origin{},
		removed:    map[string]bool{},
		extFields:  map[string]*container.OrderedMap[string, *pendingField]{},
		extConsts:  container.NewOrderedMap[string, *Constant](),
		deprecated: map[string]*Deprecate{},
	}
	l.api.Source = name
	return l
}

// apiMatch reports whether an api/supported attribute admits the element and
// whether it names the target API itself.
func (l *loader) apiMatch(attr string) (bool, bool) {
	if attr == "" {
		return true, false
	}
	apis := splitList(attr)
	if slices.Contains(apis, l.opts.API) {
		return true, true
	}
	for _, a := range apis {
		if slices.Contains(l.opts.MergedAPIs, a) {
			return true, false
		}
	}
	return false, false
}

func (l *loader) admits(n *xmlquery.Node) bool {
	ok, _ := l.apiMatch(n.SelectAttr("api"))
	return ok
}

func elements(n *xmlquery.Node, tag string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && (tag == "" || c.Data == tag) {
			out = append(out, c)
		}
	}
	return out
}

func childText(n *xmlquery.Node, tag string) string {
	for _, c := range elements(n, tag) {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}

func nodeName(n *xmlquery.Node) string {
	if name := n.SelectAttr("name"); name != "" {
		return name
	}
	return childText(n, "name")
}

func (l *loader) parsePlatforms(root *xmlquery.Node) error {
	for _, p := range xmlquery.Find(root, "platforms/platform") {
		name := p.SelectAttr("name")
		l.api.Platforms[name] = &Platform{Name: name, Protect: p.SelectAttr("protect")}
	}
	return nil
}

func (l *loader) parseTags(root *xmlquery.Node) error {
	for _, t := range xmlquery.Find(root, "tags/tag") {
		name := t.SelectAttr("name")
		l.api.Tags[name] = &Tag{Name: name, Author: t.SelectAttr("author"), Contact: t.SelectAttr("contact")}
	}
	return nil
}

func (l *loader) parseTypes(root *xmlquery.Node) error {
	for _, t := range xmlquery.Find(root, "types/type") {
		ok, explicit := l.apiMatch(t.SelectAttr("api"))
		if !ok {
			continue
		}
		name := nodeName(t)
		if name == "" {
			return fail.Errorf(fail.KindSemantic, "%q: <type category=%q> without a name", l.src, t.SelectAttr("category"))
		}
		if l.types.Has(name) {
			if explicit && !l.explicit[name] {
				l.types.Set(name, t)
				l.explicit[name] = true
			}
			continue
		}
		l.types.Set(name, t)
		l.explicit[name] = explicit
	}
	if l.types.Len() == 0 {
		return fail.Errorf(fail.KindInput, "%q: no <types> found", l.src)
	}
	return nil
}

func (l *loader) parseEnums(root *xmlquery.Node) error {
	for _, block := range xmlquery.Find(root, "enums") {
		name := block.SelectAttr("name")
		if name == "API Constants" || block.SelectAttr("type") == "constants" {
			for _, e := range elements(block, "enum") {
				if !l.admits(e) {
					continue
				}
				l.constants.Set(e.SelectAttr("name"), e)
			}
			continue
		}
		if name == "" {
			return fail.Errorf(fail.KindSemantic, "%q: <enums> without a name", l.src)
		}
		l.enumBlocks[name] = block
	}
	return nil
}

func (l *loader) parseCommands(root *xmlquery.Node) error {
	for _, c := range xmlquery.Find(root, "commands/command") {
		ok, explicit := l.apiMatch(c.SelectAttr("api"))
		if !ok {
			continue
		}
		name := c.SelectAttr("name")
		if c.SelectAttr("alias") == "" {
			proto := xmlquery.FindOne(c, "proto")
			if proto == nil {
				return fail.Errorf(fail.KindSemantic, "%q: <command> without <proto>", l.src)
			}
			name = childText(proto, "name")
			if name == "" {
				return fail.Errorf(fail.KindSemantic, "%q: missing <name> inside <proto>", l.src)
			}
		}
		if l.commands.Has(name) {
			if explicit && !l.explicit[name] {
				l.commands.Set(name, c)
				l.explicit[name] = true
			}
			continue
		}
		l.commands.Set(name, c)
		l.explicit[name] = explicit
	}
	return nil
}

func (l *loader) parseFeatures(root *xmlquery.Node) error {
	for _, f := range xmlquery.Find(root, "feature") {
		apiAttr := f.SelectAttr("api")
		if ok, _ := l.apiMatch(apiAttr); !ok {
			continue
		}
		name := f.SelectAttr("name")
		number := f.SelectAttr("number")
		v := &Version{
			Name:       name,
			NameString: strconv.Quote(name),
			NameAPI:    strings.Replace(name, "_VERSION_", "_API_VERSION_", 1),
			Number:     number,
			APIs:       splitList(apiAttr),
		}
		major, minor, ok := strings.Cut(number, ".")
		if !ok {
			return fail.Errorf(fail.KindSemantic, "%q: feature %q has malformed number %q", l.src, name, number)
		}
		{
			ma, err := strconv.ParseUint(major, 10, 32)
			if err != nil {
				return fail.Wrapf(fail.KindSemantic, err, "%q: feature %q", l.src, name)
			}
			mi, err := strconv.ParseUint(minor, 10, 32)
			if err != nil {
				return fail.Wrapf(fail.KindSemantic, err, "%q: feature %q", l.src, name)
			}
			if !gmath.InRange(ma, 0, 0x7F) || !gmath.InRange(mi, 0, 0x3FF) {
				return fail.Errorf(fail.KindSemantic, "%q: feature %q version out of range", l.src, name)
			}
			v.Major, v.Minor = uint32(ma), uint32(mi)
		}
		if l.api.Versions.Has(name) {
			return fail.Errorf(fail.KindSemantic, "%q: duplicate feature %q", l.src, name)
		}
		l.api.Versions.Set(name, v)
		l.features = append(l.features, requirer{version: v, node: f})
	}
	if l.api.Versions.Len() == 0 {
		return fail.Errorf(fail.KindInput, "%q: no <feature> for api %q", l.src, l.opts.API)
	}
	return nil
}

func (l *loader) parseExtensions(root *xmlquery.Node) error {
	for _, x := range xmlquery.Find(root, "extensions/extension") {
		name := x.SelectAttr("name")
		supported := x.SelectAttr("supported")
		if ok, _ := l.apiMatch(supported); !ok || supported == "" {
			l.api.Unsupported = append(l.api.Unsupported, name)
			continue
		}

		vendor := ""
		if parts := strings.SplitN(name, "_", 3); len(parts) == 3 {
			vendor = parts[1]
		}
		if slices.Contains(l.opts.DisabledTags, vendor) ||
			(len(l.opts.EnabledTags) > 0 && !slices.Contains(l.opts.EnabledTags, vendor)) {
			logger.VPrintf("Skipping extension %q, tag %q filtered", name, vendor)
			continue
		}

		e := &Extension{
			Name:         name,
			Type:         x.SelectAttr("type"),
			Vendor:       vendor,
			Author:       x.SelectAttr("author"),
			Platform:     x.SelectAttr("platform"),
			Provisional:  x.SelectAttr("provisional") == "true",
			PromotedTo:   x.SelectAttr("promotedto"),
			DeprecatedBy: x.SelectAttr("deprecatedby"),
			ObsoletedBy:  x.SelectAttr("obsoletedby"),
			SpecialUse:   splitList(x.SelectAttr("specialuse")),
			Supported:    splitList(supported),
		}
		e.Ratified, _ = l.apiMatch(x.SelectAttr("ratified"))
		if x.SelectAttr("ratified") == "" {
			e.Ratified = false
		}

		switch e.Type {
		case "instance":
			e.Instance = true
		case "device":
			e.Device = true
		default:
			return fail.Errorf(fail.KindSemantic, "%q: extension %q has unknown type %q", l.src, name, e.Type)
		}

		{
			n, err := strconv.ParseUint(x.SelectAttr("number"), 10, 32)
			if err != nil {
				return fail.Wrapf(fail.KindSemantic, err, "%q: extension %q has invalid number", l.src, name)
			}
			e.Number = uint32(n)
		}
		if e.Platform != "" {
			p, ok := l.api.Platforms[e.Platform]
			if !ok {
				return fail.Errorf(fail.KindSemantic, "%q: extension %q names unknown platform %q", l.src, name, e.Platform)
			}
			e.Protect = p.Protect
		}
		{
			expr, err := ParseExpr(x.SelectAttr("depends"))
			if err != nil {
				return fail.Wrapf(fail.KindSemantic, err, "%q: extension %q", l.src, name)
			}
			e.Depends = expr
		}

		if l.api.Extensions.Has(name) {
			return fail.Errorf(fail.KindSemantic, "%q: duplicate extension %q", l.src, name)
		}
		l.api.Extensions.Set(name, e)
		l.features = append(l.features, requirer{extension: e, node: x})
	}
	return nil
}

func (l *loader) enabled(name string) bool {
	return l.api.Versions.Has(name) || l.api.Extensions.Has(name)
}

func (l *loader) applyRequirements(*xmlquery.Node) error {
	for _, f := range l.features {
		for _, block := range elements(f.node, "") {
			if !l.admits(block) {
				continue
			}
			var err error
			switch block.Data {
			case "require":
				err = l.applyRequire(f, block)
			case "remove":
				err = l.applyRemove(f, block)
			case "deprecate":
				l.applyDeprecate(f, block)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *loader) applyRequire(f requirer, block *xmlquery.Node) error {
	depends, err := ParseExpr(block.SelectAttr("depends"))
	if err != nil {
		return fail.Wrapf(fail.KindSemantic, err, "%q: require block of %q", l.src, f.name())
	}
	if !depends.Eval(l.enabled) {
		logger.VPrintf("%s: skipping require block depending on %q", f.name(), depends)
		return nil
	}

	req := &Require{Comment: block.SelectAttr("comment"), Depends: depends}
	origin := f.origin()

	for _, c := range elements(block, "") {
		if !l.admits(c) {
			continue
		}
		name := c.SelectAttr("name")
		switch c.Data {
		case "type":
			req.Types = append(req.Types, name)
			l.require(name, origin, true)

		case "command":
			req.Commands = append(req.Commands, name)
			l.require(name, origin, true)

		case "feature":
			req.Features = append(req.Features, RequireFeature{Struct: c.SelectAttr("struct"), Name: name})

		case "enum":
			req.Enums = append(req.Enums, name)
			if extends := c.SelectAttr("extends"); extends != "" {
				if err := l.addExtensionField(f, extends, c, origin); err != nil {
					return err
				}
				continue
			}
			if c.SelectAttr("value") == "" && c.SelectAttr("alias") == "" && c.SelectAttr("bitpos") == "" {
				l.require(name, origin, true)
				continue
			}
			if err := l.addExtensionConstant(f, c, origin); err != nil {
				return err
			}
		}
	}

	iface := f.iface()
	iface.Requires = append(iface.Requires, req)
	return nil
}

func (l *loader) applyRemove(f requirer, block *xmlquery.Node) error {
	depends, err := ParseExpr(block.SelectAttr("depends"))
	if err != nil {
		return fail.Wrapf(fail.KindSemantic, err, "%q: remove block of %q", l.src, f.name())
	}
	if !depends.Eval(l.enabled) {
		logger.VPrintf("%s: skipping remove block depending on %q", f.name(), depends)
		return nil
	}

	for _, c := range elements(block, "") {
		if !l.admits(c) {
			continue
		}
		name := c.SelectAttr("name")
		switch c.Data {
		case "type", "command", "enum":
			l.removed[name] = true
			delete(l.required, name)
			for _, fields := range l.extFields {
				fields.Delete(name)
			}
			l.extConsts.Delete(name)
		}
	}
	return nil
}

func (l *loader) applyDeprecate(f requirer, block *xmlquery.Node) {
	d := &Deprecate{Link: block.SelectAttr("explanationlink")}
	if f.version != nil {
		d.VersionName = f.version.Name
	} else {
		d.Replacements = []*Extension{f.extension}
	}
	for _, c := range elements(block, "") {
		l.deprecated[c.SelectAttr("name")] = d
	}
}

type pendingRequire struct {
	name     string
	origin   Origin
	explicit bool
}

// require marks name and everything it references as part of the API.
// Only the first requirer sets the version, explicit requirers add
// their extensions.
func (l *loader) require(name string, origin Origin, explicit bool) {
	work := container.Stack[pendingRequire]{}
	work.Push(pendingRequire{name: name, origin: origin, explicit: explicit})

	for !work.Empty() {
		r := work.Pop()
		if l.removed[r.name] {
			continue
		}
		if have, ok := l.required[r.name]; ok {
			if r.explicit {
				if have.Version == nil && r.origin.Version != nil {
					have.Version = r.origin.Version
				}
				for _, e := range r.origin.Extensions {
					have.addExtension(e)
				}
			}
			continue
		}

		o := Origin{Version: r.origin.Version, Extensions: slices.Clone(r.origin.Extensions)}
		l.required[r.name] = &o
		for _, dep := range l.dependencies(r.name) {
			if _, ok := l.required[dep]; !ok {
				work.Push(pendingRequire{name: dep, origin: o})
			}
		}
	}
}

func (l *loader) dependencies(name string) []string {
	var deps []string
	add := func(s string) {
		if s == "" || s == name {
			return
		}
		if l.types.Has(s) || l.commands.Has(s) || l.constants.Has(s) {
			deps = append(deps, s)
		}
	}
	typeRefs := func(n *xmlquery.Node) {
		for _, t := range elements(n, "type") {
			add(strings.TrimSpace(t.InnerText()))
		}
		for _, e := range elements(n, "enum") {
			add(strings.TrimSpace(e.InnerText()))
		}
	}

	if n, ok := l.types.Get(name); ok {
		add(n.SelectAttr("alias"))
		add(n.SelectAttr("requires"))
		add(n.SelectAttr("bitvalues"))
		for _, p := range splitList(n.SelectAttr("parent")) {
			add(p)
		}
		typeRefs(n)
		for _, sub := range elements(n, "") {
			if (sub.Data == "member" || sub.Data == "param" || sub.Data == "proto") && l.admits(sub) {
				typeRefs(sub)
			}
		}
		if cat := n.SelectAttr("category"); cat == "enum" {
			if block, ok := l.enumBlocks[name]; ok {
				for _, e := range elements(block, "enum") {
					add(e.SelectAttr("alias"))
				}
			}
		}
	}
	if n, ok := l.commands.Get(name); ok {
		add(n.SelectAttr("alias"))
		for _, sub := range elements(n, "") {
			if (sub.Data == "param" || sub.Data == "proto") && l.admits(sub) {
				typeRefs(sub)
			}
		}
	}
	if n, ok := l.constants.Get(name); ok {
		add(n.SelectAttr("alias"))
	}
	return deps
}

// fieldValue computes the numeric value of an <enum> element.
func fieldValue(n *xmlquery.Node, extNumber uint32) (int64, string, error) {
	name := n.SelectAttr("name")
	if v := n.SelectAttr("value"); v != "" {
		i, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(v, 0, 64)
			if uerr != nil {
				return 0, "", debug.ErrorWrapf(err, "Invalid value %q for %q", v, name)
			}
			i = int64(u)
		}
		return i, v, nil
	}
	if b := n.SelectAttr("bitpos"); b != "" {
		pos, err := strconv.ParseInt(b, 10, 32)
		if err != nil {
			return 0, "", debug.ErrorWrapf(err, "Invalid bitpos %q for %q", b, name)
		}
		if !gmath.InRange(pos, 0, 63) {
			return 0, "", debug.Errorf("Bitpos %d out of range for %q", pos, name)
		}
		v := int64(uint64(1) << uint(pos))
		if pos > 31 {
			return v, "0x" + strings.ToUpper(strconv.FormatUint(uint64(v), 16)), nil
		}
		return v, "0x" + leftPad(strings.ToUpper(strconv.FormatUint(uint64(v), 16)), 8), nil
	}
	if o := n.SelectAttr("offset"); o != "" {
		offset, err := strconv.ParseInt(o, 10, 64)
		if err != nil {
			return 0, "", debug.ErrorWrapf(err, "Invalid offset %q for %q", o, name)
		}
		if x := n.SelectAttr("extnumber"); x != "" {
			num, err := strconv.ParseUint(x, 10, 32)
			if err != nil {
				return 0, "", debug.ErrorWrapf(err, "Invalid extnumber %q for %q", x, name)
			}
			extNumber = uint32(num)
		}
		if extNumber == 0 {
			return 0, "", debug.Errorf("Offset without extension number for %q", name)
		}
		v := extBase + (int64(extNumber)-1)*extBlockSize + offset
		if n.SelectAttr("dir") == "-" {
			v = -v
		}
		return v, strconv.FormatInt(v, 10), nil
	}
	return 0, "", debug.Errorf("Enum %q has no value, bitpos, offset or alias", name)
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}

func (l *loader) addExtensionField(f requirer, extends string, n *xmlquery.Node, origin Origin) error {
	name := n.SelectAttr("name")
	p := &pendingField{name: name, alias: n.SelectAttr("alias"), comment: n.SelectAttr("comment"), origin: origin}
	if p.alias == "" {
		number := uint32(0)
		if f.extension != nil {
			number = f.extension.Number
		}
		v, s, err := fieldValue(n, number)
		if err != nil {
			return fail.Wrapf(fail.KindSemantic, err, "%q: %s extends %q", l.src, f.name(), extends)
		}
		p.value, p.valueStr = v, s
	}

	fields, ok := l.extFields[extends]
	if !ok {
		fields = container.NewOrderedMap[string, *pendingField]()
		l.extFields[extends] = fields
	}
	if have, ok := fields.Get(name); ok {
		if have.alias != p.alias || have.value != p.value {
			return fail.Errorf(fail.KindSemantic, "%q: duplicate enum %q in %q with conflicting values (%s%s vs %s%s)",
				l.src, name, extends, have.valueStr, have.alias, p.valueStr, p.alias)
		}
		if have.origin.Version == nil && origin.Version != nil {
			have.origin.Version = origin.Version
		}
		for _, e := range origin.Extensions {
			have.origin.addExtension(e)
		}
		return nil
	}
	fields.Set(name, p)
	return nil
}

func (l *loader) addExtensionConstant(f requirer, n *xmlquery.Node, origin Origin) error {
	name := n.SelectAttr("name")
	c := &Constant{
		Name:    name,
		Type:    n.SelectAttr("type"),
		Value:   n.SelectAttr("value"),
		Comment: n.SelectAttr("comment"),
		Origin:  origin,
	}
	if alias := n.SelectAttr("alias"); alias != "" {
		l.api.Aliases.Set(name, &Alias{Name: name, Target: alias, Kind: KindConstant, Origin: origin})
		return nil
	}
	if c.Value == "" {
		v, s, err := fieldValue(n, 0)
		if err != nil {
			return fail.Wrapf(fail.KindSemantic, err, "%q: %s", l.src, f.name())
		}
		c.Value = s
		c.ValueInt, c.IsInt = v, true
	} else if v, err := strconv.ParseInt(c.Value, 0, 64); err == nil {
		c.ValueInt, c.IsInt = v, true
	}
	if c.Type == "" {
		if strings.HasPrefix(c.Value, "\"") {
			c.Type = "char*"
		} else {
			c.Type = "uint32_t"
		}
	}

	if e := f.extension; e != nil {
		switch {
		case strings.HasSuffix(name, "_SPEC_VERSION"):
			e.SpecVersion = c.Value
			e.SpecVersionMacro = name
		case strings.HasSuffix(name, "_EXTENSION_NAME"):
			e.NameString = c.Value
			e.NameMacro = name
		}
	}
	l.extConsts.Set(name, c)
	return nil
}

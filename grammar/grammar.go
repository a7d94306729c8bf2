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

// Package grammar loads SPIR-V style JSON grammars: the core grammar with its
// instructions, operand kinds and printing classes, and extended instruction
// sets.
package grammar

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
	"goarrg.com/debug"
	"goarrg.com/rhi/vkgen/internal/fail"
)

var logger = debug.NewLogger("vkgen", "grammar")

type Category uint32

const (
	CategoryBitEnum Category = iota
	CategoryValueEnum
	CategoryID
	CategoryLiteral
	CategoryComposite
)

func (c Category) String() string {
	switch c {
	case CategoryBitEnum:
		return "BitEnum"
	case CategoryValueEnum:
		return "ValueEnum"
	case CategoryID:
		return "Id"
	case CategoryLiteral:
		return "Literal"
	case CategoryComposite:
		return "Composite"
	}
	return "Category(" + strconv.FormatUint(uint64(c), 10) + ")"
}

func (c *Category) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BitEnum":
		*c = CategoryBitEnum
	case "ValueEnum":
		*c = CategoryValueEnum
	case "Id":
		*c = CategoryID
	case "Literal":
		*c = CategoryLiteral
	case "Composite":
		*c = CategoryComposite
	default:
		return debug.Errorf("Unknown operand kind category %q", string(text))
	}
	return nil
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Operand is one slot of an instruction or enumerant parameter list.
// Quantifier is "", "?" or "*".
type Operand struct {
	Kind       string
	Quantifier string
	Name       string
}

func (o Operand) Optional() bool {
	return o.Quantifier == "?" || o.Quantifier == "*"
}

type Instruction struct {
	OpName       string
	Class        string
	OpCode       uint32
	Aliases      []string
	Operands     []Operand
	Capabilities []string
	Extensions   []string
	Version      string
	LastVersion  string
}

func (i *Instruction) HasResult() bool {
	for _, o := range i.Operands {
		if o.Kind == "IdResult" {
			return true
		}
	}
	return false
}

func (i *Instruction) HasType() bool {
	for _, o := range i.Operands {
		if o.Kind == "IdResultType" {
			return true
		}
	}
	return false
}

type Enumerant struct {
	Name         string
	Value        uint32
	Aliases      []string
	Capabilities []string
	Extensions   []string
	Parameters   []Operand
	Version      string
	LastVersion  string
}

type OperandKind struct {
	Category   Category
	Kind       string
	Doc        string
	Enumerants []*Enumerant
	Bases      []string
}

type PrintingClass struct {
	Tag     string
	Heading string
}

type Grammar struct {
	Magic           uint32
	Major           uint32
	Minor           uint32
	Revision        uint32
	Instructions    []*Instruction
	OperandKinds    []*OperandKind
	PrintingClasses []*PrintingClass

	kinds map[string]*OperandKind
}

func (g *Grammar) OperandKind(kind string) *OperandKind {
	return g.kinds[kind]
}

// Instruction finds an instruction by its opname or one of its aliases.
func (g *Grammar) Instruction(name string) *Instruction {
	for _, i := range g.Instructions {
		if i.OpName == name {
			return i
		}
		for _, a := range i.Aliases {
			if a == name {
				return i
			}
		}
	}
	return nil
}

// ExtInstSet is an extended instruction set reached through OpExtInst.
type ExtInstSet struct {
	Prefix       string
	Tag          string
	Version      uint32
	Revision     uint32
	Instructions []*Instruction
	OperandKinds []*OperandKind
}

func Load(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fail.Wrapf(fail.KindInput, err, "Failed to read grammar %q", path)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fail.Annotatef(err, "%q", path)
	}
	return g, nil
}

func Parse(data []byte) (*Grammar, error) {
	if !gjson.ValidBytes(data) {
		return nil, fail.Errorf(fail.KindInput, "Malformed grammar json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() || !root.Get("instructions").IsArray() {
		return nil, fail.Errorf(fail.KindInput, "Grammar is missing the instructions array")
	}

	g := &Grammar{kinds: map[string]*OperandKind{}}
	{
		magic, err := parseUint(root.Get("magic_number"))
		if err != nil {
			return nil, fail.Wrapf(fail.KindInput, err, "Invalid magic_number")
		}
		g.Magic = magic
		g.Major = uint32(root.Get("major_version").Uint())
		g.Minor = uint32(root.Get("minor_version").Uint())
		g.Revision = uint32(root.Get("revision").Uint())
	}

	for _, pc := range root.Get("instruction_printing_class").Array() {
		g.PrintingClasses = append(g.PrintingClasses, &PrintingClass{
			Tag:     pc.Get("tag").String(),
			Heading: pc.Get("heading").String(),
		})
	}

	kinds, err := parseOperandKinds(root.Get("operand_kinds"))
	if err != nil {
		return nil, err
	}
	g.OperandKinds = kinds
	for _, k := range kinds {
		g.kinds[k.Kind] = k
	}

	g.Instructions, err = parseInstructions(root.Get("instructions"))
	if err != nil {
		return nil, err
	}

	if err := checkKinds(g.kinds, g.Instructions, g.OperandKinds); err != nil {
		return nil, err
	}

	logger.VPrintf("Loaded grammar %d.%d rev %d: %d instructions, %d operand kinds",
		g.Major, g.Minor, g.Revision, len(g.Instructions), len(g.OperandKinds))
	return g, nil
}

// LoadExtInst loads an extended instruction set, deriving its enum tag from
// the file name, extinst.glsl.std.450.grammar.json gives
// SPV_EXT_INST_TYPE_GLSL_STD_450.
func LoadExtInst(prefix, path string) (*ExtInstSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fail.Wrapf(fail.KindInput, err, "Failed to read extended instruction set %q", path)
	}
	s, err := ParseExtInst(prefix, ExtInstTag(path), data)
	if err != nil {
		return nil, fail.Annotatef(err, "%q", path)
	}
	return s, nil
}

func ExtInstTag(path string) string {
	name := filepath.Base(path)
	name = strings.TrimPrefix(name, "extinst.")
	name = strings.TrimSuffix(name, ".json")
	name = strings.TrimSuffix(name, ".grammar")
	return "SPV_EXT_INST_TYPE_" + strcase.ToScreamingSnake(name)
}

func ParseExtInst(prefix, tag string, data []byte) (*ExtInstSet, error) {
	if !gjson.ValidBytes(data) {
		return nil, fail.Errorf(fail.KindInput, "Malformed extended instruction set json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() || !root.Get("instructions").IsArray() {
		return nil, fail.Errorf(fail.KindInput, "Extended instruction set is missing the instructions array")
	}

	s := &ExtInstSet{
		Prefix:   prefix,
		Tag:      tag,
		Version:  uint32(root.Get("version").Uint()),
		Revision: uint32(root.Get("revision").Uint()),
	}

	var err error
	s.OperandKinds, err = parseOperandKinds(root.Get("operand_kinds"))
	if err != nil {
		return nil, err
	}
	s.Instructions, err = parseInstructions(root.Get("instructions"))
	if err != nil {
		return nil, err
	}

	logger.VPrintf("Loaded extended instruction set %s: %d instructions", tag, len(s.Instructions))
	return s, nil
}

// CheckExtInst verifies that every operand kind used by s is declared by
// either g or s.
func CheckExtInst(g *Grammar, s *ExtInstSet) error {
	kinds := make(map[string]*OperandKind, len(g.kinds)+len(s.OperandKinds))
	for k, v := range g.kinds {
		kinds[k] = v
	}
	for _, k := range s.OperandKinds {
		kinds[k.Kind] = k
	}
	if err := checkKinds(kinds, s.Instructions, s.OperandKinds); err != nil {
		return fail.Annotatef(err, "Extended instruction set %s", s.Tag)
	}
	return nil
}

func parseUint(r gjson.Result) (uint32, error) {
	if r.Type == gjson.String {
		v, err := strconv.ParseUint(r.Str, 0, 32)
		return uint32(v), err
	}
	if r.Type != gjson.Number {
		return 0, debug.Errorf("Expected number, got %q", r.Raw)
	}
	v, err := strconv.ParseUint(r.Raw, 0, 32)
	return uint32(v), err
}

func stringList(r gjson.Result) []string {
	var list []string
	for _, s := range r.Array() {
		list = append(list, s.String())
	}
	return list
}

func parseOperands(r gjson.Result) []Operand {
	var list []Operand
	for _, o := range r.Array() {
		list = append(list, Operand{
			Kind:       o.Get("kind").String(),
			Quantifier: o.Get("quantifier").String(),
			Name:       o.Get("name").String(),
		})
	}
	return list
}

func parseInstructions(r gjson.Result) ([]*Instruction, error) {
	var list []*Instruction
	for _, i := range r.Array() {
		name := i.Get("opname").String()
		if name == "" {
			return nil, fail.Errorf(fail.KindInput, "Instruction without opname: %s", i.Raw)
		}
		if !i.Get("opcode").Exists() {
			return nil, fail.Errorf(fail.KindInput, "Instruction %q without opcode", name)
		}
		op, err := parseUint(i.Get("opcode"))
		if err != nil {
			return nil, fail.Wrapf(fail.KindInput, err, "Instruction %q has an invalid opcode", name)
		}
		list = append(list, &Instruction{
			OpName:       name,
			Class:        i.Get("class").String(),
			OpCode:       op,
			Aliases:      stringList(i.Get("aliases")),
			Operands:     parseOperands(i.Get("operands")),
			Capabilities: stringList(i.Get("capabilities")),
			Extensions:   stringList(i.Get("extensions")),
			Version:      i.Get("version").String(),
			LastVersion:  i.Get("lastVersion").String(),
		})
	}
	return list, nil
}

func parseOperandKinds(r gjson.Result) ([]*OperandKind, error) {
	var list []*OperandKind
	seen := map[string]bool{}
	for _, k := range r.Array() {
		kind := &OperandKind{
			Kind:  k.Get("kind").String(),
			Doc:   k.Get("doc").String(),
			Bases: stringList(k.Get("bases")),
		}
		if kind.Kind == "" {
			return nil, fail.Errorf(fail.KindInput, "Operand kind without a name: %s", k.Raw)
		}
		if seen[kind.Kind] {
			return nil, fail.Errorf(fail.KindSemantic, "Duplicate operand kind %q", kind.Kind)
		}
		seen[kind.Kind] = true
		if err := kind.Category.UnmarshalText([]byte(k.Get("category").String())); err != nil {
			return nil, fail.Wrapf(fail.KindSemantic, err, "Operand kind %q", kind.Kind)
		}

		for _, e := range k.Get("enumerants").Array() {
			v, err := parseUint(e.Get("value"))
			if err != nil {
				return nil, fail.Wrapf(fail.KindInput, err, "Enumerant %s.%s has an invalid value",
					kind.Kind, e.Get("enumerant").String())
			}
			kind.Enumerants = append(kind.Enumerants, &Enumerant{
				Name:         e.Get("enumerant").String(),
				Value:        v,
				Aliases:      stringList(e.Get("aliases")),
				Capabilities: stringList(e.Get("capabilities")),
				Extensions:   stringList(e.Get("extensions")),
				Parameters:   parseOperands(e.Get("parameters")),
				Version:      e.Get("version").String(),
				LastVersion:  e.Get("lastVersion").String(),
			})
		}
		list = append(list, kind)
	}
	return list, nil
}

func checkKinds(kinds map[string]*OperandKind, instructions []*Instruction, operandKinds []*OperandKind) error {
	check := func(kind, where string) error {
		if _, ok := kinds[kind]; !ok {
			return fail.Errorf(fail.KindSemantic,
				"Unknown operand kind %q used by %s, the operand kind list needs to be updated", kind, where)
		}
		return nil
	}
	for _, i := range instructions {
		for _, o := range i.Operands {
			if err := check(o.Kind, i.OpName); err != nil {
				return err
			}
		}
	}
	for _, k := range operandKinds {
		for _, b := range k.Bases {
			if err := check(b, k.Kind); err != nil {
				return err
			}
		}
		for _, e := range k.Enumerants {
			for _, p := range e.Parameters {
				if err := check(p.Kind, k.Kind+"."+e.Name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

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
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"goarrg.com/rhi/vkgen/grammar"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/internal/table"
)

// VersionNone marks an instruction or enumerant outside every core version.
const VersionNone = 0xffffffff

type InstructionDesc struct {
	OpCode        uint32
	HasResult     bool
	HasType       bool
	Operands      table.IndexRange
	Name          table.IndexRange
	Aliases       table.IndexRange
	Capabilities  table.IndexRange
	Extensions    table.IndexRange
	MinVersion    uint32
	LastVersion   uint32
	PrintingClass string
}

// NameIndex is a row of a name sorted table pointing into its value sorted
// twin. Aliases get their own rows.
type NameIndex struct {
	Kind  string
	Name  table.IndexRange
	Index uint32
}

type OperandDesc struct {
	Kind         string
	Value        uint32
	Name         table.IndexRange
	Aliases      table.IndexRange
	Capabilities table.IndexRange
	Extensions   table.IndexRange
	Operands     table.IndexRange
	MinVersion   uint32
	LastVersion  uint32
}

type ExtInstDesc struct {
	Set          string
	OpCode       uint32
	Name         table.IndexRange
	Operands     table.IndexRange
	Capabilities table.IndexRange
}

// KindRange is the slice of a value or name table that belongs to one kind.
type KindRange struct {
	Kind   string
	Values table.IndexRange
	Names  table.IndexRange
}

type SpirvTables struct {
	Context *table.Context

	Instructions     []InstructionDesc
	InstructionNames []NameIndex
	Operands         []OperandDesc
	OperandNames     []NameIndex
	OperandRanges    []KindRange
	ExtInsts         []ExtInstDesc
	ExtInstNames     []NameIndex
	ExtInstRanges    []KindRange
	PrintingClasses  []string
}

func operandTypeName(kind string) string {
	return "SPV_OPERAND_TYPE_" + strcase.ToScreamingSnake(kind)
}

// quantifiedOperandType maps an operand slot to its operand type enum,
// optional slots use the OPTIONAL variant and repeated slots the VARIABLE
// variant.
func quantifiedOperandType(o grammar.Operand, rename map[string]string) string {
	kind := o.Kind
	if r, ok := rename[kind]; ok {
		kind = r
	}
	switch o.Quantifier {
	case "?":
		return "SPV_OPERAND_TYPE_OPTIONAL_" + strcase.ToScreamingSnake(kind)
	case "*":
		return "SPV_OPERAND_TYPE_VARIABLE_" + strcase.ToScreamingSnake(kind)
	}
	return operandTypeName(kind)
}

// parseVersion encodes "1.4" as 0x00010400, "None" as VersionNone and an
// empty string as def.
func parseVersion(v string, def uint32) (uint32, error) {
	switch v {
	case "":
		return def, nil
	case "None":
		return VersionNone, nil
	}
	major, minor, ok := strings.Cut(v, ".")
	if !ok {
		return 0, fail.Errorf(fail.KindSemantic, "Malformed version %q", v)
	}
	ma, err1 := strconv.ParseUint(major, 10, 8)
	mi, err2 := strconv.ParseUint(minor, 10, 8)
	if err1 != nil || err2 != nil {
		return 0, fail.Errorf(fail.KindSemantic, "Malformed version %q", v)
	}
	return uint32(ma)<<16 | uint32(mi)<<8, nil
}

func printingClassName(tag string) string {
	return "PrintingClass::" + sanitizeIdent(tag)
}

func trimOp(name string) string {
	return strings.TrimPrefix(name, "Op")
}

// BuildInstructionTables fills a fresh Context with every string and list
// the SPIR-V tables reference and returns the sorted tables.
func BuildInstructionTables(g *grammar.Grammar, sets []*grammar.ExtInstSet) (*SpirvTables, error) {
	t := &SpirvTables{Context: table.NewContext()}
	ctx := t.Context

	classes := map[string]string{}
	for _, pc := range g.PrintingClasses {
		name := printingClassName(pc.Tag)
		classes[pc.Tag] = name
		t.PrintingClasses = append(t.PrintingClasses, name)
	}

	operandList := func(list []grammar.Operand, rename map[string]string) table.IndexRange {
		var types []string
		for _, o := range list {
			types = append(types, quantifiedOperandType(o, rename))
		}
		return ctx.AddStringList(table.ListOperand, types)
	}
	trimmed := func(list []string) []string {
		var out []string
		for _, s := range list {
			out = append(out, trimOp(s))
		}
		return out
	}

	{
		instructions := append([]*grammar.Instruction(nil), g.Instructions...)
		sort.SliceStable(instructions, func(i, j int) bool { return instructions[i].OpCode < instructions[j].OpCode })

		for _, inst := range instructions {
			class, ok := classes[inst.Class]
			if !ok {
				return nil, fail.Errorf(fail.KindSemantic, "Instruction %q has unknown printing class %q", inst.OpName, inst.Class)
			}
			minVersion, err := parseVersion(inst.Version, 0x00010000)
			if err != nil {
				return nil, fail.Annotatef(err, "Instruction %q", inst.OpName)
			}
			lastVersion, err := parseVersion(inst.LastVersion, VersionNone)
			if err != nil {
				return nil, fail.Annotatef(err, "Instruction %q", inst.OpName)
			}
			t.Instructions = append(t.Instructions, InstructionDesc{
				OpCode:        inst.OpCode,
				HasResult:     inst.HasResult(),
				HasType:       inst.HasType(),
				Operands:      operandList(inst.Operands, nil),
				Name:          ctx.AddString(trimOp(inst.OpName)),
				Aliases:       ctx.AddStringList(table.ListAlias, trimmed(inst.Aliases)),
				Capabilities:  ctx.AddStringList(table.ListCapability, inst.Capabilities),
				Extensions:    ctx.AddStringList(table.ListExtension, inst.Extensions),
				MinVersion:    minVersion,
				LastVersion:   lastVersion,
				PrintingClass: class,
			})
			for _, name := range append([]string{trimOp(inst.OpName)}, trimmed(inst.Aliases)...) {
				t.InstructionNames = append(t.InstructionNames, NameIndex{
					Name:  ctx.AddString(name),
					Index: uint32(len(t.Instructions) - 1),
				})
			}
		}
		sort.SliceStable(t.InstructionNames, func(i, j int) bool {
			return ctx.String(t.InstructionNames[i].Name) < ctx.String(t.InstructionNames[j].Name)
		})
	}

	{
		type kindEntry struct {
			name string
			kind *grammar.OperandKind
		}
		var kinds []kindEntry
		for _, k := range g.OperandKinds {
			kinds = append(kinds, kindEntry{k.Kind, k})
		}
		for _, s := range sets {
			for _, k := range s.OperandKinds {
				kinds = append(kinds, kindEntry{s.Prefix + k.Kind, k})
			}
		}
		sort.SliceStable(kinds, func(i, j int) bool { return kinds[i].name < kinds[j].name })

		for _, ke := range kinds {
			if ke.kind.Category != grammar.CategoryBitEnum && ke.kind.Category != grammar.CategoryValueEnum {
				continue
			}
			kindName := operandTypeName(ke.name)
			enumerants := append([]*grammar.Enumerant(nil), ke.kind.Enumerants...)
			sort.SliceStable(enumerants, func(i, j int) bool { return enumerants[i].Value < enumerants[j].Value })

			r := KindRange{Kind: kindName}
			r.Values.First = uint32(len(t.Operands))
			r.Names.First = uint32(len(t.OperandNames))
			var names []NameIndex
			for _, e := range enumerants {
				minVersion, err := parseVersion(e.Version, 0x00010000)
				if err != nil {
					return nil, fail.Annotatef(err, "Enumerant %s.%s", ke.name, e.Name)
				}
				lastVersion, err := parseVersion(e.LastVersion, VersionNone)
				if err != nil {
					return nil, fail.Annotatef(err, "Enumerant %s.%s", ke.name, e.Name)
				}
				t.Operands = append(t.Operands, OperandDesc{
					Kind:         kindName,
					Value:        e.Value,
					Name:         ctx.AddString(e.Name),
					Aliases:      ctx.AddStringList(table.ListAlias, e.Aliases),
					Capabilities: ctx.AddStringList(table.ListCapability, e.Capabilities),
					Extensions:   ctx.AddStringList(table.ListExtension, e.Extensions),
					Operands:     operandList(e.Parameters, nil),
					MinVersion:   minVersion,
					LastVersion:  lastVersion,
				})
				for _, name := range append([]string{e.Name}, e.Aliases...) {
					names = append(names, NameIndex{Kind: kindName, Name: ctx.AddString(name), Index: uint32(len(t.Operands) - 1)})
				}
			}
			sort.SliceStable(names, func(i, j int) bool { return ctx.String(names[i].Name) < ctx.String(names[j].Name) })
			t.OperandNames = append(t.OperandNames, names...)
			r.Values.Count = uint32(len(t.Operands)) - r.Values.First
			r.Names.Count = uint32(len(t.OperandNames)) - r.Names.First
			t.OperandRanges = append(t.OperandRanges, r)
		}
	}

	for _, s := range sets {
		if err := grammar.CheckExtInst(g, s); err != nil {
			return nil, err
		}
		rename := map[string]string{}
		for _, k := range s.OperandKinds {
			rename[k.Kind] = s.Prefix + k.Kind
		}

		instructions := append([]*grammar.Instruction(nil), s.Instructions...)
		sort.SliceStable(instructions, func(i, j int) bool { return instructions[i].OpCode < instructions[j].OpCode })

		r := KindRange{Kind: s.Tag}
		r.Values.First = uint32(len(t.ExtInsts))
		r.Names.First = uint32(len(t.ExtInstNames))
		var names []NameIndex
		for _, inst := range instructions {
			t.ExtInsts = append(t.ExtInsts, ExtInstDesc{
				Set:          s.Tag,
				OpCode:       inst.OpCode,
				Name:         ctx.AddString(inst.OpName),
				Operands:     operandList(inst.Operands, rename),
				Capabilities: ctx.AddStringList(table.ListCapability, inst.Capabilities),
			})
			for _, name := range append([]string{inst.OpName}, inst.Aliases...) {
				names = append(names, NameIndex{Kind: s.Tag, Name: ctx.AddString(name), Index: uint32(len(t.ExtInsts) - 1)})
			}
		}
		sort.SliceStable(names, func(i, j int) bool { return ctx.String(names[i].Name) < ctx.String(names[j].Name) })
		t.ExtInstNames = append(t.ExtInstNames, names...)
		r.Values.Count = uint32(len(t.ExtInsts)) - r.Values.First
		r.Names.Count = uint32(len(t.ExtInstNames)) - r.Names.First
		t.ExtInstRanges = append(t.ExtInstRanges, r)
	}

	return t, nil
}

// FindInstruction returns the index of the descriptor of opcode.
func (t *SpirvTables) FindInstruction(opcode uint32) (int, bool) {
	i := sort.Search(len(t.Instructions), func(i int) bool { return t.Instructions[i].OpCode >= opcode })
	if i < len(t.Instructions) && t.Instructions[i].OpCode == opcode {
		return i, true
	}
	return 0, false
}

// FindInstructionByName returns the row of the name table that spells name,
// with or without the Op prefix.
func (t *SpirvTables) FindInstructionByName(name string) (int, bool) {
	name = trimOp(name)
	i := sort.Search(len(t.InstructionNames), func(i int) bool {
		return t.Context.String(t.InstructionNames[i].Name) >= name
	})
	if i < len(t.InstructionNames) && t.Context.String(t.InstructionNames[i].Name) == name {
		return i, true
	}
	return 0, false
}

func cRange(r table.IndexRange) string {
	return "{" + strconv.FormatUint(uint64(r.First), 10) + ", " + strconv.FormatUint(uint64(r.Count), 10) + "}"
}

func cBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func cVersion(v uint32) string {
	return "0x" + strconv.FormatUint(uint64(v), 16) + "u"
}

func (g *generator) genSpirvTables() error {
	t, err := BuildInstructionTables(g.in.Grammar, g.in.ExtInsts)
	if err != nil {
		return err
	}
	ctx := t.Context

	g.printf("%s\n", Preamble)
	g.printf("// Generated by vkgen from SPIR-V grammar %d.%d revision %d\n", g.in.Grammar.Major, g.in.Grammar.Minor, g.in.Grammar.Revision)

	g.printf("\nenum class PrintingClass : uint32_t {\n")
	for _, pc := range t.PrintingClasses {
		g.printf("    %s,\n", strings.TrimPrefix(pc, "PrintingClass::"))
	}
	g.printf("};\n")

	g.printf("\n// clang-format off\n")
	g.printf("static const char kStrings[] =\n")
	{
		parts := strings.Split(strings.TrimSuffix(ctx.StringBuffer(), "\x00"), "\x00")
		for i, s := range parts {
			end := ""
			if i == len(parts)-1 {
				end = ";"
			}
			g.printf("    %s \"\\0\"%s\n", strconv.Quote(s), end)
		}
	}

	g.printf("\nstatic const IndexRange kAliasSpans[] = {\n")
	for _, a := range ctx.Entries(table.ListAlias) {
		g.printf("    %s,  // %s\n", cRange(ctx.AddString(a)), a)
	}
	g.printf("};\n")

	g.printf("\nstatic const spv::Capability kCapabilitySpans[] = {\n")
	for _, c := range ctx.Entries(table.ListCapability) {
		g.printf("    spv::Capability::%s,\n", c)
	}
	g.printf("};\n")

	g.printf("\nstatic const spvtools::Extension kExtensionSpans[] = {\n")
	for _, e := range ctx.Entries(table.ListExtension) {
		g.printf("    spvtools::Extension::k%s,\n", e)
	}
	g.printf("};\n")

	g.printf("\nstatic const spv_operand_type_t kOperandSpans[] = {\n")
	for _, o := range ctx.Entries(table.ListOperand) {
		g.printf("    %s,\n", o)
	}
	g.printf("};\n")

	g.printf("\nstatic const InstructionDesc kInstructionDesc[] = {\n")
	for _, d := range t.Instructions {
		g.printf("    {spv::Op::Op%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s},\n",
			ctx.String(d.Name), cBool(d.HasResult), cBool(d.HasType),
			cRange(d.Operands), cRange(d.Name), cRange(d.Aliases), cRange(d.Capabilities), cRange(d.Extensions),
			cVersion(d.MinVersion), cVersion(d.LastVersion), d.PrintingClass)
	}
	g.printf("};\n")

	g.printf("\nstatic const InstructionName kInstructionNames[] = {\n")
	for _, n := range t.InstructionNames {
		g.printf("    {%s, %d},  // %s\n", cRange(n.Name), n.Index, ctx.String(n.Name))
	}
	g.printf("};\n")

	g.printf("\nstatic const OperandDesc kOperandsByValue[] = {\n")
	for _, d := range t.Operands {
		g.printf("    {%s, %d, %s, %s, %s, %s, %s, %s, %s},  // %s\n",
			d.Kind, d.Value, cRange(d.Name), cRange(d.Aliases), cRange(d.Capabilities), cRange(d.Extensions),
			cRange(d.Operands), cVersion(d.MinVersion), cVersion(d.LastVersion), ctx.String(d.Name))
	}
	g.printf("};\n")

	g.printf("\nstatic const OperandName kOperandNames[] = {\n")
	for _, n := range t.OperandNames {
		g.printf("    {%s, %s, %d},  // %s\n", n.Kind, cRange(n.Name), n.Index, ctx.String(n.Name))
	}
	g.printf("};\n")

	rangeFunc := func(name, enumType string, ranges []KindRange, optional bool, pick func(KindRange) table.IndexRange) {
		g.printf("\nstatic IndexRange %s(%s type) {\n", name, enumType)
		g.printf("    switch (type) {\n")
		for _, r := range ranges {
			g.printf("        case %s:\n", r.Kind)
			if optional {
				g.printf("        case %s:\n", strings.Replace(r.Kind, "SPV_OPERAND_TYPE_", "SPV_OPERAND_TYPE_OPTIONAL_", 1))
			}
			g.printf("            return %s;\n", cRange(pick(r)))
		}
		g.printf("        default:\n")
		g.printf("            break;\n")
		g.printf("    }\n")
		g.printf("    return {0, 0};\n")
		g.printf("}\n")
	}
	rangeFunc("OperandByValueRangeForKind", "spv_operand_type_t", t.OperandRanges, true, func(r KindRange) table.IndexRange { return r.Values })
	rangeFunc("OperandByNameRangeForKind", "spv_operand_type_t", t.OperandRanges, true, func(r KindRange) table.IndexRange { return r.Names })

	g.printf("\nstatic const ExtInstDesc kExtInstByValue[] = {\n")
	for _, d := range t.ExtInsts {
		g.printf("    {%d, %s, %s, %s},  // %s %s\n", d.OpCode, cRange(d.Name), cRange(d.Operands), cRange(d.Capabilities), d.Set, ctx.String(d.Name))
	}
	g.printf("};\n")

	g.printf("\nstatic const ExtInstName kExtInstNames[] = {\n")
	for _, n := range t.ExtInstNames {
		g.printf("    {%s, %d},  // %s %s\n", cRange(n.Name), n.Index, n.Kind, ctx.String(n.Name))
	}
	g.printf("};\n")

	rangeFunc("ExtInstByValueRangeForKind", "spv_ext_inst_type_t", t.ExtInstRanges, false, func(r KindRange) table.IndexRange { return r.Values })
	rangeFunc("ExtInstByNameRangeForKind", "spv_ext_inst_type_t", t.ExtInstRanges, false, func(r KindRange) table.IndexRange { return r.Names })
	g.printf("// clang-format on\n")
	return nil
}

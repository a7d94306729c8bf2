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
	"slices"
	"strings"
	"testing"

	"goarrg.com/rhi/vkgen/grammar"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/internal/table"
)

func testTables(t *testing.T) *SpirvTables {
	t.Helper()
	in := testGrammarInput(t)
	tables, err := BuildInstructionTables(in.Grammar, in.ExtInsts)
	if err != nil {
		t.Fatal(err)
	}
	return tables
}

func TestInstructionLookup(t *testing.T) {
	tables := testTables(t)
	ctx := tables.Context

	i, ok := tables.FindInstruction(129)
	if !ok {
		t.Fatal("Expected opcode 129")
	}
	fadd := tables.Instructions[i]
	if ctx.String(fadd.Name) != "FAdd" || !fadd.HasResult || !fadd.HasType {
		t.Errorf("Unexpected descriptor for opcode 129: %+v", fadd)
	}
	if got := ctx.List(table.ListOperand, fadd.Operands); !slices.Equal(got, []string{
		"SPV_OPERAND_TYPE_ID_RESULT_TYPE", "SPV_OPERAND_TYPE_ID_RESULT", "SPV_OPERAND_TYPE_ID_REF", "SPV_OPERAND_TYPE_ID_REF",
	}) {
		t.Errorf("Unexpected FAdd operands %v", got)
	}
	if _, ok := tables.FindInstruction(130); ok {
		t.Errorf("Expected no opcode 130")
	}

	for _, name := range []string{"FAdd", "OpFAdd"} {
		row, ok := tables.FindInstructionByName(name)
		if !ok {
			t.Fatalf("Expected to find %q", name)
		}
		if got := tables.InstructionNames[row].Index; int(got) != i {
			t.Errorf("%s: Expected index %d, got %d", name, i, got)
		}
	}

	canonical, _ := tables.FindInstructionByName("DecorateString")
	alias, ok := tables.FindInstructionByName("OpDecorateStringGOOGLE")
	if !ok || tables.InstructionNames[alias].Index != tables.InstructionNames[canonical].Index {
		t.Errorf("Expected the alias to resolve to the DecorateString descriptor")
	}

	if !slices.IsSortedFunc(tables.Instructions, func(a, b InstructionDesc) int { return int(a.OpCode) - int(b.OpCode) }) {
		t.Errorf("Expected instructions sorted by opcode")
	}
	if !slices.IsSortedFunc(tables.InstructionNames, func(a, b NameIndex) int { return strings.Compare(ctx.String(a.Name), ctx.String(b.Name)) }) {
		t.Errorf("Expected names sorted")
	}
}

func TestInstructionVersions(t *testing.T) {
	tables := testTables(t)

	tests := []struct {
		opcode     uint32
		min, last  uint32
		class      string
		aliasCount uint32
	}{
		{129, 0x00010000, VersionNone, "PrintingClass::Arithmetic", 0},
		{5632, 0x00010400, 0x00010500, "PrintingClass::Miscellaneous", 1},
		{4431, VersionNone, VersionNone, "PrintingClass::Non_Uniform", 1},
	}
	for _, test := range tests {
		i, ok := tables.FindInstruction(test.opcode)
		if !ok {
			t.Fatalf("Expected opcode %d", test.opcode)
		}
		d := tables.Instructions[i]
		if d.MinVersion != test.min || d.LastVersion != test.last {
			t.Errorf("%d: Expected versions %#x %#x, got %#x %#x", test.opcode, test.min, test.last, d.MinVersion, d.LastVersion)
		}
		if d.PrintingClass != test.class {
			t.Errorf("%d: Expected %s, got %s", test.opcode, test.class, d.PrintingClass)
		}
		if d.Aliases.Count != test.aliasCount {
			t.Errorf("%d: Expected %d aliases, got %d", test.opcode, test.aliasCount, d.Aliases.Count)
		}
	}

	if _, err := parseVersion("1", 0); !fail.Is(err, fail.KindSemantic) {
		t.Errorf("Expected a malformed version error, got %v", err)
	}
}

func TestOperandTables(t *testing.T) {
	tables := testTables(t)
	ctx := tables.Context

	var kinds []string
	for _, r := range tables.OperandRanges {
		kinds = append(kinds, r.Kind)
	}
	want := []string{"SPV_OPERAND_TYPE_CAPABILITY", "SPV_OPERAND_TYPE_DECORATION", "SPV_OPERAND_TYPE_IMAGE_OPERANDS"}
	if !slices.Equal(kinds, want) {
		t.Errorf("Expected enum kinds only, sorted by name, got %v", kinds)
	}

	for _, r := range tables.OperandRanges {
		values := tables.Operands[r.Values.First : r.Values.First+r.Values.Count]
		if !slices.IsSortedFunc(values, func(a, b OperandDesc) int { return int(a.Value) - int(b.Value) }) {
			t.Errorf("%s: Expected values sorted", r.Kind)
		}
		names := tables.OperandNames[r.Names.First : r.Names.First+r.Names.Count]
		for _, n := range names {
			if tables.Operands[n.Index].Kind != r.Kind {
				t.Errorf("%s: name %q points outside its kind", r.Kind, ctx.String(n.Name))
			}
		}
	}

	for _, n := range tables.OperandNames {
		if ctx.String(n.Name) == "VulkanMemoryModelKHR" {
			if ctx.String(tables.Operands[n.Index].Name) != "VulkanMemoryModel" {
				t.Errorf("Expected the enumerant alias to resolve to VulkanMemoryModel")
			}
		}
	}
}

func TestSpirvTables(t *testing.T) {
	out := emitTarget(t, testGrammarInput(t), GeneratorOptions{Target: TargetSpirvTables})

	for _, want := range []string{
		"enum class PrintingClass : uint32_t {\n",
		"    k3D_Reserved,\n",
		"    {spv::Op::OpFAdd, true, true, ",
		"    {spv::Op::OpDecorateString, false, false, ",
		"0x10400u, 0x10500u, PrintingClass::Miscellaneous},\n",
		"        case SPV_OPERAND_TYPE_IMAGE_OPERANDS:\n        case SPV_OPERAND_TYPE_OPTIONAL_IMAGE_OPERANDS:\n",
		"    SPV_OPERAND_TYPE_OPTIONAL_IMAGE_OPERANDS,\n",
		"    SPV_OPERAND_TYPE_VARIABLE_ID_REF,\n",
		"    spvtools::Extension::kSPV_KHR_subgroup_rotate,\n",
		"        case SPV_EXT_INST_TYPE_GLSL_STD_450:\n",
		"// clang-format off\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output", want)
		}
	}
	if !strings.HasSuffix(out, "// clang-format on\n") {
		t.Errorf("Expected clang-format to be turned back on at the end")
	}
}

func TestSpirvTablesErrors(t *testing.T) {
	in := testGrammarInput(t)
	bad := *in.Grammar
	bad.Instructions = append(slices.Clone(bad.Instructions), &grammar.Instruction{OpName: "OpBogus", Class: "Nope", OpCode: 9999})
	if _, err := BuildInstructionTables(&bad, nil); !fail.Is(err, fail.KindSemantic) {
		t.Errorf("Expected an unknown printing class error, got %v", err)
	}

	versioned := *in.Grammar
	versioned.Instructions = append(slices.Clone(versioned.Instructions), &grammar.Instruction{OpName: "OpBadVersion", Class: "Arithmetic", OpCode: 9998, Version: "one"})
	if _, err := BuildInstructionTables(&versioned, nil); !fail.Is(err, fail.KindSemantic) {
		t.Errorf("Expected a malformed version error, got %v", err)
	}
}

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

package vkgen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"goarrg.com/rhi/vkgen/emit"
	"goarrg.com/rhi/vkgen/grammar"
	"goarrg.com/rhi/vkgen/internal/fail"
)

const (
	testRegistry = "registry/testdata/vk.xml"
	testGrammar  = "grammar/testdata/spirv.core.grammar.json"
	testExtInst  = "grammar/testdata/extinst.glsl.std.450.grammar.json"
)

var testTargets = []emit.Target{emit.TargetHeader, emit.TargetReflection, emit.TargetGoConst}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Registry:   testRegistry,
		Targets:    testTargets,
		OutputDir:  t.TempDir(),
		SkipFormat: true,
		GoPackage:  "vkc",
	}
}

func run(t *testing.T, cfg Config) {
	t.Helper()
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRunGenerate(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg)

	for _, name := range []string{"vulkan_core.h", "vulkan.json", "zvk_const.go"} {
		b := readFile(t, filepath.Join(cfg.OutputDir, name))
		if len(b) == 0 || b[len(b)-1] != '\n' || bytes.HasSuffix(b, []byte("\n\n")) {
			t.Errorf("Expected %s to end in a single newline", name)
		}
		if bytes.Contains(b, []byte("\r")) {
			t.Errorf("Expected %s to use LF line endings", name)
		}
	}
	if b := readFile(t, filepath.Join(cfg.OutputDir, "zvk_const.go")); !bytes.Contains(b, []byte("package vkc\n")) {
		t.Errorf("Expected package vkc in zvk_const.go")
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	seq := testConfig(t)
	seq.Targets = nil
	run(t, seq)

	par := seq
	par.OutputDir = t.TempDir()
	par.Parallel = true
	run(t, par)

	for _, target := range emit.DefaultTargets(emit.InputXML) {
		name := target.FileName("vulkan")
		a := readFile(t, filepath.Join(seq.OutputDir, name))
		b := readFile(t, filepath.Join(par.OutputDir, name))
		if !bytes.Equal(a, b) {
			t.Errorf("Expected identical %s from sequential and parallel runs\n%s", name, diffHint(a, b))
		}
	}
}

func TestRunAPIVariant(t *testing.T) {
	cfg := testConfig(t)
	cfg.API = "vulkansc"
	cfg.Targets = []emit.Target{emit.TargetHeader, emit.TargetReflection}
	run(t, cfg)

	for _, name := range []string{"vulkan_sc_core.h", "vulkansc.json"} {
		if !fileExists(filepath.Join(cfg.OutputDir, name)) {
			t.Errorf("Expected %s to be generated", name)
		}
	}
}

func TestRunSpirv(t *testing.T) {
	cfg := Config{
		Registry:   testGrammar,
		OutputDir:  t.TempDir(),
		SkipFormat: true,
		ExtInsts:   []ExtInst{{Prefix: "GLSLstd450", Path: testExtInst}},
	}
	run(t, cfg)

	g, err := grammar.Load(testGrammar)
	if err != nil {
		t.Fatal(err)
	}
	set, err := grammar.LoadExtInst("GLSLstd450", testExtInst)
	if err != nil {
		t.Fatal(err)
	}
	tables, err := emit.BuildInstructionTables(g, []*grammar.ExtInstSet{set})
	if err != nil {
		t.Fatal(err)
	}
	row, ok := tables.FindInstructionByName("FAdd")
	if !ok {
		t.Fatal("Expected FAdd in the instruction tables")
	}
	name := tables.InstructionNames[row]

	b := readFile(t, filepath.Join(cfg.OutputDir, "core_tables_body.inc"))
	for _, want := range []string{
		"    \"FAdd\" \"\\0\"",
		fmt.Sprintf("    {{%d, %d}, %d},  // FAdd\n", name.Name.First, name.Name.Count, name.Index),
		fmt.Sprintf("    {spv::Op::OpFAdd, true, true, {%d, %d}, {%d, 4}, ", tables.Instructions[name.Index].Operands.First, tables.Instructions[name.Index].Operands.Count, name.Name.First),
		"case SPV_EXT_INST_TYPE_GLSL_STD_450:",
	} {
		if !bytes.Contains(b, []byte(want)) {
			t.Errorf("Expected %q in core_tables_body.inc", want)
		}
	}
}

func TestRunVerify(t *testing.T) {
	golden := testConfig(t)
	run(t, golden)

	cfg := golden
	cfg.OutputDir = ""
	cfg.GoldenDir = golden.OutputDir
	cfg.Mode = ModeVerify
	run(t, cfg)

	t.Run("CRLF", func(t *testing.T) {
		path := filepath.Join(cfg.GoldenDir, "vulkan.json")
		b := readFile(t, path)
		if err := os.WriteFile(path, bytes.ReplaceAll(b, []byte("\n"), []byte("\r\n")), 0o644); err != nil {
			t.Fatal(err)
		}
		run(t, cfg)
	})

	t.Run("Mismatch", func(t *testing.T) {
		path := filepath.Join(cfg.GoldenDir, "vulkan_core.h")
		b := readFile(t, path)
		b = bytes.Replace(b, []byte("VK_FILTER_CUBIC_IMG = 1000015000"), []byte("VK_FILTER_CUBIC_IMG = 1000015001"), 1)
		if err := os.WriteFile(path, b, 0o644); err != nil {
			t.Fatal(err)
		}

		err := Run(context.Background(), cfg)
		if !fail.Is(err, fail.KindVerify) {
			t.Fatalf("Expected %v, got %v", fail.KindVerify, err)
		}
		for _, want := range []string{"vulkan_core.h", "first difference at line", "1000015001", "Outputs kept in"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("Expected %q in %q", want, err)
			}
		}
		if strings.Contains(err.Error(), "vulkan.json") {
			t.Errorf("Expected only vulkan_core.h to mismatch, got %q", err)
		}
		if got := readFile(t, path); !bytes.Equal(got, b) {
			t.Errorf("Expected verify to leave the golden file alone")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if err := os.Remove(filepath.Join(cfg.GoldenDir, "zvk_const.go")); err != nil {
			t.Fatal(err)
		}
		err := Run(context.Background(), cfg)
		if !fail.Is(err, fail.KindVerify) || !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("Expected missing golden error, got %v", err)
		}
	})
}

func TestRunUpdate(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = ""
	cfg.GoldenDir = t.TempDir()
	cfg.Mode = ModeUpdate

	stale := filepath.Join(cfg.GoldenDir, "vulkan.json")
	if err := os.WriteFile(stale, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run(t, cfg)
	if b := readFile(t, stale); bytes.Equal(b, []byte("{}\n")) {
		t.Errorf("Expected update to overwrite %s", stale)
	}

	cfg.Mode = ModeVerify
	run(t, cfg)
}

func TestRunIncremental(t *testing.T) {
	cfg := testConfig(t)
	run(t, cfg)

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"vulkan_core.h", "vulkan.json"} {
		if err := os.Chtimes(filepath.Join(cfg.OutputDir, name), old, old); err != nil {
			t.Fatal(err)
		}
	}
	changed := filepath.Join(cfg.OutputDir, "vulkan.json")
	if err := os.WriteFile(changed, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(changed, old, old); err != nil {
		t.Fatal(err)
	}

	cfg.Mode = ModeIncremental
	run(t, cfg)

	s, err := os.Stat(filepath.Join(cfg.OutputDir, "vulkan_core.h"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.ModTime().Equal(old) {
		t.Errorf("Expected unchanged vulkan_core.h to keep mtime %v, got %v", old, s.ModTime())
	}
	s, err = os.Stat(changed)
	if err != nil {
		t.Fatal(err)
	}
	if s.ModTime().Equal(old) {
		t.Errorf("Expected vulkan.json to be rewritten")
	}
	if b := readFile(t, changed); bytes.Equal(b, []byte("{}\n")) {
		t.Errorf("Expected vulkan.json to be regenerated")
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("MissingRegistry", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Registry = filepath.Join(t.TempDir(), "vk.xml")
		if err := Run(context.Background(), cfg); !fail.Is(err, fail.KindInput) {
			t.Errorf("Expected %v, got %v", fail.KindInput, err)
		}
	})

	t.Run("TargetMismatch", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Targets = []emit.Target{emit.TargetSpirvTables}
		if err := Run(context.Background(), cfg); !fail.Is(err, fail.KindTarget) {
			t.Errorf("Expected %v, got %v", fail.KindTarget, err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := testConfig(t)
		if err := Run(ctx, cfg); err == nil {
			t.Errorf("Expected error from canceled context")
		}
	})
}

func TestGeneratePropagation(t *testing.T) {
	targets := []emit.Target{emit.TargetHeader, emit.TargetReflection}
	opts := emit.GeneratorOptions{APIName: "vulkan"}

	cases := []struct {
		name     string
		parallel bool
		failFast bool
		want     []string
		notWant  []string
	}{
		{name: "Sequential", want: []string{"Target header"}, notWant: []string{"Target reflection"}},
		{name: "Parallel", parallel: true, want: []string{"Target header", "Target reflection"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := &Config{Parallel: c.parallel, FailFast: c.failFast, SkipFormat: true}
			_, err := generate(context.Background(), cfg, emit.Input{}, opts, targets, t.TempDir())
			if !fail.Is(err, fail.KindTarget) {
				t.Fatalf("Expected %v, got %v", fail.KindTarget, err)
			}
			for _, w := range c.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("Expected %q in %q", w, err)
				}
			}
			for _, w := range c.notWant {
				if strings.Contains(err.Error(), w) {
					t.Errorf("Expected no %q in %q", w, err)
				}
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		kind fail.Kind
	}{
		{"NoRegistry", Config{}, fail.KindInput},
		{"UnknownAPI", Config{Registry: testRegistry, API: "opengl"}, fail.KindInput},
		{"VerifyNoGolden", Config{Registry: testRegistry, Mode: ModeVerify}, fail.KindInput},
		{"UpdateNoGolden", Config{Registry: testRegistry, Mode: ModeUpdate}, fail.KindInput},
		{"BadMode", Config{Registry: testRegistry, Mode: Mode(9)}, fail.KindInput},
		{"UnknownTarget", Config{Registry: testRegistry, Targets: []emit.Target{emit.Target(99)}}, fail.KindTarget},
		{"DuplicateTarget", Config{Registry: testRegistry, Targets: []emit.Target{emit.TargetHeader, emit.TargetHeader}}, fail.KindTarget},
		{"JSONTarget", Config{Registry: testRegistry, Targets: []emit.Target{emit.TargetSpirvTables}}, fail.KindTarget},
		{"XMLTarget", Config{Registry: testGrammar, Targets: []emit.Target{emit.TargetHeader}}, fail.KindTarget},
		{"ExtInstOnXML", Config{Registry: testRegistry, ExtInsts: []ExtInst{{Path: testExtInst}}}, fail.KindInput},
		{"VideoOnJSON", Config{Registry: testGrammar, VideoXML: "video.xml"}, fail.KindInput},
		{"EmptyExtInst", Config{Registry: testGrammar, ExtInsts: []ExtInst{{Prefix: "GLSLstd450"}}}, fail.KindInput},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if !fail.Is(err, c.kind) {
				t.Errorf("Expected %v, got %v", c.kind, err)
			}
		})
	}

	ok := Config{Registry: testGrammar, ExtInsts: []ExtInst{{Prefix: "GLSLstd450", Path: testExtInst}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if got := ok.targets(); len(got) != 1 || got[0] != emit.TargetSpirvTables {
		t.Errorf("Expected default targets [spirv_tables], got %v", got)
	}
}

func TestModeText(t *testing.T) {
	for _, m := range []Mode{ModeGenerate, ModeVerify, ModeIncremental, ModeUpdate} {
		text, err := m.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Mode
		if err := got.UnmarshalText(text); err != nil {
			t.Fatal(err)
		}
		if got != m {
			t.Errorf("Expected %v, got %v", m, got)
		}
	}
	var m Mode
	if err := m.UnmarshalText([]byte("check")); !fail.Is(err, fail.KindInput) {
		t.Errorf("Expected %v, got %v", fail.KindInput, err)
	}
}

func TestDiffHint(t *testing.T) {
	want := []byte("a\nb\nc\nd\ne\nf\ng\nh\n")
	got := []byte("a\nb\nc\nd\nX\nf\ng\nh\n")
	hint := diffHint(want, got)
	for _, s := range []string{"first difference at line 5", "-    5   e", "+    5   X", "     2   b", "     8   h"} {
		if !strings.Contains(hint, s) {
			t.Errorf("Expected %q in\n%s", s, hint)
		}
	}
	if strings.Contains(hint, "   1   a") {
		t.Errorf("Expected context to stop 3 lines before the difference\n%s", hint)
	}
	if diffHint(want, want) != "no line differs" {
		t.Errorf("Expected no difference for equal input")
	}
}

func TestSanitizePackage(t *testing.T) {
	cases := map[string]string{
		"vk":         "vk",
		"my-pkg":     "mypkg",
		"VulkanGen":  "vulkangen",
		"001":        "vk001",
		"":           "vk",
		"golden.dir": "goldendir",
	}
	for in, want := range cases {
		if got := sanitizePackage(in); got != want {
			t.Errorf("Expected %q for %q, got %q", want, in, got)
		}
	}
}

func TestFormatterMajor(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"clang-format version 18.1.3 (1ubuntu1)", 18},
		{"Ubuntu clang-format version 14.0.0-1ubuntu1.1", 14},
		{"Apple clang-format version 9.0.0 (tags/RELEASE_900/final)", 9},
		{"clang-format", 0},
	}
	for _, c := range cases {
		if got := formatterMajor(c.in); got != c.want {
			t.Errorf("Expected %d for %q, got %d", c.want, c.in, got)
		}
	}
}

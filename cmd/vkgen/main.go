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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"goarrg.com/debug"
	"goarrg.com/rhi/vkgen"
	"goarrg.com/rhi/vkgen/emit"
	"goarrg.com/rhi/vkgen/internal/fail"
)

var flags flag.FlagSet

type targetList []emit.Target

func (l *targetList) UnmarshalText(data []byte) error {
	for _, s := range strings.Split(string(data), ",") {
		t, err := emit.ParseTarget(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*l = append(*l, t)
	}
	return nil
}

func (l targetList) MarshalText() (text []byte, err error) {
	names := make([]string, len(l))
	for i, t := range l {
		names[i] = t.String()
	}
	return ([]byte)(strings.Join(names, ",")), nil
}

type extInstList []vkgen.ExtInst

func (l *extInstList) UnmarshalText(data []byte) error {
	prefix, path, ok := strings.Cut(string(data), ",")
	if !ok || path == "" {
		return fail.Errorf(fail.KindInput, "Extended instruction set not in the format \"prefix,path\": %q", data)
	}
	*l = append(*l, vkgen.ExtInst{Prefix: prefix, Path: path})
	return nil
}

func (l extInstList) MarshalText() (text []byte, err error) {
	str := ""
	for _, e := range l {
		str += fmt.Sprintf("%s,%s\n", e.Prefix, e.Path)
	}
	return ([]byte)(strings.TrimSuffix(str, "\n")), nil
}

type stringList []string

func (l *stringList) UnmarshalText(data []byte) error {
	for _, s := range strings.Split(string(data), ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

func (l stringList) MarshalText() (text []byte, err error) {
	return ([]byte)(strings.Join(l, ",")), nil
}

// parseArgs turns the command line into a Config. Every error it returns is
// a usage error.
func parseArgs(args []string, stderr io.Writer) (vkgen.Config, error) {
	cfg := vkgen.Config{}

	flags = flag.FlagSet{}
	flags.Init("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { help(stderr) }

	v := flags.Bool("v", false, "Verbose - Print every generated file")
	vv := flags.Bool("vv", false, "Very Verbose - Print everything")

	flags.StringVar(&cfg.API, "api", "vulkan", "Sets the API variant, \"vulkan\" or \"vulkansc\".")
	merged := stringList{}
	flags.TextVar(&merged, "merged-api", stringList{}, "Comma separated APIs whose elements are merged into -api.")
	targets := targetList{}
	flags.TextVar(&targets, "target", targetList{}, "Comma separated targets to generate, may be repeated.\n"+
		"Valid values are: "+strings.Join(targetNames(), ", ")+".\n"+
		"Defaults to every target reading the registry's format.")

	flags.StringVar(&cfg.OutputDir, "output", ".", "Sets the output directory.")
	flags.StringVar(&cfg.GoldenDir, "golden", "", "Sets the golden directory used by -verify and -update.")
	flags.TextVar(&cfg.Mode, "mode", vkgen.ModeGenerate, "Sets the mode: generate, verify, incremental or update.")
	verify := flags.Bool("verify", false, "Compares every generated file against -golden, same as -mode=verify.")
	incremental := flags.Bool("incremental", false, "Copies only changed files to -output, same as -mode=incremental.")
	update := flags.Bool("update", false, "Overwrites the files in -golden, same as -mode=update.")

	flags.StringVar(&cfg.FormatStyle, "format-style", "", "Sets the clang-format style file.")
	flags.BoolVar(&cfg.SkipFormat, "no-format", false, "Skips clang-format.")
	flags.BoolVar(&cfg.Parallel, "parallel", false, "Generates targets in parallel.")
	flags.BoolVar(&cfg.FailFast, "fail-fast", false, "Stops every target on the first failure in -parallel mode.")

	flags.StringVar(&cfg.VideoXML, "video-xml", "", "Merges the Video Std headers described by the given video.xml.")
	extInsts := extInstList{}
	flags.TextVar(&extInsts, "extinst", extInstList{}, "Loads an extended instruction set grammar in the format \"prefix,path\", may be repeated.")

	enabled, disabled, optOut := stringList{}, stringList{}, stringList{}
	flags.TextVar(&enabled, "enable-tags", stringList{}, "Comma separated author tags, only their extensions are generated.")
	flags.TextVar(&disabled, "disable-tags", stringList{}, "Comma separated author tags whose extensions are dropped.")
	flags.TextVar(&optOut, "safe-struct-opt-out", stringList{}, "Comma separated structs that get no generated safe struct methods.")
	flags.StringVar(&cfg.GoPackage, "go-package", "", "Sets the package of the go_const target.\n"+
		"Defaults to the package found in the output directory.")
	flags.BoolVar(&cfg.ExtensionPrototypeGuard, "extension-prototype-guard", false, "Wraps extension prototypes in VK_ONLY_EXPORTED_PROTOTYPES.")

	var positional []string
	for {
		if err := flags.Parse(args); err != nil {
			return cfg, err
		}
		args = flags.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}

	if *vv {
		debug.SetLevel(debug.LogLevelVerbose)
	} else if *v {
		debug.SetLevel(debug.LogLevelInfo)
	}

	if len(positional) > 0 && positional[0] == "generate" {
		positional = positional[1:]
	}
	switch len(positional) {
	case 0:
		return cfg, fail.Errorf(fail.KindInput, "No registry provided")
	case 1:
		cfg.Registry = positional[0]
	default:
		return cfg, fail.Errorf(fail.KindInput, "Only one registry can be generated at a time, got %q", positional)
	}

	modes := []string{}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode", "verify", "incremental", "update":
			modes = append(modes, "-"+f.Name)
		}
	})
	if len(modes) > 1 {
		return cfg, fail.Errorf(fail.KindInput, "%s are mutually exclusive", strings.Join(modes, ", "))
	}
	switch {
	case *verify:
		cfg.Mode = vkgen.ModeVerify
	case *incremental:
		cfg.Mode = vkgen.ModeIncremental
	case *update:
		cfg.Mode = vkgen.ModeUpdate
	}

	cfg.MergedAPIs = merged
	cfg.Targets = targets
	cfg.ExtInsts = extInsts
	cfg.EnabledTags = enabled
	cfg.DisabledTags = disabled
	cfg.SafeStructOptOut = optOut
	return cfg, nil
}

func targetNames() []string {
	names := []string{}
	for _, t := range emit.AllTargets() {
		names = append(names, t.String())
	}
	return names
}

// run returns the exit code: 0 on success, 1 when generation or verification
// fails and 2 on bad arguments.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		// flag errors come with their own usage output.
		if fail.KindOf(err) != fail.KindUnknown {
			debug.EPrintf("%v", err)
			help(stderr)
		}
		return 2
	}
	if err := cfg.Validate(); err != nil {
		debug.EPrintf("%v", err)
		return 2
	}

	if err := vkgen.Run(ctx, cfg); err != nil {
		debug.EPrintf("%v", err)
		return 1
	}
	return 0
}

func main() {
	debug.SetLevel(debug.LogLevelWarn)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func help(w io.Writer) {
	fmt.Fprintf(w, "vkgen generates Vulkan headers, helpers and SPIR-V tables from the machine readable registries.\n"+
		"\nXML registries (vk.xml) feed the C/C++/Go targets, a .json registry is read as a SPIR-V core grammar.\n"+
		"C and C++ outputs are formatted with clang-format when it is found in PATH.\n"+
		"\n")
	args := ""
	flags.VisitAll(func(f *flag.Flag) {
		n, u := flag.UnquoteUsage(f)
		if f.DefValue != "" && f.DefValue != "false" {
			u += "\n\nDefaults to \"" + f.DefValue + "\"."
		}
		args += "\t-" + f.Name + " " + n + "\n\t\t" + strings.ReplaceAll(strings.TrimSpace(u), "\n", "\n\t\t") + "\n"
	})
	fmt.Fprintf(w, "Usage:\n\t%s [generate] <registry> [arguments]\n\nArguments:\n%s", filepath.Base(os.Args[0]), args)
}

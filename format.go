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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"goarrg.com/rhi/vkgen/emit"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/toolchain"
)

const (
	formatTool     = "clang-format"
	minFormatMajor = 14
)

type formatter struct {
	style   string
	enabled bool
}

// newFormatter probes for clang-format once per run. A missing tool is a
// warning and every file is left as emitted.
func newFormatter(cfg *Config) *formatter {
	f := &formatter{style: "file"}
	if cfg.FormatStyle != "" {
		f.style = "file:" + cfg.FormatStyle
	} else if style := filepath.Join(cfg.destination(), ".clang-format"); fileExists(style) {
		// Outputs are formatted in a temp dir, so the destination's style
		// file would never be found by the tool's own lookup.
		f.style = "file:" + style
	}
	if cfg.SkipFormat {
		logger.IPrintf("Formatting disabled")
		return f
	}
	out, err := toolchain.RunCombinedOutput(formatTool, "--version")
	if err != nil {
		logger.WPrintf("%v", fail.Wrapf(fail.KindTool, err, "%s not found, outputs will not be formatted", formatTool))
		return f
	}
	version := strings.TrimSpace(fmt.Sprintf("%s", out))
	if major := formatterMajor(version); major < minFormatMajor {
		logger.WPrintf("%v", fail.Errorf(fail.KindTool, "%q is older than %s %d, outputs will not be formatted", version, formatTool, minFormatMajor))
		return f
	}
	logger.VPrintf("Using %s", version)
	f.enabled = true
	return f
}

// formatterMajor extracts the major version from clang-format --version
// output, 0 when it can not be found.
func formatterMajor(version string) int {
	fields := strings.Fields(version)
	for i, field := range fields {
		if field != "version" || i+1 >= len(fields) {
			continue
		}
		major, _, _ := strings.Cut(fields[i+1], ".")
		if v, err := strconv.Atoi(major); err == nil {
			return v
		}
	}
	return 0
}

func formattable(t emit.Target) bool {
	switch t {
	case emit.TargetReflection, emit.TargetGoConst:
		return false
	}
	return true
}

// format rewrites path in place. The tool is only ever a warning, a failure
// leaves the unformatted file behind.
func (f *formatter) format(t emit.Target, path string) {
	if !f.enabled || !formattable(t) {
		return
	}
	out, err := toolchain.RunDirCombinedOutput(filepath.Dir(path), formatTool, "-i", "--style="+f.style, filepath.Base(path))
	if err != nil {
		logger.WPrintf("%v\n%s", fail.Wrapf(fail.KindTool, err, "Failed to format %q", path), out)
	}
}

func fileExists(path string) bool {
	s, err := os.Stat(path)
	return err == nil && s.Mode().IsRegular()
}

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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"goarrg.com/rhi/vkgen/internal/fail"
)

func normalize(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
}

// diffHint describes the first differing line of two files with a few lines
// of context on either side.
func diffHint(want, got []byte) string {
	wantLines := strings.Split(string(want), "\n")
	gotLines := strings.Split(string(got), "\n")
	lines := max(len(wantLines), len(gotLines))
	line := func(list []string, i int) string {
		if i < len(list) {
			return list[i]
		}
		return ""
	}

	first := -1
	for i := 0; i < lines; i++ {
		if line(wantLines, i) != line(gotLines, i) {
			first = i
			break
		}
	}
	if first < 0 {
		return "no line differs"
	}

	const context = 3
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "first difference at line %d (golden %d lines, generated %d lines):\n", first+1, len(wantLines), len(gotLines))
	for i := max(0, first-context); i < min(lines, first+context+1); i++ {
		w, g := line(wantLines, i), line(gotLines, i)
		if w == g {
			fmt.Fprintf(&sb, "  %4d   %s\n", i+1, w)
			continue
		}
		fmt.Fprintf(&sb, "- %4d   %s\n", i+1, w)
		fmt.Fprintf(&sb, "+ %4d   %s\n", i+1, g)
	}
	return sb.String()
}

// sameContent reports whether generated and the file at path match once line
// endings are normalized. A missing file never matches.
func sameContent(path string, generated []byte) (bool, []byte, error) {
	existing, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fail.Wrapf(fail.KindInput, err, "Failed to read %q", path)
	}
	existing = normalize(existing)
	return bytes.Equal(existing, normalize(generated)), existing, nil
}

// verifyFile fails with KindVerify when the golden copy of generated is
// missing or differs.
func verifyFile(golden string, generated []byte, tmp string) error {
	ok, existing, err := sameContent(golden, generated)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if existing == nil {
		return fail.Errorf(fail.KindVerify, "Golden file %q does not exist, generated file is %q", golden, tmp)
	}
	return fail.Errorf(fail.KindVerify, "Golden file %q differs from %q\n%s", golden, tmp, diffHint(existing, normalize(generated)))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fail.Wrapf(fail.KindInput, err, "Failed to create directory for %q", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fail.Wrapf(fail.KindInput, err, "Failed to write %q", path)
	}
	return nil
}

// syncFile writes generated to path only when the content differs, leaving
// the modification time of unchanged files alone.
func syncFile(path string, generated []byte) (bool, error) {
	ok, _, err := sameContent(path, generated)
	if err != nil || ok {
		return false, err
	}
	return true, writeFile(path, generated)
}

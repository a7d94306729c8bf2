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

// Package vkgen generates Vulkan headers, helpers and SPIR-V tables from the
// machine readable registries.
package vkgen

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
	"goarrg.com/rhi/vkgen/emit"
	"goarrg.com/rhi/vkgen/grammar"
	"goarrg.com/rhi/vkgen/internal/fail"
	"goarrg.com/rhi/vkgen/registry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

type output struct {
	target emit.Target
	name   string
	data   []byte
}

// Run generates every configured target into a temporary directory, then
// writes, verifies or updates the destination according to cfg.Mode. On
// failure the temporary directory is kept and named in the returned error.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.API == "" {
		cfg.API = "vulkan"
	}

	in, err := load(&cfg)
	if err != nil {
		return err
	}

	opts := emit.GeneratorOptions{
		APIName:                 cfg.API,
		ExtensionPrototypeGuard: cfg.ExtensionPrototypeGuard,
		SafeStructOptOut:        cfg.SafeStructOptOut,
		GoPackage:               cfg.GoPackage,
	}
	targets := cfg.targets()
	if opts.GoPackage == "" && slices.Contains(targets, emit.TargetGoConst) {
		opts.GoPackage = goPackageName(cfg.destination())
	}

	tmp, err := os.MkdirTemp("", "vkgen-")
	if err != nil {
		return fail.Wrapf(fail.KindInput, err, "Failed to create temp dir")
	}
	logger.VPrintf("Generating %d targets in %q", len(targets), tmp)

	outputs, err := generate(ctx, &cfg, in, opts, targets, tmp)
	if err == nil {
		err = commit(&cfg, outputs, tmp)
	}
	if err != nil {
		logger.EPrintf("Generation failed, outputs kept in %q", tmp)
		return fail.Annotatef(err, "Outputs kept in %q", tmp)
	}
	if err := os.RemoveAll(tmp); err != nil {
		logger.WPrintf("Failed to remove %q: %v", tmp, err)
	}
	return nil
}

// load reads the registry and its companions. Every failure here aborts the
// whole run.
func load(cfg *Config) (emit.Input, error) {
	in := emit.Input{}
	if cfg.inputKind() == emit.InputJSON {
		g, err := grammar.Load(cfg.Registry)
		if err != nil {
			return in, err
		}
		in.Grammar = g
		for _, e := range cfg.ExtInsts {
			s, err := grammar.LoadExtInst(e.Prefix, e.Path)
			if err != nil {
				return in, err
			}
			if err := grammar.CheckExtInst(g, s); err != nil {
				return in, err
			}
			in.ExtInsts = append(in.ExtInsts, s)
		}
		return in, nil
	}

	api, err := registry.Load(cfg.Registry, registry.LoadOptions{
		API:          cfg.API,
		MergedAPIs:   cfg.MergedAPIs,
		EnabledTags:  cfg.EnabledTags,
		DisabledTags: cfg.DisabledTags,
	})
	if err != nil {
		return in, err
	}
	if cfg.VideoXML != "" {
		if err := api.LoadMergedVideoStd(cfg.VideoXML); err != nil {
			return in, err
		}
	}
	in.API = api
	return in, nil
}

// generate runs one worker per target. The model is read only after
// loading, so workers share it without locking. Unless the run is sequential
// or fail fast, a failed target does not stop the others.
func generate(ctx context.Context, cfg *Config, in emit.Input, opts emit.GeneratorOptions, targets []emit.Target, dir string) ([]output, error) {
	f := newFormatter(cfg)
	outputs := make([]output, len(targets))
	errs := make([]error, len(targets))
	stopOnError := cfg.FailFast || !cfg.Parallel

	group, gctx := errgroup.WithContext(ctx)
	if cfg.Parallel {
		group.SetLimit(runtime.NumCPU())
	} else {
		group.SetLimit(1)
	}

	for i, t := range targets {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := generateTarget(t, in, opts, dir, f)
			if err != nil {
				errs[i] = fail.Annotatef(err, "Target %s failed", t)
				logger.EPrintf("%v", errs[i])
				if stopOnError {
					return errs[i]
				}
				return nil
			}
			outputs[i] = out
			return nil
		})
	}

	waitErr := group.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, fail.Wrapf(fail.KindUnknown, waitErr, "Generation interrupted")
	}
	return outputs, nil
}

func generateTarget(t emit.Target, in emit.Input, opts emit.GeneratorOptions, dir string, f *formatter) (out output, err error) {
	defer recoverAbort(t, &err)

	opts.Target = t
	buf := bytes.Buffer{}
	if err := emit.Emit(in, opts, &buf); err != nil {
		return out, err
	}

	out = output{target: t, name: t.FileName(opts.APIName)}
	path := filepath.Join(dir, out.name)
	if err := writeFile(path, buf.Bytes()); err != nil {
		return out, err
	}
	f.format(t, path)

	out.data, err = os.ReadFile(path)
	if err != nil {
		return out, fail.Wrapf(fail.KindInput, err, "Failed to read back %q", path)
	}
	logger.IPrintf("Generated %s", out.name)
	return out, nil
}

// commit is the only writer of the destination tree and runs after every
// worker has finished.
func commit(cfg *Config, outputs []output, tmp string) error {
	dst := cfg.destination()
	var errs []error

	for _, o := range outputs {
		path := filepath.Join(dst, o.name)
		switch cfg.Mode {
		case ModeGenerate:
			if err := writeFile(path, o.data); err != nil {
				return err
			}
			logger.IPrintf("Wrote %q", path)

		case ModeVerify:
			if err := verifyFile(path, o.data, filepath.Join(tmp, o.name)); err != nil {
				logger.EPrintf("%s: %v", o.target, err)
				errs = append(errs, err)
				continue
			}
			logger.IPrintf("Verified %q", path)

		case ModeIncremental, ModeUpdate:
			changed, err := syncFile(path, o.data)
			if err != nil {
				return err
			}
			if changed {
				logger.IPrintf("Updated %q", path)
			} else {
				logger.VPrintf("Unchanged %q", path)
			}
		}
	}
	return errors.Join(errs...)
}

// goPackageName names the package of the go_const output after the package
// already living in dir, or after dir itself.
func goPackageName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	fallback := sanitizePackage(filepath.Base(abs))

	if s, err := os.Stat(abs); err != nil || !s.IsDir() {
		return fallback
	}
	p, err := packages.Load(&packages.Config{Mode: packages.NeedName, Dir: abs}, ".")
	if err != nil {
		logger.WPrintf("Failed to load package at %q: %v", abs, err)
		return fallback
	}
	if len(p) == 0 || len(p[0].Errors) > 0 {
		return fallback
	}
	if p[0].Name != "" {
		return p[0].Name
	}
	return sanitizePackage(filepath.Base(p[0].PkgPath))
}

func sanitizePackage(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, strcase.ToSnake(name))
	name = strings.ToLower(name)
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return "vk" + name
	}
	return name
}

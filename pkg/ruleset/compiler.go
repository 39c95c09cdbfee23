// Package ruleset implements the RulesetCompiler and CompiledRuleStore
// described in spec section 4.1: discovering rule files on disk, compiling
// each one in isolation with github.com/hillu/go-yara/v4, and holding the
// result as a portable byte buffer any worker can deserialize on demand.
//
// Grounded on original_source/plast/framework/core/engine.py's
// _compile_ruleset / iterate_rulesets, adapted from Python's
// multiprocessing-friendly yara.compile()+Rules.save(io.BytesIO()) pattern
// to Go's (*yara.Compiler).GetRules() + (*yara.Rules).Write(io.Writer).
package ruleset

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hillu/go-yara/v4"

	"github.com/obscura-sec/warden/pkg/logging"
)

// Options mirrors the tunables consulted by the compiler (spec section 6).
type Options struct {
	Includes        bool // YARA_INCLUDES
	ErrorOnWarning  bool // YARA_ERROR_ON_WARNING
	FilenamePattern []string
}

// DefaultFilenamePatterns matches spec section 4.1's default glob set.
var DefaultFilenamePatterns = []string{"*.yar", "*.yara"}

var includeDirective = regexp.MustCompile(`(?m)^\s*include\s+"`)

// Compile discovers every rule file under root matching the configured
// glob patterns (recursive) and compiles each one in isolation. A syntax
// error, or a warning with ErrorOnWarning set, discards that ruleset only
// and is logged; it never aborts the rest of the run (spec section 7,
// RulesetSyntax).
//
// Returns a populated Store plus the number of rulesets and rules loaded.
func Compile(root string, opts Options, log logging.Sink) (*Store, int, int, error) {
	patterns := opts.FilenamePattern
	if len(patterns) == 0 {
		patterns = DefaultFilenamePatterns
	}

	files, err := discoverRuleFiles(root, patterns)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("discovering rule files under %s: %w", root, err)
	}

	store := NewStore()
	rulesetsLoaded := 0
	rulesLoaded := 0

	for _, path := range files {
		name := rulesetName(path)

		count, err := compileOne(path, opts)
		if err != nil {
			log.Warnf("discarding ruleset %s: %v", name, err)
			continue
		}

		rulesetsLoaded++
		rulesLoaded += count.rules

		store.Put(name, count.artifact)
		log.Debugf("precompiled ruleset %s with %d rule(s)", name, count.rules)
	}

	return store, rulesetsLoaded, rulesLoaded, nil
}

type compiled struct {
	artifact []byte
	rules    int
}

func compileOne(path string, opts Options) (compiled, error) {
	if !opts.Includes {
		if err := rejectIncludes(path); err != nil {
			return compiled{}, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return compiled{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	compiler, err := yara.NewCompiler()
	if err != nil {
		return compiled{}, fmt.Errorf("creating yara compiler: %w", err)
	}

	namespace := rulesetName(path)
	if err := compiler.AddFile(f, namespace); err != nil {
		return compiled{}, fmt.Errorf("syntax error: %w", err)
	}

	if opts.ErrorOnWarning && len(compiler.Warnings) > 0 {
		return compiled{}, fmt.Errorf("%d warning(s) treated as error(s): %s", len(compiler.Warnings), compiler.Warnings[0])
	}

	rules, err := compiler.GetRules()
	if err != nil {
		return compiled{}, fmt.Errorf("compiling: %w", err)
	}

	var buf bytes.Buffer
	if err := rules.Write(&buf); err != nil {
		return compiled{}, fmt.Errorf("serializing compiled rules: %w", err)
	}

	return compiled{artifact: buf.Bytes(), rules: countRules(rules)}, nil
}

func countRules(rules *yara.Rules) int {
	return len(rules.GetRules())
}

// rejectIncludes enforces YARA_INCLUDES=false by refusing to compile any
// ruleset containing an `include` directive, since go-yara's file compiler
// resolves includes transparently and has no portable "disable" switch.
func rejectIncludes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if includeDirective.Match(data) {
		return fmt.Errorf("includes disabled but %s contains an include directive", filepath.Base(path))
	}
	return nil
}

func rulesetName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func discoverRuleFiles(root string, patterns []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}

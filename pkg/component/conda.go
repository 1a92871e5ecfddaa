package component

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// condaPrefixes are the install locations probed for a conda binary
// after PATH, stated relative to home unless absolute.
var condaPrefixes = []string{
	"miniconda3",
	"anaconda3",
	"miniforge3",
	"/opt/homebrew/Caskroom/miniconda/base",
	"/usr/local/miniconda3",
}

type condaComponent struct{}

func (condaComponent) Name() string        { return shellpack.ComponentCondaEnvs }
func (condaComponent) Label() string       { return "Conda environments" }
func (condaComponent) Sensitive() bool     { return false }
func (condaComponent) Prompted() bool      { return true }
func (condaComponent) PromptDefault() bool { return true }

func (condaComponent) Detect(env *Env) bool {
	_, ok := condaBinary(env)
	return ok
}

func (condaComponent) EstimateKB(env *Env) int {
	// Exports are a handful of small YAML files however large the
	// environments themselves are.
	if _, ok := condaBinary(env); ok {
		return 50
	}
	return 0
}

func condaBinary(env *Env) (string, bool) {
	if path, err := env.Runner.LookPath("conda"); err == nil {
		return path, true
	}
	for _, prefix := range condaPrefixes {
		if !filepath.IsAbs(prefix) {
			prefix = filepath.Join(env.Home, prefix)
		}
		candidate := filepath.Join(prefix, "bin", "conda")
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (c condaComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: c.Name()}
	conda, ok := condaBinary(env)
	if !ok {
		env.Sink.Status(shellpack.StatusSkip, "Conda not found")
		return entry, nil
	}
	if env.DryRun {
		env.Sink.Status(shellpack.StatusInfo, "[dry run] would export conda environments")
		entry.Included = true
		entry.PayloadPath = "conda"
		return entry, nil
	}

	out, err := env.Runner.Run(ctx, env.CmdTimeout, conda, "env", "list")
	if err != nil {
		env.Sink.Status(shellpack.StatusWarn, "Conda environments (listing failed)")
		env.Log.Warnf("conda env list: %v", err)
		return entry, nil
	}

	condaDir := filepath.Join(destDir, "conda")
	if err := os.MkdirAll(condaDir, 0o755); err != nil {
		return entry, err
	}

	exported := 0
	for _, name := range parseEnvNames(out) {
		yml, err := env.Runner.Run(ctx, env.CmdTimeout, conda, "env", "export", "-n", name)
		if err != nil {
			env.Log.Warnf("conda env export %s: %v", name, err)
			continue
		}
		portable, err := stripPrefixKey(yml)
		if err != nil {
			env.Log.Warnf("conda export for %s is not valid YAML: %v", name, err)
			portable = yml
		}
		if err := os.WriteFile(filepath.Join(condaDir, name+".yml"), []byte(portable), 0o644); err != nil {
			return entry, fmt.Errorf("writing conda export %s: %w", name, err)
		}
		exported++
	}
	if exported == 0 {
		env.Sink.Status(shellpack.StatusWarn, "Conda environments (none exported)")
		return entry, nil
	}
	entry.Included = true
	entry.PayloadPath = "conda"
	entry.Count = exported
	env.Sink.Statusf(shellpack.StatusOK, "Conda environments (%d)", exported)
	return entry, nil
}

func (condaComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	condaDir := filepath.Join(srcDir, "conda")
	ymls, _ := filepath.Glob(filepath.Join(condaDir, "*.yml"))
	if len(ymls) == 0 {
		env.Sink.Status(shellpack.StatusSkip, "Conda environments not in backup")
		return nil
	}
	conda, ok := condaBinary(env)
	if !ok {
		env.Sink.Status(shellpack.StatusWarn, "Conda not available, environments skipped")
		return nil
	}

	created := 0
	for _, yml := range ymls {
		name := strings.TrimSuffix(filepath.Base(yml), ".yml")
		if name == "base" {
			continue
		}
		if declared := envNameFromYAML(yml); declared != "" && declared != name {
			env.Log.Infof("conda export %s declares environment %q, using file name", filepath.Base(yml), declared)
		}
		if _, err := env.Runner.Run(ctx, env.InstallTimeout, conda, "env", "create", "-f", yml, "-n", name); err != nil {
			env.Sink.Statusf(shellpack.StatusWarn, "Conda environment %s failed", name)
			env.Log.Warnf("conda env create %s: %v", name, err)
			continue
		}
		if env.Rollback != nil {
			envName := name
			env.Rollback.Record("remove conda environment "+envName, func() error {
				_, err := env.Runner.Run(context.Background(), env.InstallTimeout, conda, "env", "remove", "-n", envName, "-y")
				return err
			})
		}
		created++
	}
	env.Sink.Statusf(shellpack.StatusOK, "Conda environments (%d)", created)
	return nil
}

// parseEnvNames pulls environment names out of `conda env list` output,
// dropping comments, the active-environment marker and anything with
// characters conda would not have accepted.
func parseEnvNames(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := strings.Fields(line)[0]
		if validEnvName(name) {
			names = append(names, name)
		}
	}
	return names
}

func validEnvName(name string) bool {
	if name == "" || name == "*" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// stripPrefixKey removes the machine-specific `prefix:` entry from a
// conda export, leaving the rest of the document byte-stable.
func stripPrefixKey(yml string) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(yml), &doc); err != nil {
		return "", err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return yml, nil
	}
	mapping := doc.Content[0]
	kept := mapping.Content[:0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == "prefix" {
			continue
		}
		kept = append(kept, mapping.Content[i], mapping.Content[i+1])
	}
	mapping.Content = kept

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// envNameFromYAML reads the declared `name:` from an export, or "".
func envNameFromYAML(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var head struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.Name
}

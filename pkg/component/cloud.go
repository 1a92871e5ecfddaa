package component

import (
	"context"
	"path/filepath"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// cloudProvider describes where one provider keeps its credentials and
// how the archive is rooted so restore lands it back in place.
type cloudProvider struct {
	name      string
	sourceDir func(home string) string
	arcname   string
	extractTo func(home string) string
}

var cloudProviders = []cloudProvider{
	{
		name:      "aws",
		sourceDir: func(home string) string { return filepath.Join(home, ".aws") },
		arcname:   ".aws",
		extractTo: func(home string) string { return home },
	},
	{
		name:      "azure",
		sourceDir: func(home string) string { return filepath.Join(home, ".azure") },
		arcname:   ".azure",
		extractTo: func(home string) string { return home },
	},
	{
		name:      "gcloud",
		sourceDir: func(home string) string { return filepath.Join(home, ".config", "gcloud") },
		arcname:   "gcloud",
		extractTo: func(home string) string { return filepath.Join(home, ".config") },
	},
}

type cloudComponent struct{}

func (cloudComponent) Name() string        { return shellpack.ComponentCloudCreds }
func (cloudComponent) Label() string       { return "Cloud credentials (AWS/Azure/GCP)" }
func (cloudComponent) Sensitive() bool     { return true }
func (cloudComponent) Prompted() bool      { return true }
func (cloudComponent) PromptDefault() bool { return false }

func (cloudComponent) Detect(env *Env) bool {
	for _, p := range cloudProviders {
		if dirExists(p.sourceDir(env.Home)) {
			return true
		}
	}
	return false
}

func (cloudComponent) EstimateKB(env *Env) int {
	total := 0
	for _, p := range cloudProviders {
		total += dirKB(p.sourceDir(env.Home))
	}
	return total
}

func (c cloudComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: c.Name()}
	if env.DryRun {
		env.Sink.Status(shellpack.StatusInfo, "[dry run] would back up cloud credentials")
		entry.Included = c.Detect(env)
		entry.PayloadPath = "config/cloud"
		return entry, nil
	}

	found := 0
	for _, p := range cloudProviders {
		src := p.sourceDir(env.Home)
		if !dirExists(src) {
			continue
		}
		dest := filepath.Join(destDir, "config", "cloud", p.name+".tar.gz")
		if err := CreateArchive(src, dest, p.arcname); err != nil {
			env.Log.Warnf("cloud credentials backup failed for %s: %v", p.name, err)
			continue
		}
		found++
	}
	if found == 0 {
		env.Sink.Status(shellpack.StatusSkip, "Cloud credentials not found")
		return entry, nil
	}
	entry.Included = true
	entry.PayloadPath = "config/cloud"
	entry.Count = found
	env.Sink.Statusf(shellpack.StatusOK, "Cloud credentials (%d)", found)
	return entry, nil
}

func (cloudComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	cloudDir := filepath.Join(srcDir, "config", "cloud")
	if !dirExists(cloudDir) {
		env.Sink.Status(shellpack.StatusSkip, "Cloud credentials not in backup")
		return nil
	}
	found := 0
	for _, p := range cloudProviders {
		archive := filepath.Join(cloudDir, p.name+".tar.gz")
		if !fileExists(archive) {
			continue
		}
		if err := ExtractArchive(env, archive, p.extractTo(env.Home)); err != nil {
			env.Sink.Statusf(shellpack.StatusWarn, "Cloud credentials restore failed for %s", p.name)
			env.Log.Warnf("cloud credentials restore failed for %s: %v", p.name, err)
			continue
		}
		found++
	}
	if found > 0 {
		env.Sink.Statusf(shellpack.StatusOK, "Cloud credentials (%d)", found)
	}
	return nil
}

package shellpack

import "time"

type Mode string

const (
	ModeFull      Mode = "full"
	ModeShareable Mode = "shareable"
)

// Component catalog names. The order of CatalogNames is the staging and
// manifest order.
const (
	ComponentFish       = "shell-config-fish"
	ComponentBash       = "shell-config-bash"
	ComponentZsh        = "shell-config-zsh"
	ComponentPackages   = "packages"
	ComponentStarship   = "starship"
	ComponentGitConfig  = "git-config"
	ComponentSSHKeys    = "ssh-keys"
	ComponentCondaEnvs  = "conda-envs"
	ComponentHistory    = "history"
	ComponentCloudCreds = "cloud-creds"
)

// SourceInfo describes the machine a backup was taken from.
type SourceInfo struct {
	User           string `json:"user"`
	Hostname       string `json:"hostname"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	PackageManager string `json:"package_manager"`
	DefaultShell   string `json:"default_shell"`
}

// ComponentEntry records one catalog component's fate in a run. An entry
// with Included=false has no payload on disk.
type ComponentEntry struct {
	Name        string
	Included    bool
	PayloadPath string
	Count       int
}

// BackupSet is the identity and contents of one backup run. It is built up
// during collection and packaging and becomes immutable once the manifest
// has been written.
type BackupSet struct {
	Name       string
	CreatedAt  time.Time
	Mode       Mode
	Source     SourceInfo
	Components []ComponentEntry
}

func (b *BackupSet) Add(e ComponentEntry) {
	b.Components = append(b.Components, e)
}

// IncludedNames returns the names of included components in catalog order.
// This is the list the manifest carries.
func (b *BackupSet) IncludedNames() []string {
	names := []string{}
	for _, c := range b.Components {
		if c.Included {
			names = append(names, c.Name)
		}
	}
	return names
}

// Entry looks a component up by name.
func (b *BackupSet) Entry(name string) (ComponentEntry, bool) {
	for _, c := range b.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentEntry{}, false
}

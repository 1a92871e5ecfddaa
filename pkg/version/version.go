package version

import (
	"time"

	"github.com/carlmjohnson/versioninfo"
)

// Release is the shellpack release; the manifest format version in the
// root package tracks its major number.
const Release = "2.0.0"

type GitInfo struct {
	Commit string `json:"commit"`
	Dirty  bool   `json:"dirty"`
}

type Info struct {
	Release string    `json:"release"`
	Git     GitInfo   `json:"git"`
	Built   time.Time `json:"built"`
}

// Get reports the running build, git fields from the linker-stamped
// build info.
func Get() Info {
	return Info{
		Release: Release,
		Git: GitInfo{
			Commit: versioninfo.Revision,
			Dirty:  versioninfo.DirtyBuild,
		},
		Built: versioninfo.LastCommit,
	}
}

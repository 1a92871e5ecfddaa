package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/utils"
)

// MinFreeBytes is the floor for staging a backup or unpacking a
// restore. Payloads are small; this guards against a full /tmp, not a
// big archive.
const MinFreeBytes = 100 * 1024 * 1024

// CheckDiskSpace verifies the filesystem holding dir has room to work
// in. The returned string is a human-readable account either way.
func CheckDiskSpace(ctx context.Context, dir string) (string, error) {
	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("checking free space on %s: %w", dir, err)
	}
	pretty := utils.PrettyPrintDiskSize(usage.Free)
	if usage.Free < MinFreeBytes {
		return pretty, fmt.Errorf("%w: only %s free on %s, need at least %s",
			shellpack.ErrValidation, pretty, dir, utils.PrettyPrintDiskSize(MinFreeBytes))
	}
	return pretty, nil
}

//go:build linux

package dump

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

func newPlatformWriter() platformWriter { return linuxWriter{} }

type linuxWriter struct{}

// dumpProcess shells out to gcore, mirroring the legacy agent's
// MiniDumpWriteDump path with a Linux-native live-dump tool. MiniPlus/Full
// both produce the same core file on Linux; gcore has no partial mode.
func (linuxWriter) dumpProcess(ctx context.Context, pid int32, kind Kind, outPath string) error {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return fmt.Errorf("dump: target process vanished: %w", err)
	}

	cmd := exec.CommandContext(ctx, "gcore", "-o", outPath, strconv.Itoa(int(pid)))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("dump: gcore failed: %w: %s", err, string(out))
	}
	return nil
}

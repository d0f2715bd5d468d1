//go:build windows

package dump

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

func newPlatformWriter() platformWriter { return windowsWriter{} }

type windowsWriter struct{}

// dumpProcess opens the target process and calls the live-dump facility
// the legacy agent uses natively on Windows. kind maps to the subset of
// MINIDUMP_TYPE flags the agent actually exercises.
func (windowsWriter) dumpProcess(ctx context.Context, pid int32, kind Kind, outPath string) error {
	handle, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("dump: target process vanished: %w", err)
	}
	defer windows.CloseHandle(handle)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("dump: cannot open out path: %w", err)
	}
	defer f.Close()

	flags := miniDumpFlags(kind)
	return miniDumpWriteDump(handle, uint32(pid), windows.Handle(f.Fd()), flags)
}

func miniDumpFlags(kind Kind) uint32 {
	switch kind {
	case KindFull:
		return 0x00000002 // MiniDumpWithFullMemory
	case KindMiniPlus:
		return 0x00000001 | 0x00000800 // MiniDumpWithDataSegs | MiniDumpWithPrivateReadWriteMemory
	default:
		return 0x00000000 // MiniDumpNormal
	}
}

var (
	dbghelp              = windows.NewLazySystemDLL("dbghelp.dll")
	procMiniDumpWriteDump = dbghelp.NewProc("MiniDumpWriteDump")
)

// miniDumpWriteDump wraps dbghelp!MiniDumpWriteDump, the facility the
// legacy agent calls to take a live process dump on Windows.
func miniDumpWriteDump(process windows.Handle, pid uint32, file windows.Handle, flags uint32) error {
	ret, _, err := procMiniDumpWriteDump.Call(
		uintptr(process),
		uintptr(pid),
		uintptr(file),
		uintptr(flags),
		0, 0, 0,
	)
	if ret == 0 {
		return fmt.Errorf("dump: MiniDumpWriteDump failed: %w", err)
	}
	return nil
}

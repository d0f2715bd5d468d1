//go:build !linux && !windows

package dump

import "context"

func newPlatformWriter() platformWriter { return unsupportedWriter{} }

type unsupportedWriter struct{}

func (unsupportedWriter) dumpProcess(ctx context.Context, pid int32, kind Kind, outPath string) error {
	return ErrUnsupported
}

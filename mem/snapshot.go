package mem

import (
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Snapshot writes an lz4-framed copy of the region bytes. Used to ship a
// fetched buffer over a transport after the workers surrendered it, the
// table layout itself stays uncompressed.
func Snapshot(r Region, output io.Writer) error {

	zw := lz4.NewWriter(output)

	_, writeErr := zw.Write(r.Bytes())
	if writeErr != nil {
		return fmt.Errorf("unable to compress region: %s", writeErr.Error())
	}

	flushErr := zw.Flush()
	if flushErr != nil {
		return flushErr
	}

	return zw.Close()
}

// Restore fills the region from an lz4 frame produced by Snapshot. The
// region must be at least as large as the snapshotted one.
func Restore(r Region, input io.Reader) error {

	zr := lz4.NewReader(input)

	_, readErr := io.ReadFull(zr, r.Bytes())
	if readErr != nil && readErr != io.ErrUnexpectedEOF {
		return fmt.Errorf("unable to decompress region: %s", readErr.Error())
	}

	return nil
}

// Package archive packages a finished sequence file into a compressed,
// checksummed bundle suitable for backup or distribution, and restores
// one back into a plain sequence file.
//
// A bundle is a zstd stream of the source file's bytes, followed by a
// trailing 4-byte big-endian CRC32 (IEEE) of the uncompressed data. The
// checksum guards against accidental corruption in transit or at rest;
// per this module's own scope it is not a cryptographic integrity
// mechanism.
package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Export compresses src (typically an already-closed sequence file) into
// dst as a bundle, returning the uncompressed data's CRC32 checksum.
func Export(srcPath string, dst io.Writer) (uint32, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("archive: opening %s: %w", srcPath, err)
	}
	defer src.Close()

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return 0, fmt.Errorf("archive: creating encoder: %w", err)
	}

	sum := crc32.NewIEEE()
	tee := io.TeeReader(src, sum)
	if _, err := io.Copy(enc, tee); err != nil {
		enc.Close()
		return 0, fmt.Errorf("archive: compressing %s: %w", srcPath, err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("archive: finishing bundle: %w", err)
	}

	checksum := sum.Sum32()
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], checksum)
	if _, err := dst.Write(footer[:]); err != nil {
		return 0, fmt.Errorf("archive: writing checksum footer: %w", err)
	}
	return checksum, nil
}

// ErrChecksumMismatch is returned by Import when the restored bytes'
// CRC32 does not match the bundle's trailing footer.
var ErrChecksumMismatch = fmt.Errorf("archive: checksum mismatch")

// Import decompresses a bundle previously written by Export into
// dstPath, verifying the trailing checksum once the stream is fully
// decompressed. The destination is created fresh, failing if it already
// exists.
func Import(src io.Reader, dstPath string) error {
	buf, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("archive: reading bundle: %w", err)
	}
	if len(buf) < 4 {
		return fmt.Errorf("archive: bundle too short to contain a checksum footer")
	}
	payload, footer := buf[:len(buf)-4], buf[len(buf)-4:]
	wantChecksum := binary.BigEndian.Uint32(footer)

	dec, err := zstd.NewReader(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("archive: creating decoder: %w", err)
	}
	defer dec.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("archive: creating %s: %w", dstPath, err)
	}

	sum := crc32.NewIEEE()
	w := io.MultiWriter(dst, sum)
	if _, err := io.Copy(w, dec); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return fmt.Errorf("archive: decompressing into %s: %w", dstPath, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("archive: closing %s: %w", dstPath, err)
	}

	if sum.Sum32() != wantChecksum {
		os.Remove(dstPath)
		return ErrChecksumMismatch
	}
	return nil
}

package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/timboudreau/primal/seqfile"
)

func writeSample(t *testing.T, path string) {
	t.Helper()
	hdr := seqfile.NewHeader(100)
	f, err := seqfile.Open(path, seqfile.Write, hdr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	w := f.Writer()
	for _, v := range []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29} {
		if err := w.Accept(v); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "primes.seq")
	writeSample(t, src)

	var bundle bytes.Buffer
	checksum, err := Export(src, &bundle)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if checksum == 0 {
		t.Fatalf("checksum should be nonzero for nonempty data")
	}

	restored := filepath.Join(dir, "restored.seq")
	if err := Import(bytes.NewReader(bundle.Bytes()), restored); err != nil {
		t.Fatalf("Import: %v", err)
	}

	origBytes, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("reading original: %v", err)
	}
	restoredBytes, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("reading restored: %v", err)
	}
	if !bytes.Equal(origBytes, restoredBytes) {
		t.Fatalf("restored file differs from original")
	}
}

func TestImportRejectsCorruptedBundle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "primes.seq")
	writeSample(t, src)

	var bundle bytes.Buffer
	if _, err := Export(src, &bundle); err != nil {
		t.Fatalf("Export: %v", err)
	}

	corrupted := bundle.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF // flip every bit of the footer's last byte

	restored := filepath.Join(dir, "restored.seq")
	err := Import(bytes.NewReader(corrupted), restored)
	if err != ErrChecksumMismatch {
		t.Fatalf("got %v, want ErrChecksumMismatch", err)
	}
	if _, statErr := os.Stat(restored); !os.IsNotExist(statErr) {
		t.Fatalf("restored file should have been removed after checksum mismatch")
	}
}

package updater

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// createTestTarGz creates a tar.gz archive containing a single "divineos" entry.
func createTestTarGz(t *testing.T, binaryContent []byte) []byte {
	t.Helper()
	return createTestTarGzNamed(t, "divineos", binaryContent)
}

func createTestTarGzNamed(t *testing.T, name string, binaryContent []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	hdr := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0755,
		Size:     int64(len(binaryContent)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(binaryContent); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gw.Close()
	return buf.Bytes()
}

// versionScript is a shell stand-in for a release binary that answers
// `version --json`.
func versionScript(version string) []byte {
	return []byte(fmt.Sprintf("#!/bin/sh\necho '{\"version\":\"%s\",\"commit\":\"abc123\",\"date\":\"2026-10-01\"}'\n", version))
}

func checksumLine(data []byte, name string) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%s  %s\n", hex.EncodeToString(h[:]), name)
}

// writeExecutable writes content to dir/name with the executable bit set.
func writeExecutable(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("in-place replacement is not supported on Windows")
	}
}

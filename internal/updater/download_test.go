package updater

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDownloadBinary(t *testing.T) {
	archiveData := createTestTarGz(t, []byte("#!/bin/sh\necho test"))
	archiveName := ArchiveName()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q, want %q", got, userAgent)
		}
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(archiveData)))
		w.Write(archiveData)
	}))
	defer server.Close()

	u := New("1.0.0", "gfl-labs/divineos", WithHTTPClient(server.Client()))
	release := &Release{
		Version: "v1.1.0",
		Assets: []Asset{
			{Name: archiveName, DownloadURL: server.URL + "/" + archiveName},
		},
	}

	archivePath, err := u.DownloadBinary(context.Background(), release, t.TempDir())
	if err != nil {
		t.Fatalf("DownloadBinary failed: %v", err)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("downloaded file does not exist: %v", err)
	}
	if len(data) != len(archiveData) {
		t.Errorf("downloaded %d bytes, want %d", len(data), len(archiveData))
	}
}

func TestDownloadBinary_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	u := New("1.0.0", "gfl-labs/divineos", WithHTTPClient(server.Client()))
	release := &Release{Assets: []Asset{{Name: ArchiveName(), DownloadURL: server.URL + "/x"}}}

	if _, err := u.DownloadBinary(context.Background(), release, t.TempDir()); err == nil {
		t.Fatal("expected error for non-200 download")
	}
}

func TestVerifyChecksum(t *testing.T) {
	archiveData := createTestTarGz(t, []byte("fake binary content"))
	archiveName := ArchiveName()
	checksumContent := "deadbeef  some-other-file.tar.gz\n" + checksumLine(archiveData, archiveName)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(checksumContent))
	}))
	defer server.Close()

	u := New("1.0.0", "gfl-labs/divineos", WithHTTPClient(server.Client()))
	release := &Release{
		Assets: []Asset{
			{Name: "checksums.txt", DownloadURL: server.URL + "/checksums.txt"},
		},
	}

	archivePath := filepath.Join(t.TempDir(), archiveName)
	os.WriteFile(archivePath, archiveData, 0644)

	if err := u.VerifyChecksum(context.Background(), release, archivePath); err != nil {
		t.Fatalf("VerifyChecksum failed: %v", err)
	}
}

func TestVerifyChecksum_Mismatch(t *testing.T) {
	archiveName := ArchiveName()
	checksumContent := fmt.Sprintf("%s  %s\n", "0000000000000000000000000000000000000000000000000000000000000000", archiveName)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(checksumContent))
	}))
	defer server.Close()

	u := New("1.0.0", "gfl-labs/divineos", WithHTTPClient(server.Client()))
	release := &Release{
		Assets: []Asset{
			{Name: "checksums.txt", DownloadURL: server.URL + "/checksums.txt"},
		},
	}

	archivePath := filepath.Join(t.TempDir(), archiveName)
	os.WriteFile(archivePath, []byte("different content"), 0644)

	if err := u.VerifyChecksum(context.Background(), release, archivePath); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestVerifyChecksum_MissingAsset(t *testing.T) {
	u := New("1.0.0", "gfl-labs/divineos")
	release := &Release{
		Assets: []Asset{
			{Name: "divineos_linux_amd64.tar.gz", DownloadURL: "https://example.com/file"},
		},
	}
	if err := u.VerifyChecksum(context.Background(), release, "/tmp/some-archive.tar.gz"); err == nil {
		t.Error("expected error for missing checksums.txt asset")
	}
}

func TestExtractBinary_TarGz(t *testing.T) {
	binaryContent := []byte("#!/bin/sh\necho extracted")
	archiveData := createTestTarGz(t, binaryContent)

	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "divineos.tar.gz")
	os.WriteFile(archivePath, archiveData, 0644)

	binPath, err := ExtractBinary(archivePath, tmp)
	if err != nil {
		t.Fatalf("ExtractBinary failed: %v", err)
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatalf("reading extracted binary: %v", err)
	}
	if string(data) != string(binaryContent) {
		t.Errorf("extracted content mismatch")
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(binPath)
		if info.Mode().Perm()&0111 == 0 {
			t.Error("extracted binary is not executable")
		}
	}
}

func TestExtractBinary_NotInArchive(t *testing.T) {
	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "empty.tar.gz")
	os.WriteFile(archivePath, createTestTarGzNamed(t, "README.md", []byte("docs")), 0644)

	if _, err := ExtractBinary(archivePath, tmp); err == nil {
		t.Error("expected error when the archive has no divineos binary")
	}
}

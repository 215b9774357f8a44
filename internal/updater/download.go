package updater

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const checksumsAsset = "checksums.txt"

// DownloadBinary downloads the archive for the current platform into destDir
// and returns its path.
func (u *Updater) DownloadBinary(ctx context.Context, release *Release, destDir string) (string, error) {
	asset, err := SelectAssetForPlatform(release.Assets)
	if err != nil {
		return "", err
	}

	resp, err := u.get(ctx, asset.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	destPath := filepath.Join(destDir, asset.Name)
	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	defer f.Close()

	pw := &progressWriter{log: u.log.WithField("asset", asset.Name), total: resp.ContentLength, last: -1}
	if _, err := io.Copy(f, io.TeeReader(resp.Body, pw)); err != nil {
		return "", fmt.Errorf("writing download: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing download: %w", err)
	}
	return destPath, nil
}

// VerifyChecksum downloads checksums.txt from the release and checks the
// archive's SHA-256 against it.
func (u *Updater) VerifyChecksum(ctx context.Context, release *Release, archivePath string) error {
	var checksumAsset *Asset
	for i := range release.Assets {
		if release.Assets[i].Name == checksumsAsset {
			checksumAsset = &release.Assets[i]
			break
		}
	}
	if checksumAsset == nil {
		return fmt.Errorf("%s not found in release assets", checksumsAsset)
	}

	resp, err := u.get(ctx, checksumAsset.DownloadURL)
	if err != nil {
		return fmt.Errorf("downloading checksums: %w", err)
	}
	defer resp.Body.Close()

	// Each line is "<sha256>  <filename>".
	archiveName := filepath.Base(archivePath)
	expectedHash := ""
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 2 && parts[1] == archiveName {
			expectedHash = strings.ToLower(parts[0])
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading checksums: %w", err)
	}
	if expectedHash == "" {
		return fmt.Errorf("no checksum found for %s in %s", archiveName, checksumsAsset)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("computing checksum: %w", err)
	}

	actualHash := hex.EncodeToString(h.Sum(nil))
	if actualHash != expectedHash {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedHash, actualHash)
	}
	return nil
}

func (u *Updater) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return resp, nil
}

// progressWriter logs download progress in 10% steps.
type progressWriter struct {
	log        logrus.FieldLogger
	total      int64
	downloaded int64
	last       int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.downloaded += int64(len(b))
	if p.total > 0 {
		step := p.downloaded * 10 / p.total
		if step != p.last {
			p.last = step
			p.log.WithField("percent", step*10).Debug("downloading")
		}
	}
	return len(b), nil
}

// ExtractBinary extracts the divineos binary from a tar.gz or zip archive into
// destDir and returns its path.
func ExtractBinary(archivePath, destDir string) (string, error) {
	if strings.HasSuffix(archivePath, ".zip") {
		return extractFromZip(archivePath, destDir)
	}
	return extractFromTarGz(archivePath, destDir)
}

func extractFromTarGz(archivePath, destDir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !isBinaryEntry(hdr.Name) {
			continue
		}
		return writeBinary(tr, destDir, filepath.Base(hdr.Name))
	}
	return "", fmt.Errorf("%s binary not found in archive", binaryName())
}

func extractFromZip(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !isBinaryEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening zip entry: %w", err)
		}
		path, err := writeBinary(rc, destDir, filepath.Base(f.Name))
		rc.Close()
		return path, err
	}
	return "", fmt.Errorf("%s binary not found in zip archive", binaryName())
}

func isBinaryEntry(name string) bool {
	base := filepath.Base(name)
	return base == "divineos" || base == "divineos.exe"
}

func writeBinary(src io.Reader, destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, name)
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return "", fmt.Errorf("creating binary file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("extracting binary: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}
	return destPath, nil
}

package updater

import (
	"fmt"
	"runtime"
	"strings"
)

// binaryName is the executable inside a release archive.
func binaryName() string {
	if runtime.GOOS == "windows" {
		return "divineos.exe"
	}
	return "divineos"
}

// ArchiveName returns the expected archive filename for the current platform:
// divineos_{os}_{arch}.tar.gz, or .zip on Windows.
func ArchiveName() string {
	ext := ".tar.gz"
	if runtime.GOOS == "windows" {
		ext = ".zip"
	}
	return fmt.Sprintf("divineos_%s_%s%s", runtime.GOOS, runtime.GOARCH, ext)
}

// SelectAssetForPlatform finds the asset matching the current OS/arch.
func SelectAssetForPlatform(assets []Asset) (*Asset, error) {
	expected := ArchiveName()
	for i := range assets {
		if assets[i].Name == expected {
			return &assets[i], nil
		}
	}

	// Versioned names like divineos_v1.2.0_linux_amd64.tar.gz.
	pattern := fmt.Sprintf("_%s_%s", runtime.GOOS, runtime.GOARCH)
	for i := range assets {
		if strings.Contains(assets[i].Name, pattern) && isArchive(assets[i].Name) {
			return &assets[i], nil
		}
	}

	return nil, fmt.Errorf("no asset found for %s/%s (expected %s)", runtime.GOOS, runtime.GOARCH, expected)
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".zip")
}

package updater

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/moodysaroha/postboy/internal/branding"
)

// ArchiveName returns the expected archive filename for the current platform:
// postboy_{os}_{arch}.tar.gz, or .zip on Windows.
func ArchiveName() string {
	return archiveNameFor(runtime.GOOS, runtime.GOARCH)
}

func archiveNameFor(goos, goarch string) string {
	ext := ".tar.gz"
	if goos == "windows" {
		ext = ".zip"
	}
	return fmt.Sprintf("%s_%s_%s%s", branding.BinaryName(), goos, goarch, ext)
}

// BinaryFileName returns the executable name inside a release archive.
func BinaryFileName() string {
	if runtime.GOOS == "windows" {
		return branding.BinaryName() + ".exe"
	}
	return branding.BinaryName()
}

// SelectAssetForPlatform finds the asset matching the current OS/arch.
func SelectAssetForPlatform(assets []Asset) (*Asset, error) {
	expected := ArchiveName()
	for i := range assets {
		if assets[i].Name == expected {
			return &assets[i], nil
		}
	}

	// Releases named with a version infix, e.g. postboy_v1.2.0_linux_amd64.tar.gz.
	pattern := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)
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

package updater

import (
	"archive/tar"
	"archive/zip"
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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/moodysaroha/postboy/internal/branding"
	log "github.com/sirupsen/logrus"
)

const (
	checksumsAsset     = "checksums.txt"
	maxDownloadRetries = 3
)

// ProgressFunc receives byte counts while an archive downloads. total is -1
// when the server did not announce a length.
type ProgressFunc func(transferred, total int64)

// Artifact is a verified release archive on disk.
type Artifact struct {
	Version     string `json:"version"`
	ArchivePath string `json:"archive_path"`
}

// Download fetches the platform archive for release into destDir and
// verifies it against the release checksums.
func (u *Updater) Download(ctx context.Context, release *Release, destDir string, progress ProgressFunc) (*Artifact, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	archivePath, err := u.DownloadBinary(ctx, release, destDir, progress)
	if err != nil {
		return nil, err
	}
	if err := u.VerifyChecksum(ctx, release, archivePath); err != nil {
		os.Remove(archivePath)
		return nil, fmt.Errorf("checksum verification failed: %w", err)
	}

	return &Artifact{Version: DisplayVersion(release.Version), ArchivePath: archivePath}, nil
}

// DownloadBinary downloads the appropriate asset for the current platform,
// retrying transient failures. Returns the path to the downloaded archive.
func (u *Updater) DownloadBinary(ctx context.Context, release *Release, destDir string, progress ProgressFunc) (string, error) {
	asset, err := SelectAssetForPlatform(release.Assets)
	if err != nil {
		return "", err
	}

	destPath := filepath.Join(destDir, asset.Name)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxDownloadRetries), ctx)

	operation := func() error {
		return u.downloadOnce(ctx, asset, destPath, progress)
	}
	notify := func(err error, next time.Duration) {
		log.Warnf("download of %s failed, retrying in %s: %v", asset.Name, next, err)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", err
	}

	return destPath, nil
}

func (u *Updater) downloadOnce(ctx context.Context, asset *Asset, destPath string, progress ProgressFunc) error {
	resp, err := u.getAsset(ctx, asset)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("download returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	f, err := os.Create(destPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating download file: %w", err))
	}
	defer f.Close()

	total := resp.ContentLength
	var downloaded int64
	lastPercent := -1

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return backoff.Permanent(fmt.Errorf("writing download: %w", writeErr))
			}
			downloaded += int64(n)
			if progress != nil {
				percent := -1
				if total > 0 {
					percent = int(downloaded * 100 / total)
				}
				if percent != lastPercent || total <= 0 {
					progress(downloaded, total)
					lastPercent = percent
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("reading download stream: %w", readErr)
		}
	}

	return nil
}

// getAsset requests an asset body. Private feeds are served through the API
// asset URL, which honours the bearer token.
func (u *Updater) getAsset(ctx context.Context, asset *Asset) (*http.Response, error) {
	url := asset.DownloadURL
	private := u.feed.Private && u.feed.Token != "" && asset.APIURL != ""
	if private {
		url = asset.APIURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	u.authorize(req)
	if private {
		req.Header.Set("Accept", "application/octet-stream")
	}

	return u.httpClient.Do(req)
}

// VerifyChecksum downloads checksums.txt from the release and verifies the archive.
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

	resp, err := u.getAsset(ctx, checksumAsset)
	if err != nil {
		return fmt.Errorf("downloading checksums: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("checksums download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading checksums: %w", err)
	}

	// Each line is "sha256  filename".
	archiveName := filepath.Base(archivePath)
	expectedHash := ""
	for _, line := range strings.Split(string(body), "\n") {
		parts := strings.Fields(line)
		if len(parts) == 2 && parts[1] == archiveName {
			expectedHash = parts[0]
			break
		}
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
	if !strings.EqualFold(actualHash, expectedHash) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedHash, actualHash)
	}

	return nil
}

// ExtractBinary extracts the postboy binary from a tar.gz or zip archive.
// Returns the path to the extracted binary.
func ExtractBinary(archivePath, destDir string) (string, error) {
	if strings.HasSuffix(archivePath, ".zip") {
		return extractFromZip(archivePath, destDir)
	}
	return extractFromTarGz(archivePath, destDir)
}

func isBinaryEntry(name string) bool {
	return strings.TrimSuffix(filepath.Base(name), ".exe") == branding.BinaryName()
}

func writeEntry(r io.Reader, destPath string) error {
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("creating binary file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("extracting binary: %w", err)
	}
	return out.Close()
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
		if hdr.FileInfo().IsDir() || !isBinaryEntry(hdr.Name) {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Base(hdr.Name))
		if err := writeEntry(tr, destPath); err != nil {
			return "", err
		}
		return destPath, nil
	}

	return "", fmt.Errorf("%s binary not found in archive", BinaryFileName())
}

func extractFromZip(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isBinaryEntry(f.Name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening zip entry: %w", err)
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		err = writeEntry(rc, destPath)
		rc.Close()
		if err != nil {
			return "", err
		}
		return destPath, nil
	}

	return "", fmt.Errorf("%s binary not found in zip archive", BinaryFileName())
}

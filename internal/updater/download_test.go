package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moodysaroha/postboy/internal/config"
)

// createTestTarGz creates a tar.gz archive containing a fake "postboy" binary.
func createTestTarGz(t *testing.T, binaryContent []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	// A directory entry first, to make sure extraction skips it.
	if err := tw.WriteHeader(&tar.Header{Name: "postboy-dist/", Mode: 0755, Typeflag: tar.TypeDir}); err != nil {
		t.Fatal(err)
	}
	hdr := &tar.Header{
		Name:     "postboy-dist/postboy",
		Mode:     0755,
		Size:     int64(len(binaryContent)),
		Typeflag: tar.TypeReg,
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

func createTestZip(t *testing.T, binaryContent []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("postboy.exe")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(binaryContent); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func TestDownloadBinary(t *testing.T) {
	archiveData := createTestTarGz(t, []byte("#!/bin/sh\necho test"))
	archiveName := ArchiveName()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "postboy/1.0.0" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(archiveData)))
		w.Write(archiveData)
	}))
	defer server.Close()

	u := New("1.0.0", WithHTTPClient(server.Client()))

	release := &Release{
		Version: "v1.1.0",
		Assets: []Asset{
			{Name: archiveName, DownloadURL: server.URL + "/" + archiveName},
		},
	}

	var lastTransferred, lastTotal int64
	archivePath, err := u.DownloadBinary(context.Background(), release, t.TempDir(), func(transferred, total int64) {
		lastTransferred, lastTotal = transferred, total
	})
	if err != nil {
		t.Fatalf("DownloadBinary failed: %v", err)
	}

	if _, err := os.Stat(archivePath); err != nil {
		t.Fatalf("downloaded file does not exist: %v", err)
	}
	if lastTransferred != int64(len(archiveData)) || lastTotal != int64(len(archiveData)) {
		t.Errorf("progress ended at %d/%d, want %d/%d", lastTransferred, lastTotal, len(archiveData), len(archiveData))
	}
}

func TestDownloadBinary_OutlastsFeedTimeout(t *testing.T) {
	defer func(d time.Duration) { feedRequestTimeout = d }(feedRequestTimeout)
	feedRequestTimeout = 20 * time.Millisecond

	archiveData := createTestTarGz(t, []byte("slow"))
	archiveName := ArchiveName()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(archiveData)))
		half := len(archiveData) / 2
		w.Write(archiveData[:half])
		w.(http.Flusher).Flush()
		time.Sleep(100 * time.Millisecond)
		w.Write(archiveData[half:])
	}))
	defer server.Close()

	u := New("1.0.0", WithHTTPClient(server.Client()))
	release := &Release{Assets: []Asset{{Name: archiveName, DownloadURL: server.URL + "/a"}}}

	path, err := u.DownloadBinary(context.Background(), release, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("DownloadBinary failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, archiveData) {
		t.Error("downloaded archive differs from the served one")
	}
}

func TestDownloadBinary_RetriesServerErrors(t *testing.T) {
	archiveData := createTestTarGz(t, []byte("retry"))
	archiveName := ArchiveName()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(archiveData)
	}))
	defer server.Close()

	u := New("1.0.0", WithHTTPClient(server.Client()))
	release := &Release{Assets: []Asset{{Name: archiveName, DownloadURL: server.URL + "/a"}}}

	if _, err := u.DownloadBinary(context.Background(), release, t.TempDir(), nil); err != nil {
		t.Fatalf("DownloadBinary failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
}

func TestDownloadBinary_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	u := New("1.0.0", WithHTTPClient(server.Client()))
	release := &Release{Assets: []Asset{{Name: ArchiveName(), DownloadURL: server.URL + "/a"}}}

	if _, err := u.DownloadBinary(context.Background(), release, t.TempDir(), nil); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestDownload_PrivateFeedUsesAPIURL(t *testing.T) {
	archiveData := createTestTarGz(t, []byte("private"))
	archiveName := ArchiveName()
	checksums := fmt.Sprintf("%s  %s\n", sha256Hex(archiveData), archiveName)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Accept") != "application/octet-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		switch r.URL.Path {
		case "/api/archive":
			w.Write(archiveData)
		case "/api/checksums":
			w.Write([]byte(checksums))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	u := New("1.0.0",
		WithHTTPClient(server.Client()),
		WithFeed(config.Feed{Owner: "o", Repo: "r", Private: true, Token: "secret"}),
	)
	release := &Release{
		Version: "v1.1.0",
		Assets: []Asset{
			{Name: archiveName, DownloadURL: server.URL + "/public/archive", APIURL: server.URL + "/api/archive"},
			{Name: checksumsAsset, DownloadURL: server.URL + "/public/checksums", APIURL: server.URL + "/api/checksums"},
		},
	}

	artifact, err := u.Download(context.Background(), release, filepath.Join(t.TempDir(), "staging"), nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if artifact.Version != "1.1.0" {
		t.Errorf("artifact version = %q, want 1.1.0", artifact.Version)
	}
}

func TestVerifyChecksum(t *testing.T) {
	archiveData := createTestTarGz(t, []byte("fake binary content"))
	archiveName := ArchiveName()
	checksumContent := fmt.Sprintf("%s  %s\n", sha256Hex(archiveData), archiveName)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(checksumContent))
	}))
	defer server.Close()

	u := New("1.0.0", WithHTTPClient(server.Client()))
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

	u := New("1.0.0", WithHTTPClient(server.Client()))
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
	u := New("1.0.0")
	release := &Release{
		Assets: []Asset{
			{Name: "postboy_darwin_arm64.tar.gz", DownloadURL: "https://example.com/file"},
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
	archivePath := filepath.Join(tmp, "postboy.tar.gz")
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

func TestExtractBinary_Zip(t *testing.T) {
	binaryContent := []byte("MZ fake exe")
	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "postboy_windows_amd64.zip")
	os.WriteFile(archivePath, createTestZip(t, binaryContent), 0644)

	binPath, err := ExtractBinary(archivePath, tmp)
	if err != nil {
		t.Fatalf("ExtractBinary failed: %v", err)
	}
	if filepath.Base(binPath) != "postboy.exe" {
		t.Errorf("extracted %q, want postboy.exe", binPath)
	}
}

func TestExtractBinary_NotFound(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("README.md")
	w.Write([]byte("docs"))
	zw.Close()

	tmp := t.TempDir()
	archivePath := filepath.Join(tmp, "bundle.zip")
	os.WriteFile(archivePath, buf.Bytes(), 0644)

	if _, err := ExtractBinary(archivePath, tmp); err == nil {
		t.Error("expected error when archive has no binary")
	}
}

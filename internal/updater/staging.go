package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const pendingFileName = "pending.json"

// Installer applies downloaded artifacts to the running executable.
type Installer struct {
	stagingDir string
	executable func() (string, error)
	restart    func(path string) error
}

// NewInstaller returns an Installer that stages artifacts under stagingDir
// and replaces the executable found by CurrentExecutable.
func NewInstaller(stagingDir string) *Installer {
	return &Installer{
		stagingDir: stagingDir,
		executable: CurrentExecutable,
		restart:    Restart,
	}
}

// StagingDir returns where artifacts are downloaded and parked.
func (i *Installer) StagingDir() string {
	return i.stagingDir
}

// InstallAndRestart replaces the running executable with the artifact and
// restarts the process. On success on Unix it does not return.
func (i *Installer) InstallAndRestart(artifact *Artifact) error {
	path, err := i.install(artifact)
	if err != nil {
		return err
	}
	// A parked copy of this artifact must not be applied again on launch.
	if err := os.Remove(filepath.Join(i.stagingDir, pendingFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("clearing staged update: %v", err)
	}
	log.Infof("installed %s, restarting", artifact.Version)
	return i.restart(path)
}

// Defer parks the artifact so the next launch applies it.
func (i *Installer) Defer(artifact *Artifact) error {
	if err := os.MkdirAll(i.stagingDir, 0755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling staged artifact: %w", err)
	}
	if err := os.WriteFile(filepath.Join(i.stagingDir, pendingFileName), data, 0644); err != nil {
		return fmt.Errorf("writing staged artifact: %w", err)
	}
	return nil
}

// Staged returns the parked artifact, or nil if there is none.
func (i *Installer) Staged() (*Artifact, error) {
	data, err := os.ReadFile(filepath.Join(i.stagingDir, pendingFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading staged artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing staged artifact: %w", err)
	}
	if _, err := os.Stat(artifact.ArchivePath); err != nil {
		return nil, fmt.Errorf("staged archive missing: %w", err)
	}
	return &artifact, nil
}

// ApplyStaged installs a parked artifact, if any, and clears the staging
// directory. It returns the applied artifact or nil when nothing was staged.
func (i *Installer) ApplyStaged() (*Artifact, error) {
	artifact, err := i.Staged()
	if err != nil {
		// A broken stage is discarded so it cannot block every launch.
		_ = os.RemoveAll(i.stagingDir)
		return nil, err
	}
	if artifact == nil {
		return nil, nil
	}

	if _, err := i.install(artifact); err != nil {
		return nil, err
	}
	_ = os.RemoveAll(i.stagingDir)
	return artifact, nil
}

func (i *Installer) install(artifact *Artifact) (string, error) {
	if artifact == nil || artifact.ArchivePath == "" {
		return "", errors.New("no artifact to install")
	}

	current, err := i.executable()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(i.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	extractDir, err := os.MkdirTemp(i.stagingDir, "extract-*")
	if err != nil {
		return "", fmt.Errorf("creating extract directory: %w", err)
	}
	defer os.RemoveAll(extractDir)

	binPath, err := ExtractBinary(artifact.ArchivePath, extractDir)
	if err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}

	if err := ReplaceBinary(binPath, current, artifact.Version); err != nil {
		return "", err
	}
	return current, nil
}

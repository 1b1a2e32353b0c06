package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"vidsum/internal/config"
	"vidsum/internal/fileutil"
)

// Store manages the staging (tmp/<job_id>) and final (cache/<source_type>/
// <cache_key>) bundle directories.
type Store struct {
	basePath string
	tmpPath  string
}

// NewStore builds a Store rooted at cfg's work directory.
func NewStore(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	base := filepath.Join(cfg.Paths.WorkDir, "cache")
	tmp := filepath.Join(cfg.Paths.WorkDir, "tmp")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}
	return &Store{basePath: base, tmpPath: tmp}, nil
}

// StagingDir returns the staging directory for jobID, whether or not it
// has been created yet.
func (s *Store) StagingDir(jobID string) string {
	return filepath.Join(s.tmpPath, jobID)
}

// FinalDir returns the promoted bundle directory for a (sourceType,
// cacheKey) pair.
func (s *Store) FinalDir(sourceType, cacheKey string) string {
	return filepath.Join(s.basePath, sourceType, cacheKey)
}

// Stage creates a fresh staging directory for jobID and writes its initial
// manifest.
func (s *Store) Stage(jobID, cacheKey, sourceType, sourceRef, sourceName string, profileVersion int) (string, error) {
	dir := s.StagingDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	manifest := newManifest(cacheKey, sourceType, sourceRef, sourceName, profileVersion)
	if err := saveManifest(dir, manifest); err != nil {
		return "", fmt.Errorf("write staging manifest: %w", err)
	}
	return dir, nil
}

// AddArtifact copies srcPath into the staging directory under the standard
// name for artifactType, records its size and hash in the manifest, and
// returns the path it was copied to.
func (s *Store) AddArtifact(stagingDir, artifactType, srcPath string) (string, error) {
	manifest, err := loadManifest(stagingDir)
	if err != nil {
		return "", fmt.Errorf("load staging manifest: %w", err)
	}

	targetName := ArtifactFilename(artifactType, filepath.Ext(srcPath))
	targetPath := filepath.Join(stagingDir, targetName)
	if targetPath != srcPath {
		if err := fileutil.CopyFileVerified(srcPath, targetPath); err != nil {
			return "", fmt.Errorf("copy artifact %s: %w", artifactType, err)
		}
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return "", err
	}
	hash, err := hashFile(targetPath)
	if err != nil {
		return "", err
	}
	manifest.Artifacts[artifactType] = ArtifactInfo{Path: targetName, Size: info.Size(), SHA256: hash}
	if err := saveManifest(stagingDir, manifest); err != nil {
		return "", fmt.Errorf("update staging manifest: %w", err)
	}
	return targetPath, nil
}

// MarkStatus updates the staging manifest's status, summary text, and
// error fields without moving any files.
func (s *Store) MarkStatus(stagingDir, status, summaryText, errMessage string) error {
	manifest, err := loadManifest(stagingDir)
	if err != nil {
		return fmt.Errorf("load staging manifest: %w", err)
	}
	manifest.Status = status
	manifest.SummaryText = summaryText
	manifest.Error = errMessage
	return saveManifest(stagingDir, manifest)
}

// SetMediaInfo records the duration and silence verdict the pipeline
// discovered while processing a job.
func (s *Store) SetMediaInfo(stagingDir string, durationMS int64, isSilent bool) error {
	manifest, err := loadManifest(stagingDir)
	if err != nil {
		return fmt.Errorf("load staging manifest: %w", err)
	}
	manifest.DurationMS = durationMS
	manifest.IsSilent = isSilent
	return saveManifest(stagingDir, manifest)
}

// Promote fsyncs the staging directory for jobID and atomically renames it
// into its final location for (sourceType, cacheKey), replacing any
// existing bundle there. A single os.Rename is the only state change a
// reader of the final directory can observe.
func (s *Store) Promote(jobID, sourceType, cacheKey string) (string, error) {
	staging := s.StagingDir(jobID)
	if _, err := os.Stat(staging); err != nil {
		return "", fmt.Errorf("staging dir missing: %w", err)
	}
	if err := fsyncDir(staging); err != nil {
		return "", fmt.Errorf("fsync staging dir: %w", err)
	}

	final := s.FinalDir(sourceType, cacheKey)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", fmt.Errorf("create bundle parent dir: %w", err)
	}
	if _, err := os.Stat(final); err == nil {
		if err := os.RemoveAll(final); err != nil {
			return "", fmt.Errorf("remove stale bundle: %w", err)
		}
	}
	if err := os.Rename(staging, final); err != nil {
		return "", fmt.Errorf("promote bundle: %w", err)
	}
	if err := fsyncDir(filepath.Dir(final)); err != nil {
		return "", fmt.Errorf("fsync bundle parent dir: %w", err)
	}
	return final, nil
}

// Discard removes a job's staging directory, used when a job fails or is
// superseded by a refresh.
func (s *Store) Discard(jobID string) error {
	return os.RemoveAll(s.StagingDir(jobID))
}

// Validate reports whether the final bundle for (sourceType, cacheKey)
// exists, has a readable manifest, is marked completed, carries a
// non-empty summary, and has every recorded artifact still present on
// disk. This is the BundleValidator the metadata store calls before
// treating a completed cache entry as a hit.
func (s *Store) Validate(sourceType, cacheKey string) bool {
	dir := s.FinalDir(sourceType, cacheKey)
	manifest, err := loadManifest(dir)
	if err != nil {
		return false
	}
	if manifest.Status != "completed" {
		return false
	}
	if strings.TrimSpace(manifest.SummaryText) == "" {
		return false
	}
	for _, artifact := range manifest.Artifacts {
		if _, err := os.Stat(filepath.Join(dir, artifact.Path)); err != nil {
			return false
		}
	}
	return true
}

// Load returns the manifest for a promoted bundle.
func (s *Store) Load(sourceType, cacheKey string) (*Manifest, error) {
	return loadManifest(s.FinalDir(sourceType, cacheKey))
}

// Remove deletes a promoted bundle directory entirely (cache eviction or
// explicit invalidation).
func (s *Store) Remove(sourceType, cacheKey string) error {
	return os.RemoveAll(s.FinalDir(sourceType, cacheKey))
}

// Size returns the total byte size of a promoted bundle's artifacts.
func (s *Store) Size(sourceType, cacheKey string) (int64, error) {
	dir := s.FinalDir(sourceType, cacheKey)
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// HealthCheck verifies the base and tmp directories are readable and
// writable.
func (s *Store) HealthCheck() error {
	for _, dir := range []string{s.basePath, s.tmpPath} {
		if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return fmt.Errorf("bundle directory %s not accessible: %w", dir, err)
		}
	}
	return nil
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

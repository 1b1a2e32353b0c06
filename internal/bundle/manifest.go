package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const manifestVersion = "v1"

// Artifact names for the standard artifact slots a bundle can hold.
const (
	ArtifactVideo    = "video"
	ArtifactAudio    = "audio"
	ArtifactSubtitle = "subtitle"
	ArtifactASR      = "asr"
	ArtifactSummary  = "summary"
)

var artifactFilenames = map[string]string{
	ArtifactVideo:    "video.mp4",
	ArtifactAudio:    "audio.wav",
	ArtifactSubtitle: "subtitle.vtt",
	ArtifactASR:      "asr.json",
	ArtifactSummary:  "summary.json",
}

// ArtifactFilename returns the standard filename for a known artifact
// type, or artifactType+ext for an unrecognized one.
func ArtifactFilename(artifactType, ext string) string {
	if name, ok := artifactFilenames[artifactType]; ok {
		return name
	}
	return artifactType + ext
}

// ArtifactInfo records one stored artifact's size and content hash.
type ArtifactInfo struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
}

// Manifest is the bundle.json document persisted alongside a bundle's
// artifacts.
type Manifest struct {
	Version        string                  `json:"version"`
	ProfileVersion int                     `json:"profile_version"`
	CacheKey       string                  `json:"cache_key"`
	SourceType     string                  `json:"source_type"`
	SourceRef      string                  `json:"source_ref"`
	SourceName     string                  `json:"source_name,omitempty"`
	Status         string                  `json:"status"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	Artifacts      map[string]ArtifactInfo `json:"artifacts"`
	SummaryText    string                  `json:"summary_text,omitempty"`
	Error          string                  `json:"error,omitempty"`
	DurationMS     int64                   `json:"duration_ms,omitempty"`
	IsSilent       bool                    `json:"is_silent,omitempty"`
}

const manifestFilename = "bundle.json"

func newManifest(cacheKey, sourceType, sourceRef, sourceName string, profileVersion int) *Manifest {
	now := time.Now().UTC()
	return &Manifest{
		Version:        manifestVersion,
		ProfileVersion: profileVersion,
		CacheKey:       cacheKey,
		SourceType:     sourceType,
		SourceRef:      sourceRef,
		SourceName:     sourceName,
		Status:         "pending",
		CreatedAt:      now,
		UpdatedAt:      now,
		Artifacts:      map[string]ArtifactInfo{},
	}
}

func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFilename))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// saveManifest writes manifest to dir atomically via a temp file plus
// rename.
func saveManifest(dir string, manifest *Manifest) error {
	manifest.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, manifestFilename)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fulmenhq/chatporter/internal/chatlog"
	"github.com/fulmenhq/chatporter/pkg/safeio"
)

// ManifestSchemaVersion tags the manifest document format.
const ManifestSchemaVersion = "1.0.0"

// ManifestArtifact is one planned artifact entry. Paths are relative to
// the destination root and come from the plan, never from a disk scan,
// so stray files can never leak into the manifest.
type ManifestArtifact struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	Dir  bool   `json:"dir,omitempty"`
}

// ManifestResolution records how naming collisions were resolved.
type ManifestResolution struct {
	Policy        string `json:"policy"`
	AlternateName bool   `json:"alternate_name"`
	Replaced      bool   `json:"replaced"`
}

// Manifest is the run's completion record, published last.
type Manifest struct {
	SchemaVersion string                  `json:"schema_version"`
	BaseName      string                  `json:"base_name"`
	RunID         string                  `json:"run_id"`
	CreatedAt     time.Time               `json:"created_at"`
	Source        string                  `json:"source"`
	Artifacts     []ManifestArtifact      `json:"artifacts"`
	Flags         map[string]bool         `json:"flags"`
	Participants  chatlog.DetectionResult `json:"participants"`
	Resolution    ManifestResolution      `json:"resolution"`
}

const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["schema_version", "base_name", "run_id", "created_at", "artifacts", "flags", "participants", "resolution"],
  "properties": {
    "schema_version": {"type": "string", "pattern": "^\\d+\\.\\d+\\.\\d+$"},
    "base_name": {"type": "string", "minLength": 1},
    "run_id": {"type": "string", "minLength": 1},
    "created_at": {"type": "string"},
    "source": {"type": "string"},
    "artifacts": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["kind", "path"],
        "properties": {
          "kind": {"type": "string", "minLength": 1},
          "path": {"type": "string", "minLength": 1},
          "dir": {"type": "boolean"}
        }
      }
    },
    "flags": {"type": "object", "additionalProperties": {"type": "boolean"}},
    "participants": {"type": "object"},
    "resolution": {
      "type": "object",
      "required": ["policy", "alternate_name", "replaced"],
      "properties": {
        "policy": {"type": "string"},
        "alternate_name": {"type": "boolean"},
        "replaced": {"type": "boolean"}
      }
    }
  }
}`

// planFlags reports what the run actually produced, keyed per artifact
// family. Derived from the plan, not the requested selection, because a
// step can be dropped (sidecar without attachments).
func planFlags(plan *RunPlan) map[string]bool {
	flags := map[string]bool{
		"html_max":    false,
		"html_mid":    false,
		"html_min":    false,
		"markdown":    false,
		"sidecar":     false,
		"raw_archive": false,
	}
	for _, step := range plan.Steps {
		switch step.Kind {
		case StepRawArchive:
			flags["raw_archive"] = true
		case StepSidecar:
			flags["sidecar"] = true
		case StepHTMLMax:
			flags["html_max"] = true
		case StepHTMLMid:
			flags["html_mid"] = true
		case StepHTMLMin:
			flags["html_min"] = true
		case StepMarkdown:
			flags["markdown"] = true
		}
	}
	return flags
}

// BuildManifest assembles the manifest from the plan and run context.
func BuildManifest(ectx *ExportContext, base string, plan *RunPlan) *Manifest {
	m := &Manifest{
		SchemaVersion: ManifestSchemaVersion,
		BaseName:      base,
		RunID:         ectx.RunID,
		CreatedAt:     ectx.CreatedAt.UTC(),
		Source:        filepath.Base(ectx.SourcePath),
		Flags:         planFlags(plan),
		Participants:  ectx.Prepared.Names,
		Resolution: ManifestResolution{
			Policy:        string(ectx.Policy),
			AlternateName: strings.Contains(base, altMarker),
			Replaced:      ectx.Policy == CollisionReplace,
		},
	}
	for _, step := range plan.Steps {
		switch step.Kind {
		case StepRawArchive:
			m.Artifacts = append(m.Artifacts, ManifestArtifact{
				Kind: string(StepRawArchive), Path: RawArchiveDirName(base), Dir: true,
			})
		case StepSidecar:
			m.Artifacts = append(m.Artifacts,
				ManifestArtifact{Kind: "sidecar-assets", Path: base + suffixAssets, Dir: true},
				ManifestArtifact{Kind: "sidecar-html", Path: base + suffixSidecar})
		case StepHTMLMax:
			m.Artifacts = append(m.Artifacts, ManifestArtifact{Kind: string(StepHTMLMax), Path: base + suffixHTMLMax})
		case StepHTMLMid:
			m.Artifacts = append(m.Artifacts, ManifestArtifact{Kind: string(StepHTMLMid), Path: base + suffixHTMLMid})
		case StepHTMLMin:
			m.Artifacts = append(m.Artifacts, ManifestArtifact{Kind: string(StepHTMLMin), Path: base + suffixHTMLMin})
		case StepMarkdown:
			m.Artifacts = append(m.Artifacts, ManifestArtifact{Kind: string(StepMarkdown), Path: base + suffixMarkdown})
		}
	}
	return m
}

// Validate checks the manifest against its JSON schema before it is
// allowed anywhere near the destination.
func (m *Manifest) Validate() error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("manifest failed schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// StageManifest validates the manifest and writes it into the staging
// area under its final name.
func StageManifest(m *Manifest, stagingDir string) (StagedArtifact, error) {
	if err := m.Validate(); err != nil {
		return StagedArtifact{}, err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return StagedArtifact{}, fmt.Errorf("encode manifest: %w", err)
	}
	name := m.BaseName + suffixManifest
	path := filepath.Join(stagingDir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { // #nosec G306 -- published artifact
		return StagedArtifact{}, fmt.Errorf("write manifest: %w", err)
	}
	return StagedArtifact{Kind: "manifest", Path: path, Name: name}, nil
}

// StageChecksums hashes every published file under destRoot that belongs
// to this run and writes a "<sum>  <relpath>" summary, sorted by path.
// Directories are hashed file-by-file. The checksum file never lists
// itself.
func StageChecksums(base, destRoot, stagingDir string, published []PublishRecord) (StagedArtifact, error) {
	type sumLine struct {
		rel string
		sum string
	}
	var entries []sumLine
	addFile := func(path string) error {
		sum, err := safeio.FileSHA256(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(destRoot, path)
		if err != nil {
			return err
		}
		entries = append(entries, sumLine{rel: filepath.ToSlash(rel), sum: sum})
		return nil
	}
	for _, rec := range published {
		info, err := os.Stat(rec.Destination)
		if err != nil {
			return StagedArtifact{}, fmt.Errorf("stat published %s: %w", rec.Destination, err)
		}
		if !info.IsDir() {
			if err := addFile(rec.Destination); err != nil {
				return StagedArtifact{}, err
			}
			continue
		}
		err = filepath.Walk(rec.Destination, func(path string, fi os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if fi.IsDir() {
				return nil
			}
			return addFile(path)
		})
		if err != nil {
			return StagedArtifact{}, fmt.Errorf("hash published tree %s: %w", rec.Destination, err)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.sum + "  " + e.rel
	}

	name := base + suffixChecksum
	path := filepath.Join(stagingDir, name)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { // #nosec G306 -- published artifact
		return StagedArtifact{}, fmt.Errorf("write checksum file: %w", err)
	}
	return StagedArtifact{Kind: "checksums", Path: path, Name: name}, nil
}

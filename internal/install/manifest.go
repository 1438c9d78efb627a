// Package install reads and writes the installation manifest kept under
// <claude_home>/cdd. The manifest records the installed version and a hash
// of every installed file so local modifications can be detected.
package install

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// Dir is the installation directory inside claude_home.
	Dir = "cdd"
	// ManifestFile is the TOML manifest name.
	ManifestFile = "cdd-manifest.toml"

	legacyManifestFile = "cdd-manifest.json"
	versionFile        = "VERSION"
)

// Manifest describes one installation.
type Manifest struct {
	Version     string    `toml:"version" json:"version"`
	InstalledAt time.Time `toml:"installed_at" json:"installedAt"`
	// Files maps a path relative to claude_home to its sha256.
	Files map[string]string `toml:"files" json:"files"`
}

// Path returns the manifest location for home.
func Path(home string) string {
	return filepath.Join(home, Dir, ManifestFile)
}

// Load reads the manifest under home. A JSON manifest written by older
// installers is accepted when no TOML manifest exists. ok is false when
// neither can be read.
func Load(home string) (*Manifest, bool) {
	var m Manifest
	if data, err := os.ReadFile(Path(home)); err == nil {
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return &m, true
	}

	data, err := os.ReadFile(filepath.Join(home, Dir, legacyManifestFile))
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return &m, true
}

// Save writes m atomically (write temp + rename).
func Save(home string, m *Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	path := Path(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating install dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

// Build hashes the given files, relative to home, into a manifest.
func Build(home, version string, files []string) (*Manifest, error) {
	m := &Manifest{
		Version:     version,
		InstalledAt: time.Now().UTC().Truncate(time.Second),
		Files:       make(map[string]string, len(files)),
	}
	for _, rel := range files {
		sum, err := hashFile(filepath.Join(home, rel))
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", rel, err)
		}
		m.Files[filepath.ToSlash(rel)] = sum
	}
	return m, nil
}

// InstalledVersion returns the installed version from the manifest, falling
// back to the plain VERSION file. ok is false when neither is present.
func InstalledVersion(home string) (string, bool) {
	if m, ok := Load(home); ok && m.Version != "" {
		return m.Version, true
	}
	data, err := os.ReadFile(filepath.Join(home, Dir, versionFile))
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	return v, v != ""
}

// Modified lists manifest files whose content no longer matches the
// recorded hash, including files that were removed. The result is sorted.
func (m *Manifest) Modified(home string) []string {
	var out []string
	for rel, want := range m.Files {
		got, err := hashFile(filepath.Join(home, filepath.FromSlash(rel)))
		if err != nil || got != want {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

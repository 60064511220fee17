package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped whenever the on-disk layout changes
const CacheVersion = "1.0"

// CacheManager keeps the last fetched scheme list and scheme explanations on
// disk so they are available without a network round trip
type CacheManager struct {
	cacheDir string
	apiURL   string
	now      func() time.Time
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	APIURL       string    `yaml:"api_url"`
	CacheVersion string    `yaml:"cache_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// SchemeIndex is the YAML document holding the cached scheme list
type SchemeIndex struct {
	Schemes  []Scheme      `yaml:"schemes"`
	Metadata CacheMetadata `yaml:"metadata"`
}

// cachedExplanation is one explanation file
type cachedExplanation struct {
	SchemeID    string    `yaml:"scheme_id"`
	Explanation string    `yaml:"explanation"`
	CachedAt    time.Time `yaml:"cached_at"`
}

// NewCacheManager creates a cache rooted at cacheDir for the given API
func NewCacheManager(cacheDir, apiURL string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
		apiURL:   apiURL,
		now:      time.Now,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the scheme index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "schemes.yaml")
}

// GetExplanationPath returns the path to a scheme's explanation file
func (cm *CacheManager) GetExplanationPath(schemeID string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("explanation_%s.yaml", sanitizeID(schemeID)))
}

// IsCacheValid reports whether a scheme index exists for this API and is
// younger than maxAge. A zero maxAge disables the age check.
func (cm *CacheManager) IsCacheValid(maxAge time.Duration) (bool, error) {
	index, err := cm.LoadIndex()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if index.Metadata.APIURL != cm.apiURL || index.Metadata.CacheVersion != CacheVersion {
		return false, nil
	}
	if maxAge > 0 && cm.now().Sub(index.Metadata.UpdatedAt) > maxAge {
		return false, nil
	}
	return true, nil
}

// LoadIndex loads the scheme index
func (cm *CacheManager) LoadIndex() (*SchemeIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index SchemeIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &StorageError{Path: cm.GetIndexPath(), Op: "decode", Err: err}
	}
	return &index, nil
}

// LoadSchemes returns the cached schemes for this API, or nil when the cache
// is missing or belongs to another API
func (cm *CacheManager) LoadSchemes() ([]Scheme, error) {
	valid, err := cm.IsCacheValid(0)
	if err != nil || !valid {
		return nil, err
	}
	index, err := cm.LoadIndex()
	if err != nil {
		return nil, err
	}
	return index.Schemes, nil
}

// SaveSchemes replaces the cached scheme list
func (cm *CacheManager) SaveSchemes(schemes []Scheme) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return &StorageError{Path: cm.cacheDir, Op: "write", Err: err}
	}

	now := cm.now()
	created := now
	if existing, err := cm.LoadIndex(); err == nil && existing.Metadata.APIURL == cm.apiURL {
		created = existing.Metadata.CreatedAt
	}

	index := SchemeIndex{
		Schemes: schemes,
		Metadata: CacheMetadata{
			APIURL:       cm.apiURL,
			CacheVersion: CacheVersion,
			CreatedAt:    created,
			UpdatedAt:    now,
		},
	}
	data, err := yaml.Marshal(&index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.WriteFile(cm.GetIndexPath(), data, 0644); err != nil {
		return &StorageError{Path: cm.GetIndexPath(), Op: "write", Err: err}
	}
	return nil
}

// LoadExplanation returns a cached explanation and whether it was found
func (cm *CacheManager) LoadExplanation(schemeID string) (string, bool) {
	data, err := os.ReadFile(cm.GetExplanationPath(schemeID))
	if err != nil {
		return "", false
	}
	var entry cachedExplanation
	if err := yaml.Unmarshal(data, &entry); err != nil || entry.SchemeID != schemeID {
		return "", false
	}
	return entry.Explanation, true
}

// SaveExplanation stores an explanation for a scheme
func (cm *CacheManager) SaveExplanation(schemeID, explanation string) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return &StorageError{Path: cm.cacheDir, Op: "write", Err: err}
	}
	data, err := yaml.Marshal(cachedExplanation{SchemeID: schemeID, Explanation: explanation, CachedAt: cm.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal explanation: %w", err)
	}
	path := cm.GetExplanationPath(schemeID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// ClearCache removes the scheme index and every explanation file
func (cm *CacheManager) ClearCache() error {
	matches, _ := filepath.Glob(filepath.Join(cm.cacheDir, "explanation_*.yaml"))
	for _, path := range matches {
		_ = os.Remove(path)
	}

	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return &StorageError{Path: cm.GetIndexPath(), Op: "delete", Err: err}
	}
	return nil
}

// sanitizeID keeps ids safe for use in file names
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

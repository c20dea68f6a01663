package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lrdgdown-eng/etiquetado/internal/config"
	"github.com/lrdgdown-eng/etiquetado/internal/lockfile"
)

// ErrCatalogMissing is returned when the catalog file is absent and no URL is configured
var ErrCatalogMissing = errors.New("catalog file not found and no CATALOG_URL configured")

// Metadata holds information about the downloaded catalog file
type Metadata struct {
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size"`
	SourceURL    string    `json:"source_url,omitempty"`
}

// Manager keeps the local catalog file present and in sync with its source URL
type Manager struct {
	catalogURL   string
	catalogPath  string
	metadataPath string
	lockPath     string
	log          *slog.Logger
	config       *config.Config
	client       *http.Client

	pollInterval time.Duration
	waitTimeout  time.Duration
}

// NewManager creates a new catalog file manager
func NewManager(catalogURL, catalogPath, metadataPath, lockPath string, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		catalogURL:   catalogURL,
		catalogPath:  catalogPath,
		metadataPath: metadataPath,
		lockPath:     lockPath,
		log:          logger,
		config:       cfg,
		client:       &http.Client{Timeout: 5 * time.Minute},
		pollInterval: 2 * time.Second,
		waitTimeout:  10 * time.Minute,
	}
}

// NewManagerFromConfig creates a manager from the catalog settings of cfg
func NewManagerFromConfig(cfg *config.Config, logger *slog.Logger) *Manager {
	return NewManager(cfg.CatalogURL, cfg.CatalogPath, cfg.MetadataPath, cfg.LockFile, cfg, logger)
}

// CatalogPath returns the local catalog file path
func (m *Manager) CatalogPath() string {
	return m.catalogPath
}

// EnsureDataset ensures the catalog file is available and up-to-date
func (m *Manager) EnsureDataset(ctx context.Context) error {
	start := time.Now()
	m.log.Info("Ensuring catalog is available", "catalog_path", m.catalogPath)

	_, statErr := os.Stat(m.catalogPath)
	exists := statErr == nil

	if m.catalogURL == "" {
		if !exists {
			return fmt.Errorf("%w: %s", ErrCatalogMissing, m.catalogPath)
		}
		m.log.Info("No catalog URL configured, using local catalog", "duration", time.Since(start))
		return nil
	}

	if exists {
		if m.config.DisableRemoteCheck {
			m.log.Info("Remote checks disabled, using local catalog", "duration", time.Since(start))
			return nil
		}

		fresh, err := m.isUpToDate(ctx)
		if err != nil {
			m.log.Warn("Failed to check catalog version", "error", err)
		}
		if fresh {
			m.log.Info("Catalog is up-to-date", "duration", time.Since(start))
			return nil
		}
	}

	if err := m.downloadWithLock(ctx); err != nil {
		return fmt.Errorf("failed to download catalog: %w", err)
	}

	m.log.Info("Catalog ensured", "duration", time.Since(start))
	return nil
}

// Refresh downloads the catalog regardless of local freshness
func (m *Manager) Refresh(ctx context.Context) error {
	if m.catalogURL == "" {
		return ErrCatalogMissing
	}
	if err := m.downloadWithLock(ctx); err != nil {
		return fmt.Errorf("failed to download catalog: %w", err)
	}
	return nil
}

// sameVersion compares by ETag when both sides carry one, otherwise by size
func sameVersion(local, remote Metadata) bool {
	if local.ETag != "" && remote.ETag != "" {
		return local.ETag == remote.ETag
	}
	return local.Size == remote.Size
}

func (m *Manager) isUpToDate(ctx context.Context) (bool, error) {
	local, err := m.loadMetadata()
	if err != nil {
		m.log.Debug("No catalog metadata, treating local file as stale", "error", err)
		return false, nil
	}

	remote, err := m.remoteVersion(ctx)
	if err != nil {
		return false, err
	}

	fresh := sameVersion(*local, remote)
	m.log.Debug("Catalog version check",
		"local_etag", local.ETag,
		"remote_etag", remote.ETag,
		"local_size", local.Size,
		"remote_size", remote.Size,
		"fresh", fresh)
	return fresh, nil
}

// remoteVersion reads ETag and Content-Length with a HEAD request
func (m *Manager) remoteVersion(ctx context.Context) (Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.catalogURL, nil)
	if err != nil {
		return Metadata{}, err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Metadata{}, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("HEAD %s: unexpected status %d", m.catalogURL, resp.StatusCode)
	}
	return Metadata{ETag: resp.Header.Get("ETag"), Size: resp.ContentLength}, nil
}

// downloadWithLock replaces the catalog while holding the lock file. If
// another process holds it, the call waits and returns without downloading
// when that process produced a new catalog file.
func (m *Manager) downloadWithLock(ctx context.Context) error {
	start := time.Now()
	before := modTime(m.catalogPath)

	if m.config.IgnoreLock && lockfile.Held(m.lockPath) {
		m.log.Warn("IGNORE_LOCK set, removing existing lock file", "lock_path", m.lockPath)
		if err := lockfile.Break(m.lockPath); err != nil {
			m.log.Warn("Failed to remove lock file", "error", err)
		}
	}

	lock, err := lockfile.Acquire(m.lockPath)
	switch {
	case err == nil:
	case m.config.IgnoreLock:
		m.log.Warn("Downloading without the lock", "error", err)
	case errors.Is(err, os.ErrExist):
		m.log.Info("Catalog download in progress elsewhere, waiting", "lock_path", m.lockPath)
		lock, err = lockfile.Wait(ctx, m.lockPath, m.pollInterval, m.waitTimeout)
		if err != nil {
			return fmt.Errorf("failed waiting for catalog lock: %w", err)
		}
		if after := modTime(m.catalogPath); !after.IsZero() && !after.Equal(before) {
			lock.Release()
			m.log.Info("Catalog replaced by another instance", "duration", time.Since(start))
			return nil
		}
	default:
		return fmt.Errorf("failed to acquire catalog lock: %w", err)
	}
	defer lock.Release()

	if err := os.MkdirAll(filepath.Dir(m.catalogPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmpPath := m.catalogPath + ".tmp"
	meta, err := m.fetch(ctx, tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, m.catalogPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace catalog file: %w", err)
	}

	if err := m.saveMetadata(meta); err != nil {
		m.log.Warn("Failed to save catalog metadata", "error", err)
	}

	m.log.Info("Catalog downloaded",
		"bytes", meta.Size,
		"sha256", meta.SHA256[:12],
		"duration", time.Since(start))
	return nil
}

// fetch streams the catalog into dst, hashing it on the way
func (m *Manager) fetch(ctx context.Context, dst string) (*Metadata, error) {
	m.log.Debug("Downloading catalog", "url", m.catalogURL, "path", dst)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.catalogURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", m.catalogURL, resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hash), resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write catalog: %w", err)
	}

	return &Metadata{
		SHA256:       hex.EncodeToString(hash.Sum(nil)),
		DownloadedAt: time.Now().UTC(),
		ETag:         resp.Header.Get("ETag"),
		Size:         n,
		SourceURL:    m.catalogURL,
	}, nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (m *Manager) loadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(m.metadataPath)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("corrupt catalog metadata %s: %w", m.metadataPath, err)
	}
	return &meta, nil
}

func (m *Manager) saveMetadata(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.metadataPath, data, 0644)
}

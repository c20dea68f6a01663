package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrdgdown-eng/etiquetado/internal/config"
	"github.com/lrdgdown-eng/etiquetado/internal/lockfile"
)

const catalogCSV = "Alimento,Cantidad(g/ml),Energía(kcal)\nPlátano,100,89\n"

func newTestManager(t *testing.T, url string, cfg *config.Config) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	logger := config.NewTestLogger(io.Discard, "debug")
	m := NewManager(
		url,
		filepath.Join(dir, "catalog.csv"),
		filepath.Join(dir, "metadata.json"),
		filepath.Join(dir, "refresh.lock"),
		cfg,
		logger,
	)
	return m, dir
}

func writeMetadata(t *testing.T, path string, meta Metadata) {
	t.Helper()
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func catalogServer(etag string, gets *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", etag)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		atomic.AddInt32(gets, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(catalogCSV))
	}))
}

func TestManager_EnsureDataset(t *testing.T) {
	tests := []struct {
		name           string
		etag           string
		setupFiles     func(t *testing.T, m *Manager)
		cfg            *config.Config
		expectDownload bool
	}{
		{
			name:           "file does not exist - should download",
			etag:           "v1",
			setupFiles:     func(t *testing.T, m *Manager) {},
			cfg:            &config.Config{},
			expectDownload: true,
		},
		{
			name: "file exists and up to date - should skip",
			etag: "v1",
			setupFiles: func(t *testing.T, m *Manager) {
				require.NoError(t, os.WriteFile(m.catalogPath, []byte("old"), 0644))
				writeMetadata(t, m.metadataPath, Metadata{ETag: "v1", Size: 3})
			},
			cfg:            &config.Config{},
			expectDownload: false,
		},
		{
			name: "file exists but outdated - should download",
			etag: "v2",
			setupFiles: func(t *testing.T, m *Manager) {
				require.NoError(t, os.WriteFile(m.catalogPath, []byte("old"), 0644))
				writeMetadata(t, m.metadataPath, Metadata{ETag: "v1", Size: 3})
			},
			cfg:            &config.Config{},
			expectDownload: true,
		},
		{
			name: "file exists without metadata - should download",
			etag: "v1",
			setupFiles: func(t *testing.T, m *Manager) {
				require.NoError(t, os.WriteFile(m.catalogPath, []byte("old"), 0644))
			},
			cfg:            &config.Config{},
			expectDownload: true,
		},
		{
			name: "remote checks disabled - should skip",
			etag: "v2",
			setupFiles: func(t *testing.T, m *Manager) {
				require.NoError(t, os.WriteFile(m.catalogPath, []byte("old"), 0644))
			},
			cfg:            &config.Config{DisableRemoteCheck: true},
			expectDownload: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gets int32
			server := catalogServer(tt.etag, &gets)
			defer server.Close()

			m, _ := newTestManager(t, server.URL, tt.cfg)
			tt.setupFiles(t, m)

			require.NoError(t, m.EnsureDataset(context.Background()))

			data, err := os.ReadFile(m.catalogPath)
			require.NoError(t, err)

			if tt.expectDownload {
				assert.Equal(t, int32(1), atomic.LoadInt32(&gets))
				assert.Equal(t, catalogCSV, string(data))

				meta, err := m.loadMetadata()
				require.NoError(t, err)
				assert.Equal(t, tt.etag, meta.ETag)
				assert.Equal(t, int64(len(catalogCSV)), meta.Size)
				assert.Equal(t, server.URL, meta.SourceURL)
			} else {
				assert.Equal(t, int32(0), atomic.LoadInt32(&gets))
				assert.Equal(t, "old", string(data))
			}

			assert.False(t, lockfile.Held(m.lockPath))
			_, err = os.Stat(m.catalogPath + ".tmp")
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestManager_NoURL(t *testing.T) {
	t.Run("missing file is an error", func(t *testing.T) {
		m, _ := newTestManager(t, "", &config.Config{})

		err := m.EnsureDataset(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCatalogMissing)
	})

	t.Run("local file is used", func(t *testing.T) {
		m, _ := newTestManager(t, "", &config.Config{})
		require.NoError(t, os.WriteFile(m.catalogPath, []byte(catalogCSV), 0644))

		assert.NoError(t, m.EnsureDataset(context.Background()))
	})

	t.Run("refresh requires URL", func(t *testing.T) {
		m, _ := newTestManager(t, "", &config.Config{})
		assert.ErrorIs(t, m.Refresh(context.Background()), ErrCatalogMissing)
	})
}

func TestManager_DownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	m, _ := newTestManager(t, server.URL, &config.Config{})

	err := m.EnsureDataset(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download catalog")

	_, err = os.Stat(m.catalogPath)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, lockfile.Held(m.lockPath))
}

func TestManager_Refresh(t *testing.T) {
	var gets int32
	server := catalogServer("v1", &gets)
	defer server.Close()

	m, _ := newTestManager(t, server.URL, &config.Config{})
	require.NoError(t, os.WriteFile(m.catalogPath, []byte("old"), 0644))
	writeMetadata(t, m.metadataPath, Metadata{ETag: "v1"})

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&gets))
}

func TestManager_WaitsForOtherInstance(t *testing.T) {
	var gets int32
	server := catalogServer("v1", &gets)
	defer server.Close()

	m, _ := newTestManager(t, server.URL, &config.Config{})
	m.pollInterval = 10 * time.Millisecond
	m.waitTimeout = 2 * time.Second

	held, err := lockfile.Acquire(m.lockPath)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(m.catalogPath, []byte(catalogCSV), 0644)
		held.Release()
	}()

	require.NoError(t, m.EnsureDataset(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&gets))
}

func TestManager_IgnoreLock(t *testing.T) {
	var gets int32
	server := catalogServer("v1", &gets)
	defer server.Close()

	m, _ := newTestManager(t, server.URL, &config.Config{IgnoreLock: true})

	// Stale lock left by a crashed instance
	require.NoError(t, os.WriteFile(m.lockPath, []byte("999\n"), 0644))

	require.NoError(t, m.EnsureDataset(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&gets))
	assert.False(t, lockfile.Held(m.lockPath))
}

func TestManager_RecordsSHA256(t *testing.T) {
	var gets int32
	server := catalogServer("v1", &gets)
	defer server.Close()

	m, _ := newTestManager(t, server.URL, &config.Config{})
	require.NoError(t, m.Refresh(context.Background()))

	meta, err := m.loadMetadata()
	require.NoError(t, err)
	sum := sha256.Sum256([]byte(catalogCSV))
	assert.Equal(t, hex.EncodeToString(sum[:]), meta.SHA256)
	assert.False(t, meta.DownloadedAt.IsZero())
}

func TestSameVersion(t *testing.T) {
	tests := []struct {
		name          string
		local, remote Metadata
		want          bool
	}{
		{"matching etag", Metadata{ETag: "a", Size: 1}, Metadata{ETag: "a", Size: 2}, true},
		{"different etag", Metadata{ETag: "a", Size: 1}, Metadata{ETag: "b", Size: 1}, false},
		{"size when local etag missing", Metadata{Size: 10}, Metadata{ETag: "b", Size: 10}, true},
		{"size when remote etag missing", Metadata{ETag: "a", Size: 10}, Metadata{Size: 11}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sameVersion(tt.local, tt.remote))
		})
	}
}

func TestMetadata_SaveLoad(t *testing.T) {
	m, _ := newTestManager(t, "https://example.com/catalog.csv", &config.Config{})

	original := &Metadata{
		SHA256:       "test-sha256",
		DownloadedAt: time.Now().UTC().Truncate(time.Second),
		ETag:         "test-etag",
		Size:         12345,
		SourceURL:    "https://example.com/catalog.csv",
	}

	require.NoError(t, m.saveMetadata(original))

	loaded, err := m.loadMetadata()
	require.NoError(t, err)

	assert.Equal(t, original.SHA256, loaded.SHA256)
	assert.Equal(t, original.ETag, loaded.ETag)
	assert.Equal(t, original.Size, loaded.Size)
	assert.Equal(t, original.SourceURL, loaded.SourceURL)
	assert.True(t, original.DownloadedAt.Equal(loaded.DownloadedAt))
}

func TestNewManagerFromConfig(t *testing.T) {
	cfg := &config.Config{
		CatalogURL:   "https://example.com/c.csv",
		CatalogPath:  "/data/c.csv",
		MetadataPath: "/data/m.json",
		LockFile:     "/data/r.lock",
	}

	m := NewManagerFromConfig(cfg, config.NewTestLogger(io.Discard, "error"))
	assert.Equal(t, "/data/c.csv", m.CatalogPath())
	assert.Equal(t, "https://example.com/c.csv", m.catalogURL)
	assert.Equal(t, "/data/r.lock", m.lockPath)
}

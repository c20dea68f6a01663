package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Custom store backends
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
)

// Config holds all configuration for the label calculator
type Config struct {
	// Auth
	AuthToken string

	// Catalog config
	CatalogURL      string
	DataDir         string
	CatalogPath     string
	CatalogSkipRows int
	MetadataPath    string
	LockFile        string

	// Custom foods
	CustomStore     string
	CustomStorePath string

	// Warnings
	WarningPhase string

	// Refresh behavior
	DisableRemoteCheck bool
	IgnoreLock         bool

	// Server
	Port        string
	Environment string
}

// FileReader abstracts the filesystem for .env loading
type FileReader interface {
	Open(filename string) (io.ReadCloser, error)
	Stat(filename string) (os.FileInfo, error)
}

type osFileReader struct{}

func (osFileReader) Open(filename string) (io.ReadCloser, error) {
	return os.Open(filename)
}

func (osFileReader) Stat(filename string) (os.FileInfo, error) {
	return os.Stat(filename)
}

// Load reads configuration from a .env file, if present, and the environment
func Load() *Config {
	return LoadWithFileReader(osFileReader{})
}

// LoadWithFileReader is Load with an injectable filesystem
func LoadWithFileReader(reader FileReader) *Config {
	loadEnvFileWithReader(reader)

	dataDir := getEnv("DATA_DIR", "./data")

	store := strings.ToLower(getEnv("CUSTOM_STORE", StoreCSV))
	defaultStorePath := filepath.Join(dataDir, "alimentos_personalizados.csv")
	if store == StoreSQLite {
		defaultStorePath = filepath.Join(dataDir, "alimentos_personalizados.db")
	}

	return &Config{
		AuthToken:          getEnv("AUTH_TOKEN", "super-secret-token"),
		CatalogURL:         os.Getenv("CATALOG_URL"),
		DataDir:            dataDir,
		CatalogPath:        getEnv("CATALOG_PATH", filepath.Join(dataDir, "catalog.csv")),
		CatalogSkipRows:    getEnvInt("CATALOG_SKIP_ROWS", 2),
		MetadataPath:       getEnv("METADATA_PATH", filepath.Join(dataDir, "metadata.json")),
		LockFile:           getEnv("LOCK_FILE", filepath.Join(dataDir, "refresh.lock")),
		CustomStore:        store,
		CustomStorePath:    getEnv("CUSTOM_STORE_PATH", defaultStorePath),
		WarningPhase:       getEnv("WARNING_PHASE", "phase3"),
		DisableRemoteCheck: getEnvBool("DISABLE_REMOTE_CHECK"),
		IgnoreLock:         getEnvBool("IGNORE_LOCK"),
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENV", "production"),
	}
}

// IsDevelopment reports whether ENV=development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks the values that have a closed set of options
func (c *Config) Validate() error {
	switch c.CustomStore {
	case StoreCSV, StoreSQLite:
	default:
		return fmt.Errorf("invalid CUSTOM_STORE %q: expected %q or %q", c.CustomStore, StoreCSV, StoreSQLite)
	}
	if c.CatalogSkipRows < 0 {
		return fmt.Errorf("invalid CATALOG_SKIP_ROWS %d: must be >= 0", c.CatalogSkipRows)
	}
	return nil
}

// StoreLockFile is the lock guarding rewrites of the CSV custom store
func (c *Config) StoreLockFile() string {
	return c.CustomStorePath + ".lock"
}

// loadEnvFileWithReader sets variables from .env that are not already set,
// so values given on the command line win
func loadEnvFileWithReader(reader FileReader) {
	if _, err := reader.Stat(".env"); err != nil {
		return
	}

	f, err := reader.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return
	}

	for key, value := range values {
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && parsed
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	BridgeAddress string  `json:"bridgeAddress"`
	DatabasePath  string  `json:"databasePath"`
	DatabaseURL   string  `json:"databaseUrl"`
	Media         Media   `json:"media"`
	Watcher       Watcher `json:"watcher"`
	Gesture       Gesture `json:"gesture"`
}

// Media configuration: the directories scanned into the catalog and the
// derived-file locations.
type Media struct {
	Roots        []string `json:"roots"`
	TrashDir     string   `json:"trashDir"`
	ThumbnailDir string   `json:"thumbnailDir"`
}

// Watcher configuration for the filesystem change watcher
type Watcher struct {
	Enabled    bool `json:"enabled"`
	DebounceMs int  `json:"debounceMs"`
}

// Gesture defaults pushed into the settings table on first run
type Gesture struct {
	SwipeToClose  bool `json:"swipeToClose"`
	SwipeToReveal bool `json:"swipeToReveal"`
	DoubleTapZoom int  `json:"doubleTapZoom"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		BridgeAddress: "127.0.0.1:5600",
		DatabasePath:  "gallery.db",
		Media: Media{
			Roots:        []string{"./media"},
			TrashDir:     "./media/.trash",
			ThumbnailDir: "./media/.thumbs",
		},
		Watcher: Watcher{
			Enabled:    true,
			DebounceMs: 500,
		},
		Gesture: Gesture{
			SwipeToClose:  true,
			SwipeToReveal: true,
			DoubleTapZoom: 2,
		},
	}
}

// Load loads configuration from .env, config file, and environment, in
// increasing precedence.
func Load() (*Config, error) {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("BRIDGE_ADDRESS"); addr != "" {
		cfg.BridgeAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if roots := os.Getenv("MEDIA_ROOTS"); roots != "" {
		cfg.Media.Roots = strings.Split(roots, string(os.PathListSeparator))
	}
	if trash := os.Getenv("TRASH_DIR"); trash != "" {
		cfg.Media.TrashDir = trash
	}
	if thumbs := os.Getenv("THUMBNAIL_DIR"); thumbs != "" {
		cfg.Media.ThumbnailDir = thumbs
	}
	if enabled := os.Getenv("WATCHER_ENABLED"); enabled != "" {
		cfg.Watcher.Enabled = enabled == "true" || enabled == "1"
	}
	if debounce := os.Getenv("WATCHER_DEBOUNCE_MS"); debounce != "" {
		if ms, err := strconv.Atoi(debounce); err == nil && ms > 0 {
			cfg.Watcher.DebounceMs = ms
		}
	}

	// Ensure media directories exist and are absolute
	for i, root := range cfg.Media.Roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		cfg.Media.Roots[i] = abs
	}
	for _, dir := range []*string{&cfg.Media.TrashDir, &cfg.Media.ThumbnailDir} {
		if err := os.MkdirAll(*dir, 0755); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, err
		}
		*dir = abs
	}

	return cfg, nil
}

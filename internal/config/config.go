package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-ini/ini"

	"github.com/lumipallolabs/shr/internal/report"
	"github.com/lumipallolabs/shr/internal/scanner"
	"github.com/lumipallolabs/shr/internal/units"
)

// Config holds all application configuration
type Config struct {
	Workers     int
	MaxDepth    int
	FollowLinks bool
	Strategy    string

	Format string
	Units  string

	CacheDir  string
	HistoryDB string
	// RecordHistory logs plain du/json runs too; the viewer always records
	RecordHistory bool
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Workers:     runtime.NumCPU(),
		MaxDepth:    -1,
		FollowLinks: true,
		Strategy:    scanner.StrategyPool.String(),
		Format:      report.FormatDU.String(),
		Units:       units.ModeSI.String(),
		CacheDir:    filepath.Join(userDir(os.UserCacheDir), "shr"),
		HistoryDB:   filepath.Join(userDir(os.UserConfigDir), "shr", "history.db"),
	}
}

// DefaultPath returns ~/.config/shr/config.ini or the platform equivalent
func DefaultPath() string {
	return filepath.Join(userDir(os.UserConfigDir), "shr", "config.ini")
}

func userDir(fn func() (string, error)) string {
	if dir, err := fn(); err == nil {
		return dir
	}
	return os.TempDir()
}

// Load layers defaults, the INI file at path and SHR_* environment
// variables. A missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if required || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	secScan := f.Section("scan")
	c.Workers = secScan.Key("workers").MustInt(c.Workers)
	c.MaxDepth = secScan.Key("max_depth").MustInt(c.MaxDepth)
	c.FollowLinks = secScan.Key("follow_links").MustBool(c.FollowLinks)
	c.Strategy = secScan.Key("strategy").MustString(c.Strategy)

	secOut := f.Section("output")
	c.Format = secOut.Key("format").MustString(c.Format)
	c.Units = secOut.Key("units").MustString(c.Units)

	secStorage := f.Section("storage")
	c.CacheDir = ExpandPath(secStorage.Key("cache_dir").MustString(c.CacheDir))
	c.HistoryDB = ExpandPath(secStorage.Key("history_db").MustString(c.HistoryDB))
	c.RecordHistory = secStorage.Key("record_history").MustBool(c.RecordHistory)
	return nil
}

func (c *Config) loadEnv() {
	c.Workers = getEnvInt("SHR_WORKERS", c.Workers)
	c.MaxDepth = getEnvInt("SHR_MAX_DEPTH", c.MaxDepth)
	c.FollowLinks = getEnvBool("SHR_FOLLOW_LINKS", c.FollowLinks)
	c.Strategy = getEnv("SHR_STRATEGY", c.Strategy)
	c.Units = getEnv("SHR_UNITS", c.Units)
	c.CacheDir = ExpandPath(getEnv("SHR_CACHE_DIR", c.CacheDir))
	c.HistoryDB = ExpandPath(getEnv("SHR_HISTORY_DB", c.HistoryDB))
	c.RecordHistory = getEnvBool("SHR_RECORD_HISTORY", c.RecordHistory)
}

// ScanOptions converts the scan settings
func (c *Config) ScanOptions() (scanner.Options, error) {
	strategy, err := scanner.ParseStrategy(c.Strategy)
	if err != nil {
		return scanner.Options{}, err
	}
	return scanner.Options{
		MaxDepth:    c.MaxDepth,
		FollowLinks: c.FollowLinks,
		Workers:     c.Workers,
		Strategy:    strategy,
	}, nil
}

// Validate checks every enumerated setting
func (c *Config) Validate() error {
	if _, err := c.ScanOptions(); err != nil {
		return err
	}
	if _, err := report.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := units.ParseMode(c.Units); err != nil {
		return err
	}
	return nil
}

// ExpandPath expands a leading ~ and cleans the path
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

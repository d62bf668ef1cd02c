package jetdb

import (
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/logger"
)

// ColumnOrder selects how a table's columns are iterated: DATA
// (physical storage position) or DISPLAY (the UI's display index),
// per spec.md §6.3.
type ColumnOrder int

const (
	ColumnOrderData ColumnOrder = iota
	ColumnOrderDisplay
)

// DatabaseConfig carries every environment/configuration knob spec.md
// §6.3 names, mirroring the teacher's explicit-struct style
// (manager.BufferPoolConfig) rather than package-level mutable
// defaults (spec.md §9 DESIGN NOTES: "Global mutable defaults").
type DatabaseConfig struct {
	Timezone *time.Location
	Charset  string

	ColumnOrder  ColumnOrder
	UseBigIndex  bool
	AutoSync     bool

	Codec            pagestore.PageCodec
	VerifyChecksums  bool
	Compression      pagestore.CompressionKind

	Logger *logrus.Logger

	// ErrorHandler intercepts per-row decode failures during a scan
	// (spec.md §7); nil defaults to RethrowErrorHandler.
	ErrorHandler ErrorHandler
	// LinkResolver opens a linked table's target database (spec.md
	// §4.8); nil leaves linked tables unusable (GetTable returns
	// ErrLinkResolverRequired).
	LinkResolver LinkResolver
}

// DefaultConfig builds a DatabaseConfig from the process environment,
// the one escape hatch spec.md §9 allows for "global mutable
// defaults": everything else is passed explicitly by the caller.
func DefaultConfig() DatabaseConfig {
	log, err := logger.New(logger.Config{Level: "info"})
	if err != nil {
		log = logrus.StandardLogger()
	}
	return DatabaseConfig{
		Timezone:     time.Local,
		ColumnOrder:  ColumnOrderData,
		Logger:       log,
		ErrorHandler: RethrowErrorHandler{},
	}
}

// configFile is the subset of DatabaseConfig that makes sense as a
// TOML side-file, per SPEC_FULL.md's ambient-stack section.
type configFile struct {
	UseBigIndex bool   `toml:"use_big_index"`
	AutoSync    bool   `toml:"auto_sync"`
	Charset     string `toml:"charset"`
	Timezone    string `toml:"timezone"`
}

// LoadConfigFile reads an optional TOML side-file and applies its
// fields onto base, returning the merged config. A missing file is
// not an error; base is returned unchanged.
func LoadConfigFile(path string, base DatabaseConfig) (DatabaseConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return base, errors.Wrapf(err, "jetdb: read config file %s", path)
	}
	var cf configFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return base, errors.Wrapf(err, "jetdb: parse config file %s", path)
	}
	base.UseBigIndex = cf.UseBigIndex
	base.AutoSync = cf.AutoSync
	if cf.Charset != "" {
		base.Charset = cf.Charset
	}
	if cf.Timezone != "" {
		loc, err := time.LoadLocation(cf.Timezone)
		if err != nil {
			return base, errors.Wrapf(err, "jetdb: config file %s: bad timezone %q", path, cf.Timezone)
		}
		base.Timezone = loc
	}
	return base, nil
}

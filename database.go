// Package jetdb is the facade of the Jet (MDB/ACCDB) read/write
// engine: Database ties together page I/O, the system catalog, and
// the table manager behind the operations spec.md §4.8 names.
package jetdb

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jetaccess/jetdb/internal/catalog"
	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/internal/record"
	"github.com/jetaccess/jetdb/internal/table"
	dblogger "github.com/jetaccess/jetdb/logger"
)

// ErrLinkResolverRequired is returned by GetTable when a row names a
// linked table but DatabaseConfig.LinkResolver is nil.
var ErrLinkResolverRequired = errors.New("jetdb: linked table requires a configured LinkResolver")

// Database is a single open Jet file: the page channel, the format
// dialect detected from its header, the system catalog, and caches
// for already-opened tables and already-resolved linked databases.
// Not safe for concurrent use, per spec.md §5's single-writer model.
type Database struct {
	path    string
	file    *os.File
	channel *pagestore.Channel
	format  jetformat.JetFormat
	config  DatabaseConfig

	cat *catalog.Catalog

	tables map[string]*table.Table
	linked map[string]*Database

	log *logrus.Entry
}

// Open maps path, detects its Jet dialect from page 0, and opens it
// read-only if the file is not writable or the format's own
// ReadOnly bit is set (spec.md §4.8).
func Open(path string, cfg DatabaseConfig) (*Database, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	readOnly := false
	if err != nil {
		readOnly = true
		f, err = os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return nil, &IoError{Op: "open " + path, Err: err}
		}
	}
	return openFile(path, f, readOnly, cfg)
}

func openFile(path string, f *os.File, readOnly bool, cfg DatabaseConfig) (*Database, error) {
	header := make([]byte, 4096)
	n, err := f.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, &IoError{Op: "read header of " + path, Err: err}
	}
	if n < 24 {
		f.Close()
		return nil, &FormatError{Reason: "file too small to contain a Jet header"}
	}
	version, err := jetformat.DetectVersion(header)
	if err != nil {
		f.Close()
		return nil, &FormatError{Reason: "unrecognized Jet file header", Err: err}
	}
	format, ok := jetformat.ByVersion(version)
	if !ok {
		f.Close()
		return nil, &FormatError{Reason: "unsupported Jet version " + version.String()}
	}

	log := cfg.Logger
	if log == nil {
		log, _ = dblogger.New(dblogger.Config{Level: "info"})
		if log == nil {
			log = logrus.StandardLogger()
		}
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = RethrowErrorHandler{}
	}

	codec := buildCodec(cfg, format)
	ch, err := pagestore.Open(f, pagestore.Options{
		PageSize: format.PageSize,
		ReadOnly: readOnly || format.ReadOnly,
		AutoSync: cfg.AutoSync,
		Codec:    codec,
		Logger:   log,
	})
	if err != nil {
		f.Close()
		return nil, &IoError{Op: "mount page channel for " + path, Err: err}
	}

	cat, err := catalog.Open(ch, format, log)
	if err != nil {
		f.Close()
		return nil, &FormatError{Reason: "cannot read MSysObjects", Err: err}
	}

	return &Database{
		path:    path,
		file:    f,
		channel: ch,
		format:  format,
		config:  cfg,
		cat:     cat,
		tables:  make(map[string]*table.Table),
		linked:  make(map[string]*Database),
		log:     log.WithField("database", path),
	}, nil
}

// buildCodec composes the configured encryption/compression codec
// with an outer checksum codec when VerifyChecksums is set. On write a
// page is compressed first, then encrypted, then checksummed.
func buildCodec(cfg DatabaseConfig, format jetformat.JetFormat) pagestore.PageCodec {
	var chain pagestore.ChainCodec
	if cfg.Compression != pagestore.CompressionNone {
		chain = append(chain, pagestore.CompressCodec{Kind: cfg.Compression, PageSize: format.PageSize})
	}
	if cfg.Codec != nil {
		chain = append(chain, cfg.Codec)
	}
	if cfg.VerifyChecksums {
		chain = append(chain, pagestore.ChecksumCodec{})
	}
	if len(chain) == 0 {
		return pagestore.NoopCodec{}
	}
	if len(chain) == 1 {
		return chain[0]
	}
	return chain
}

// Create builds a new, empty database at path: a version-tagged page
// 0 header and an MSysObjects catalog page holding only its own
// self-describing row, then opens it.
// Real Access tooling ships this as a binary "empty database"
// template resource; this engine has no such template to copy (none
// survived the retrieval pack, see DESIGN.md), so it constructs the
// minimum valid skeleton programmatically instead.
func Create(path string, version jetformat.Version, cfg DatabaseConfig) (*Database, error) {
	format, ok := jetformat.ByVersion(version)
	if !ok {
		return nil, &FormatError{Reason: "unsupported Jet version " + version.String()}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, &IoError{Op: "create " + path, Err: err}
	}
	if err := f.Truncate(int64(format.PageSize) * 3); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &IoError{Op: "truncate " + path, Err: err}
	}

	log := cfg.Logger
	if log == nil {
		log, _ = dblogger.New(dblogger.Config{Level: "info"})
		if log == nil {
			log = logrus.StandardLogger()
		}
	}
	ch, err := pagestore.Open(f, pagestore.Options{PageSize: format.PageSize, Logger: log})
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, &IoError{Op: "mount new page channel", Err: err}
	}

	header := ch.CreatePageBuffer()
	header[0] = 0x00
	header[1] = 0x01
	header[20] = versionMagic(version)
	if err := ch.WritePage(header, 0); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &IoError{Op: "write header page", Err: err}
	}

	objDef := catalog.NewSystemObjectsDefinition()
	buf := ch.CreatePageBuffer()
	objDef.Encode(buf, format)
	if err := ch.WritePage(buf, catalog.SystemObjectsPage); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &IoError{Op: "write MSysObjects page", Err: err}
	}

	objects, err := table.Open(ch, format, catalog.SystemObjectsPage, log)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.Wrap(err, "jetdb: open freshly-created MSysObjects")
	}
	_, err = objects.AddRow([]table.Write{
		table.Val(column.Value{Kind: column.KindI32, I32: int32(catalog.SystemObjectsPage)}),
		table.Val(column.Value{Kind: column.KindText, Text: "MSysObjects"}),
		table.Val(column.Value{Kind: column.KindI16, I16: int16(catalog.TypeTable)}),
		table.Val(column.Value{Kind: column.KindI32, I32: catalog.FlagSystem}),
		table.Val(column.Value{Kind: column.KindI32, I32: -1}),
		table.Val(column.Null),
		table.Val(column.Null),
	})
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.Wrap(err, "jetdb: seed MSysObjects catalog row")
	}

	f.Close()
	return Open(path, cfg)
}

// versionMagic is the byte DetectVersion reads back at page0[20].
func versionMagic(v jetformat.Version) byte {
	switch v {
	case jetformat.VersionJet3:
		return 0x00
	case jetformat.VersionJet4:
		return 0x01
	case jetformat.VersionJet12:
		return 0x02
	case jetformat.VersionJet14:
		return 0x03
	default:
		return 0xFF
	}
}

// Close releases the underlying file handle and closes every linked
// database this Database resolved, per spec.md §5's "closing the
// parent cascades close to all linked children".
func (d *Database) Close() error {
	for _, child := range d.linked {
		_ = child.Close()
	}
	return d.file.Close()
}

// Format reports the detected Jet dialect.
func (d *Database) Format() jetformat.JetFormat { return d.format }

// ListTables returns every user table's catalog info, excluding
// system tables unless includeSystem is set.
func (d *Database) ListTables(includeSystem bool) ([]catalog.ObjectInfo, error) {
	infos, err := d.cat.ListTables(includeSystem)
	if err != nil {
		return nil, errors.Wrap(err, "jetdb: list tables")
	}
	return infos, nil
}

// GetTable looks up name in the system catalog and opens it, per
// spec.md §4.8. A linked-table row delegates to config.LinkResolver,
// caching one *Database per target file name. Returns nil (not an
// error) when the row is a non-table type or a system object, unless
// includeSystem is true — mirroring spec.md's "returns null" wording
// with Go's (value, error) shape: (nil, nil).
func (d *Database) GetTable(name string, includeSystem bool) (*table.Table, error) {
	if t, ok := d.tables[name]; ok {
		return t, nil
	}
	info, ok, err := d.cat.FindByName(name)
	if err != nil {
		return nil, errors.Wrapf(err, "jetdb: look up table %q", name)
	}
	if !ok {
		return nil, nil
	}
	if info.IsSystem() && !includeSystem {
		return nil, nil
	}
	switch info.Type {
	case catalog.TypeTable:
		t, _, err := d.cat.OpenTable(name, d.config.Logger)
		if err != nil {
			return nil, errors.Wrapf(err, "jetdb: open table %q", name)
		}
		d.tables[name] = t
		return t, nil
	case catalog.TypeLinkedTable:
		linkedDB, err := d.resolveLink(info.LinkedDBName)
		if err != nil {
			return nil, err
		}
		return linkedDB.GetTable(info.LinkedTableName, includeSystem)
	default:
		return nil, nil
	}
}

// DateValue builds a SHORT_DATE_TIME column.Value from t, interpreting
// t in config.Timezone (spec.md §6.3). Callers writing a DATE column
// through AddRow/UpdateRow should build the value with this rather
// than setting column.Value.F64 directly.
func (d *Database) DateValue(t time.Time) column.Value {
	return column.ValueFromTime(t, d.timezone())
}

// Time converts a decoded KindDate value back to a time.Time in
// config.Timezone.
func (d *Database) Time(v column.Value) time.Time {
	return v.Time(d.timezone())
}

func (d *Database) timezone() *time.Location {
	if d.config.Timezone != nil {
		return d.config.Timezone
	}
	return time.Local
}

func (d *Database) resolveLink(dbName string) (*Database, error) {
	if child, ok := d.linked[dbName]; ok {
		return child, nil
	}
	if d.config.LinkResolver == nil {
		return nil, ErrLinkResolverRequired
	}
	child, err := d.config.LinkResolver.ResolveLink(dbName)
	if err != nil {
		return nil, errors.Wrapf(err, "jetdb: resolve linked database %q", dbName)
	}
	d.linked[dbName] = child
	return child, nil
}

// ForEachRow scans tableName's rows, routing per-row decode failures
// through config.ErrorHandler instead of aborting outright, per
// spec.md §7.
func (d *Database) ForEachRow(tableName string, fn func(values []column.Value) error) error {
	t, err := d.GetTable(tableName, true)
	if err != nil {
		return err
	}
	if t == nil {
		return &LookupError{Reason: "identifier missing", Name: tableName}
	}
	return t.Scan(func(id record.RowId, values []column.Value, rowErr error) (bool, error) {
		if rowErr != nil {
			cont, err := d.config.ErrorHandler.HandleRowError(tableName, id, rowErr)
			return cont, err
		}
		return true, fn(values)
	})
}

package jetdb

import "path/filepath"

// LinkResolver opens the database a linked table (MSysObjects Type ==
// LINKED_TABLE) points at, per spec.md §4.8. Database caches one
// resolved *Database per (dbName) pair and closes them when the
// parent Database closes.
type LinkResolver interface {
	ResolveLink(dbName string) (*Database, error)
}

// LocalFileLinkResolver resolves a linked table's target by treating
// dbName as a path relative to BaseDir, the simplest LinkResolver and
// the one DefaultConfig would need to opt into explicitly (it is not
// wired as the zero-value default, since resolving arbitrary paths
// from file contents without the caller's consent is a filesystem
// side effect spec.md §4.8 does not make mandatory).
type LocalFileLinkResolver struct {
	BaseDir string
	Config  DatabaseConfig
}

func (r LocalFileLinkResolver) ResolveLink(dbName string) (*Database, error) {
	path := dbName
	if r.BaseDir != "" {
		path = filepath.Join(r.BaseDir, dbName)
	}
	return Open(path, r.Config)
}

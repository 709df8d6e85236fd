// Package sqlite opens SQLite databases for store exports.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, no CGO needed
//   - -tags cgo_sqlite with CGO_ENABLED=1: mattn/go-sqlite3
//
// Use Open() instead of sql.Open() so the driver for the build is used.
package sqlite

import "database/sql"

// IsCGO reports whether the CGO driver is compiled in.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database, creating the file if needed.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens a SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open("file:" + path + "?mode=ro")
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	Package    string `json:"package"`
	Version    string `json:"version,omitempty"`
}

// GetInfo returns the driver configuration. When db is non-nil the
// library version reported by sqlite_version() is included.
func GetInfo(db *sql.DB) Info {
	info := Info{DriverName: driverName, DriverType: driverType, Package: driverPackage}
	if db != nil {
		_ = db.QueryRow(`SELECT sqlite_version()`).Scan(&info.Version)
	}
	return info
}

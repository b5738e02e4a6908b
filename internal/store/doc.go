// Package store keeps imported datasets in a SQLite database.
//
// The catalog table is managed by golang-migrate from migrations embedded in
// the binary. ImportCSV parses with go-gg's string table coercion and
// writes each dataset to its own table, which Source hands to the sqlsource
// backend for rendering.
package store

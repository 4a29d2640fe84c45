// Package sqlite provides a lead.Source stored in a local SQLite database
// using github.com/mattn/go-sqlite3.
package sqlite

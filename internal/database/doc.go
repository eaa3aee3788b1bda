// Package database manages the TimescaleDB connection pool used by the
// trade and ticker writers, and creates their tables on startup.
package database

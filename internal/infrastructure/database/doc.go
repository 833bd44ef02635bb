// Package database provides SQLite connectivity for AgroLink Core.
//
// It wraps database/sql with:
//   - Connection setup (WAL mode, busy timeout, foreign keys)
//   - Embedded schema migrations applied at startup
//   - Health checks for the gateway's readiness reporting
//
// # Concurrency
//
// SQLite supports a single writer; the pool is capped at one open
// connection. WAL mode keeps readers unblocked during writes, which is
// what lets telemetry ingestion and command polling proceed in parallel.
//
// # Usage
//
//	db, err := database.Open(database.Config{Path: "./data/agrolink.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database

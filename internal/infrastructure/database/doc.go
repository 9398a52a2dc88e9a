// Package database provides SQLite connectivity for the weather station's
// cycle and fault history.
//
// Open configures WAL mode and a busy timeout so the HTTP API can read
// history while the telemetry loop writes it. Schema changes are versioned
// migrations (YYYYMMDD_HHMMSS_name.up.sql / .down.sql) registered from an
// embedded filesystem by the top-level migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database

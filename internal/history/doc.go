// Package history persists the telemetry loop's cycle and fault log in
// SQLite. The tables are created by the embedded migrations in the
// migrations package.
package history

// Package database provides SQLite-based storage for Ulcare.
//
// The IdentityStore keeps the patient identity (name and gender code)
// between runs so results can be attributed without asking every time.
//
// Design decision: SQLite via modernc.org/sqlite. The database is a single
// file under the XDG data directory and the driver is CGO-free, which keeps
// cross-compilation simple for the CLI.
package database

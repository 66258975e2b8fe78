// Package database keeps the dead-letter ledger: records the pipeline could
// not transcribe, stored in sqlite through GORM so they can be inspected and
// replayed.
//
// The schema is owned by versioned SQL migrations embedded in the binary and
// applied with golang-migrate when the component starts.
package database

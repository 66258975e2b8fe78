// Package coordinator drives each record through the processing state
// machine and isolates per-record failures.
//
// A record moves Received → Staged → Processed → Emitted. A record without
// usable audio ends Skipped. Any error in staging, an engine call or the
// emit ends it Failed; it is then logged with its audio id and error kind,
// dead-lettered when a sink is configured, and Dropped. Nothing partial is
// ever emitted, and one record's failure never affects another.
//
// Either engine port may be nil. With neither wired a record passes through
// unchanged.
package coordinator

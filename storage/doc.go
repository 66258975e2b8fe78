// Package storage archives transcoded audio in object storage.
//
// Backends register a factory under their provider name and are selected by
// Config.Provider:
//
//   - storage/local: a directory on the local filesystem
//   - storage/s3: Amazon S3 and S3-compatible services such as MinIO
//
// Import the backend package for its side effect, then build the archive:
//
//	import _ "github.com/kbukum/audiotranscriber/storage/local"
//
//	store, err := storage.New(cfg, log)
//
// Any Storage satisfies coordinator.Archive.
package storage

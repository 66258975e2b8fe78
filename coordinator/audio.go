package coordinator

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/mutator"
	"github.com/kbukum/audiotranscriber/record"
)

const originalPathField = "original_path"

// resolveAudio returns the record's inline audio, or else its audio path.
// A nil byte slice is an empty payload, not missing audio. A record with
// neither is MISSING_AUDIO.
func resolveAudio(rec *record.Record, f mutator.Fields) ([]byte, string, error) {
	path, _ := rec.GetString(f.InputPath)
	if v, ok := rec.Get(f.InputContent); ok && v != nil {
		if data, ok := rec.GetBytes(f.InputContent); ok {
			if data == nil {
				data = []byte{}
			}
			return data, path, nil
		}
	}
	if path != "" {
		return nil, path, nil
	}
	return nil, "", errors.MissingAudio(f.InputContent, "")
}

// audioID identifies a record in logs: its audio path when it has one.
func audioID(rec *record.Record, f mutator.Fields, index int) string {
	if rec != nil {
		if p, ok := rec.GetString(f.InputPath); ok && p != "" {
			return p
		}
	}
	return "record-" + strconv.Itoa(index)
}

// sourceLabel names the audio in the transcription banner: the base name of
// its path, or its audio id for inline-only records.
func sourceLabel(path, id string) string {
	if path != "" {
		return baseName(path)
	}
	return id
}

func baseName(p string) string {
	return filepath.Base(p)
}

// fingerprint keys inline audio by content hash and path-only records by
// path.
func fingerprint(rec *record.Record, f mutator.Fields) string {
	if data, ok := rec.GetBytes(f.InputContent); ok {
		sum := sha256.Sum256(data)
		return "sha256:" + hex.EncodeToString(sum[:])
	}
	p, _ := rec.GetString(f.InputPath)
	return "path:" + p
}

// removeAudio deletes the input audio and any original recording. Failures
// are logged only.
func (c *Coordinator) removeAudio(log *logger.Logger, rec *record.Record) {
	for _, field := range []string{c.opts.Fields.InputPath, originalPathField} {
		p, ok := rec.GetString(field)
		if !ok || p == "" {
			continue
		}
		if err := os.Remove(p); err != nil {
			if !os.IsNotExist(err) {
				log.WithError(err).Warn("failed to remove audio file", logger.Fields("file", p))
			}
			continue
		}
		log.Debug("removed audio file", logger.Fields("file", p))
	}
}

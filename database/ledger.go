package database

import (
	"context"
	"embed"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/audiotranscriber/coordinator"
	apperrors "github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/record"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsPath is the directory inside the embedded migrations FS.
const MigrationsPath = "migrations"

// Ledger stores dead-lettered records. It satisfies coordinator.DeadLetter.
type Ledger struct {
	db  *DB
	log *logger.Logger
}

var _ coordinator.DeadLetter = (*Ledger)(nil)

// NewLedger creates a ledger over an open database whose schema is migrated.
func NewLedger(db *DB, log *logger.Logger) *Ledger {
	return &Ledger{db: db, log: log.WithComponent("ledger")}
}

// DeadLetter inserts one failed record.
func (l *Ledger) DeadLetter(ctx context.Context, letter coordinator.Letter) error {
	body, err := json.Marshal(letter.Record)
	if err != nil {
		return apperrors.Internal(err).WithDetail("operation", "encode dead letter")
	}
	failedAt := letter.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now()
	}
	entry := DeadLetterEntry{
		Tag:      letter.Tag,
		AudioID:  letter.AudioID,
		Kind:     string(letter.Kind),
		Reason:   letter.Reason,
		Record:   string(body),
		FailedAt: failedAt.UTC(),
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return FromDatabase(err, "insert dead letter")
	}
	l.log.Debug("Dead letter stored", logger.Fields(
		logger.FieldAudioID, letter.AudioID, logger.FieldErrorKind, string(letter.Kind), "id", entry.ID.String(),
	))
	return nil
}

// ListOptions filters List. A zero Limit returns every entry.
type ListOptions struct {
	Kind  apperrors.ErrorCode
	Limit int
}

// List returns entries oldest first.
func (l *Ledger) List(ctx context.Context, opts ListOptions) ([]DeadLetterEntry, error) {
	q := l.db.WithContext(ctx).Model(&DeadLetterEntry{}).Order("failed_at ASC").Order("created_at ASC")
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var entries []DeadLetterEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, FromDatabase(err, "list dead letters")
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.WithContext(ctx).Model(&DeadLetterEntry{}).Count(&n).Error; err != nil {
		return 0, FromDatabase(err, "count dead letters")
	}
	return n, nil
}

// Remove deletes an entry once it has been replayed.
func (l *Ledger) Remove(ctx context.Context, id uuid.UUID) error {
	res := l.db.WithContext(ctx).Where("id = ?", id).Delete(&DeadLetterEntry{})
	if res.Error != nil {
		return FromDatabase(res.Error, "remove dead letter")
	}
	if res.RowsAffected == 0 {
		return FromDatabase(gorm.ErrRecordNotFound, "remove dead letter")
	}
	return nil
}

// Letter rebuilds the coordinator letter. binaryFields names the record
// fields that were base64 encoded on the way in, usually the content field.
func (e DeadLetterEntry) Letter(binaryFields ...string) (coordinator.Letter, error) {
	rec, err := record.DecodeJSON([]byte(e.Record), binaryFields...)
	if err != nil {
		return coordinator.Letter{}, err
	}
	return coordinator.Letter{
		Tag:      e.Tag,
		AudioID:  e.AudioID,
		Kind:     apperrors.ErrorCode(e.Kind),
		Reason:   e.Reason,
		Record:   rec,
		FailedAt: e.FailedAt,
	}, nil
}

package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel carries the identity and insert time shared by ledger tables.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// BeforeCreate generates a UUID if not already set.
func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// DeadLetterEntry is one failed record in the dead_letters table. Record
// holds the record as JSON, binary fields base64 encoded.
type DeadLetterEntry struct {
	BaseModel
	Tag      string    `gorm:"not null"`
	AudioID  string    `gorm:"not null"`
	Kind     string    `gorm:"not null;index"`
	Reason   string    `gorm:"not null"`
	Record   string    `gorm:"not null"`
	FailedAt time.Time `gorm:"not null;index"`
}

// TableName pins the table created by the migrations.
func (DeadLetterEntry) TableName() string { return "dead_letters" }

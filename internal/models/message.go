package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxMessageLength bounds warble text.
const MaxMessageLength = 140

// Message is an individual warble. Each message has exactly one author.
type Message struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Text      string    `json:"text" gorm:"size:140;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

type Like struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_message"`
	MessageID uuid.UUID `json:"message_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_message"`
	CreatedAt time.Time `json:"created_at"`

	User    User    `json:"-" gorm:"foreignKey:UserID"`
	Message Message `json:"-" gorm:"foreignKey:MessageID"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (Message) TableName() string {
	return "messages"
}

func (Like) TableName() string {
	return "likes"
}

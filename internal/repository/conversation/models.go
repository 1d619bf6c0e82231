package conversation

import (
	"time"

	"github.com/iyunix/go-juri/internal/domain"
)

// ConversationRecord is the table row behind domain.Conversation.
type ConversationRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string `gorm:"size:200;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`

	Messages []MessageRecord `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (ConversationRecord) TableName() string {
	return "conversations"
}

// MessageRecord is the table row behind domain.Message. Position keeps insertion order.
// Message ids are unique within a conversation only.
type MessageRecord struct {
	ConversationID string `gorm:"primaryKey;size:64"`
	ID             string `gorm:"primaryKey;size:64"`
	Position       int    `gorm:"not null"`
	Origin         string `gorm:"size:16;not null"`
	Text           string `gorm:"type:text"`
	Timestamp      time.Time
	IsWelcome      bool
	IsError        bool
	Edited         bool
	EditedAt       *time.Time
	Regenerated    bool
	Endpoint       string `gorm:"size:16"`
	FileName       string `gorm:"size:255"`
}

func (MessageRecord) TableName() string {
	return "conversation_messages"
}

func toRecord(conv *domain.Conversation) *ConversationRecord {
	rec := &ConversationRecord{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]MessageRecord, 0, len(conv.Messages)),
	}
	for i, m := range conv.Messages {
		rec.Messages = append(rec.Messages, MessageRecord{
			ID:             m.ID,
			ConversationID: conv.ID,
			Position:       i,
			Origin:         m.Origin.String(),
			Text:           m.Text,
			Timestamp:      m.Timestamp,
			IsWelcome:      m.IsWelcome,
			IsError:        m.IsError,
			Edited:         m.Edited,
			EditedAt:       m.EditedAt,
			Regenerated:    m.Regenerated,
			Endpoint:       string(m.Endpoint),
			FileName:       m.AttachedFileName,
		})
	}
	return rec
}

func (rec *ConversationRecord) toDomain() (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        rec.ID,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Messages:  make([]*domain.Message, 0, len(rec.Messages)),
	}
	for _, m := range rec.Messages {
		var origin domain.Origin
		if err := origin.UnmarshalText([]byte(m.Origin)); err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, &domain.Message{
			ID:               m.ID,
			Origin:           origin,
			Text:             m.Text,
			Timestamp:        m.Timestamp,
			IsWelcome:        m.IsWelcome,
			IsError:          m.IsError,
			Edited:           m.Edited,
			EditedAt:         m.EditedAt,
			Regenerated:      m.Regenerated,
			Endpoint:         domain.Endpoint(m.Endpoint),
			AttachedFileName: m.FileName,
		})
	}
	return conv, nil
}

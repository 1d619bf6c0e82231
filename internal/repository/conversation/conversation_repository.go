package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/iyunix/go-juri/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidConversation  = errors.New("invalid conversation")
)

type gormConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepository{db: db}
}

// ListAll returns every conversation, oldest first, with messages in order.
func (r *gormConversationRepository) ListAll(ctx context.Context) ([]*domain.Conversation, error) {
	var records []ConversationRecord
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		log.Printf("[ConversationRepository] Database error listing conversations: %v", err)
		return nil, errors.New("database error fetching conversations")
	}

	out := make([]*domain.Conversation, 0, len(records))
	for i := range records {
		conv, err := records[i].toDomain()
		if err != nil {
			log.Printf("[ConversationRepository] Skipping conversation %s with invalid data: %v", records[i].ID, err)
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

func (r *gormConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("invalid conversation ID")
	}

	var record ConversationRecord
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		log.Printf("[ConversationRepository] FindByID database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return record.toDomain()
}

// Save upserts the conversation row and replaces its messages in one transaction.
func (r *gormConversationRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	if err := validateConversation(conv); err != nil {
		log.Printf("[ConversationRepository] Validation failed: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidConversation, err)
	}

	rec := toRecord(conv)
	messages := rec.Messages
	rec.Messages = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
		}).Create(rec).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&MessageRecord{}).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		return tx.CreateInBatches(messages, 100).Error
	})
	if err != nil {
		log.Printf("[ConversationRepository] Database error saving conversation %s: %v", conv.ID, err)
		return errors.New("database error saving conversation")
	}

	log.Printf("[ConversationRepository] Conversation %s saved with %d messages", conv.ID, len(messages))
	return nil
}

func (r *gormConversationRepository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("invalid conversation ID")
	}

	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&MessageRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&ConversationRecord{})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		log.Printf("[ConversationRepository] Database error deleting conversation %s: %v", id, err)
		return errors.New("database error deleting conversation")
	}
	if affected == 0 {
		return ErrConversationNotFound
	}

	log.Printf("[ConversationRepository] Conversation deleted: %s", id)
	return nil
}

func (r *gormConversationRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&MessageRecord{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ConversationRecord{}).Error
	})
	if err != nil {
		log.Printf("[ConversationRepository] Database error deleting all conversations: %v", err)
		return errors.New("database error deleting conversations")
	}
	return nil
}

func validateConversation(conv *domain.Conversation) error {
	if conv == nil {
		return errors.New("conversation cannot be nil")
	}
	if strings.TrimSpace(conv.ID) == "" {
		return errors.New("conversation ID is required")
	}
	if len(conv.Title) > 200 {
		return errors.New("title must be 200 characters or less")
	}
	for i, m := range conv.Messages {
		if m == nil {
			return fmt.Errorf("message %d is nil", i)
		}
		if m.ID == "" {
			return fmt.Errorf("message %d has no ID", i)
		}
	}
	return nil
}

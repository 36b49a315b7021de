package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/models"

	"github.com/google/uuid"
)

const maxChatMessage = 4000

type ChatService struct {
	db *sql.DB
}

func NewChatService(db *sql.DB) *ChatService {
	return &ChatService{db: db}
}

func (s *ChatService) Post(ctx context.Context, userID, content string) (*models.ChatMessage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidArg("content is required")
	}
	if len(content) > maxChatMessage {
		return nil, invalidArg("content is limited to %d characters", maxChatMessage)
	}

	m := &models.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	err := s.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO chat_messages (id, user_id, content, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING user_id
		)
		SELECT COALESCE(u.name, '') FROM inserted i LEFT JOIN users u ON u.id = i.user_id`,
		m.ID, m.UserID, m.Content, m.CreatedAt).Scan(&m.UserName)
	if err != nil {
		return nil, storeErr("post message", err)
	}
	return m, nil
}

// Recent returns up to limit messages, oldest first. before pages backwards.
func (s *ChatService) Recent(ctx context.Context, userID string, limit int, before time.Time) ([]models.ChatMessage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if before.IsZero() {
		before = time.Now().Add(time.Minute)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, content, created_at FROM (
			SELECT m.id, m.user_id, COALESCE(u.name, '') AS user_name, m.content, m.created_at
			FROM chat_messages m
			LEFT JOIN users u ON u.id = m.user_id
			WHERE m.created_at < $1
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $2
		) recent ORDER BY created_at, id`, before, limit)
	if err != nil {
		return nil, storeErr("list messages", err)
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.UserName, &m.Content, &m.CreatedAt); err != nil {
			return nil, storeErr("list messages", err)
		}
		messages = append(messages, m)
	}
	return messages, storeErr("list messages", rows.Err())
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/google/uuid"
)

// JournalService stores private entries. Content is encrypted at rest
// when a key is configured.
type JournalService struct {
	db  *sql.DB
	key []byte
}

func NewJournalService(db *sql.DB, key string) *JournalService {
	s := &JournalService{db: db}
	if key != "" {
		s.key = []byte(key)
	}
	return s
}

// Stored content is always tagged. Rows written before tagging carry no
// prefix and are returned as they are.
const (
	encryptedPrefix = "enc:"
	plainPrefix     = "plain:"
)

func (s *JournalService) seal(content string) (string, error) {
	if s.key == nil {
		return plainPrefix + content, nil
	}
	sealed, err := utils.Encrypt(s.key, []byte(content))
	if err != nil {
		return "", fmt.Errorf("encrypt journal entry: %w", err)
	}
	return encryptedPrefix + sealed, nil
}

func (s *JournalService) open(stored string) (string, error) {
	switch {
	case strings.HasPrefix(stored, plainPrefix):
		return strings.TrimPrefix(stored, plainPrefix), nil
	case strings.HasPrefix(stored, encryptedPrefix):
		if s.key == nil {
			return "", fmt.Errorf("journal entry is encrypted but no key is configured")
		}
		plain, err := utils.Decrypt(s.key, strings.TrimPrefix(stored, encryptedPrefix))
		if err != nil {
			return "", fmt.Errorf("decrypt journal entry: %w", err)
		}
		return string(plain), nil
	}
	return stored, nil
}

func (s *JournalService) Create(ctx context.Context, userID string, req models.CreateJournalEntryRequest) (*models.JournalEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalidArg("content is required")
	}
	clientID, err := parseOptionalID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	stored, err := s.seal(req.Content)
	if err != nil {
		return nil, err
	}

	e := &models.JournalEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		ClientID:  clientID,
		CreatedAt: time.Now(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, user_id, title, content, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Title, stored, e.ClientID, e.CreatedAt)
	if err != nil {
		return nil, storeErr("create journal entry", err)
	}
	return e, nil
}

// List only ever returns the caller's own entries. Entries that cannot be
// opened are left out.
func (s *JournalService) List(ctx context.Context, userID string) ([]models.JournalEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(title, ''), content, client_id, created_at
		FROM journal_entries WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, storeErr("list journal", err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.ClientID, &e.CreatedAt); err != nil {
			return nil, storeErr("list journal", err)
		}
		if e.Content, err = s.open(e.Content); err != nil {
			utils.SafeWarn("journal: skipping entry %s: %v", e.ID, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, storeErr("list journal", rows.Err())
}

func (s *JournalService) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	entryID, err := ParseID("entryId", id)
	if err != nil {
		return err
	}
	return execOne(ctx, s.db, "journal entry",
		`DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`, entryID, userID)
}

package services

import (
	"context"
	"database/sql"

	"github.com/LovationAdmin/crm-api/models"
)

type UserService struct {
	db *sql.DB
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	userID, err := ParseID("userId", id)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = s.db.QueryRowContext(ctx, `
		SELECT id, email, name, COALESCE(totp_secret, ''), COALESCE(totp_enabled, FALSE), created_at, updated_at
		FROM users WHERE id = $1`, userID).Scan(
		&u.ID, &u.Email, &u.Name, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, storeErr("user", err)
	}
	return &u, nil
}

// List returns the team directory, used to pick assignees and grantees.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, email, name, created_at, updated_at FROM users ORDER BY name, id`)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, storeErr("list users", err)
		}
		users = append(users, u)
	}
	return users, storeErr("list users", rows.Err())
}

// PurgeExpiredSessions deletes refresh sessions past their expiry.
func (s *UserService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, storeErr("purge sessions", err)
	}
	n, err := res.RowsAffected()
	return n, storeErr("purge sessions", err)
}

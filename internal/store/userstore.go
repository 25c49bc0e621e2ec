// internal/store/userstore.go
package store

import (
	"context"
	"database/sql"
	"errors"

	apperrors "taskhub-notifier/internal/common/errors"
	"taskhub-notifier/internal/models"
)

// UserStore reads users and their notification preferences.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name,
	COALESCE(email, ''), COALESCE(whatsapp_number, ''), COALESCE(push_endpoint_arn, '')`

// FindWithContactChannel returns users reachable on at least one channel.
func (s *UserStore) FindWithContactChannel(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+userColumns+`
	FROM users
	WHERE COALESCE(email, '') <> ''
	   OR COALESCE(whatsapp_number, '') <> ''
	   OR COALESCE(push_endpoint_arn, '') <> ''
	ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewDataFetchError("users with contact channel", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.WhatsAppNumber, &u.PushEndpointARN); err != nil {
			return nil, apperrors.NewDataFetchError("scan user row", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataFetchError("iterate user rows", err)
	}
	return users, nil
}

// GetByID loads one user's contact surface.
func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
	SELECT `+userColumns+`
	FROM users
	WHERE id = $1`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.WhatsAppNumber, &u.PushEndpointARN)
	if err != nil {
		return models.User{}, apperrors.NewDataFetchError("user by id", err)
	}
	return u, nil
}

// GetPreferences loads a user's notification preferences. Users without a
// stored row fall back to all-enabled defaults.
func (s *UserStore) GetPreferences(ctx context.Context, userID string) (models.NotificationPreference, error) {
	var p models.NotificationPreference
	err := s.db.QueryRowContext(ctx, `
	SELECT whatsapp_enabled, email_enabled, push_enabled,
	       task_reminders_enabled, weekly_reports_enabled, custom_messages_enabled
	FROM notification_preferences
	WHERE user_id = $1`, userID).
		Scan(&p.Channels.WhatsApp, &p.Channels.Email, &p.Channels.Push,
			&p.Categories.TaskReminders, &p.Categories.WeeklyReports, &p.Categories.CustomMessages)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.NotificationPreference{}, apperrors.NewDataFetchError("notification preferences", err)
	}
	return p, nil
}

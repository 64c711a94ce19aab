package repository

import (
	"context"

	"github.com/camm-community/camm-server/internal/models"
)

// UserRepository stores registered community members. Reads only surface
// users who have given consent.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	LogConsent(ctx context.Context, userID int64, consentType string, granted bool) error
}

// AlertRepository stores durable alert records. Get and List return records
// joined with the subject's profile for responder display. Lookups that match
// nothing return (nil, nil) rather than an error.
type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.Alert) (int64, error)
	GetAlertByID(ctx context.Context, id int64) (*models.AlertWithSubject, error)
	ListActiveAlerts(ctx context.Context) ([]models.AlertWithSubject, error)
	UpdateAlertStatus(ctx context.Context, id int64, status models.AlertStatus, respondedBy string) (int64, error)
}

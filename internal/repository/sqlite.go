package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/camm-community/camm-server/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			full_name TEXT NOT NULL,
			phone TEXT,
			address TEXT,
			medical_info TEXT,
			emergency_contact TEXT,
			face_data_path TEXT,
			consent_given BOOLEAN NOT NULL DEFAULT 0,
			consent_timestamp DATETIME,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			alert_type TEXT NOT NULL,
			location TEXT,
			message TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			responded_by TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS consent_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			consent_type TEXT NOT NULL,
			granted BOOLEAN NOT NULL,
			timestamp DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		CREATE INDEX IF NOT EXISTS idx_alerts_user_id ON alerts(user_id);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, full_name, phone, address, medical_info, emergency_contact, face_data_path, consent_given, consent_timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.FullName, nullString(u.Phone), nullString(u.Address),
		nullString(u.MedicalInfo), nullString(u.EmergencyContact), nullString(u.FaceImagePath),
		u.ConsentGiven, nullTime(u.ConsentTimestamp), u.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("error inserting user: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, phone, address, medical_info, emergency_contact, face_data_path, consent_given, consent_timestamp, created_at
		FROM users
		WHERE id = ? AND consent_given = 1`, id)

	var u models.User
	var phone, address, medical, contact, facePath sql.NullString
	var consentAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &phone, &address, &medical, &contact, &facePath, &u.ConsentGiven, &consentAt, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning user: %w", err)
	}

	u.Phone = phone.String
	u.Address = address.String
	u.MedicalInfo = medical.String
	u.EmergencyContact = contact.String
	u.FaceImagePath = facePath.String
	if consentAt.Valid {
		u.ConsentTimestamp = &consentAt.Time
	}
	return &u, nil
}

func (s *SQLiteDB) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email = ?`, email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return true, nil
}

func (s *SQLiteDB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, full_name, phone, address, medical_info, emergency_contact, consent_given, created_at
		FROM users
		WHERE consent_given = 1
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			u                                models.User
			phone, address, medical, contact sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &phone, &address, &medical, &contact, &u.ConsentGiven, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		u.Phone = phone.String
		u.Address = address.String
		u.MedicalInfo = medical.String
		u.EmergencyContact = contact.String
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteDB) LogConsent(ctx context.Context, userID int64, consentType string, granted bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consent_logs (user_id, consent_type, granted, timestamp)
		VALUES (?, ?, ?, ?)`,
		userID, consentType, granted, time.Now())
	if err != nil {
		return fmt.Errorf("error logging consent: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CreateAlert(ctx context.Context, a *models.Alert) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (user_id, alert_type, location, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Kind, nullString(a.Location), nullString(a.Message), a.Status, a.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("error inserting alert: %w", err)
	}
	return res.LastInsertId()
}

const alertWithSubjectColumns = `
	a.id, a.user_id, a.alert_type, a.location, a.message, a.status, a.responded_by, a.created_at,
	u.full_name, u.email, u.phone, u.address, u.medical_info, u.emergency_contact`

func (s *SQLiteDB) GetAlertByID(ctx context.Context, id int64) (*models.AlertWithSubject, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+alertWithSubjectColumns+`
		FROM alerts a
		JOIN users u ON a.user_id = u.id
		WHERE a.id = ?`, id)

	a, err := scanAlertWithSubject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning alert: %w", err)
	}
	return a, nil
}

func (s *SQLiteDB) ListActiveAlerts(ctx context.Context) ([]models.AlertWithSubject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertWithSubjectColumns+`
		FROM alerts a
		JOIN users u ON a.user_id = u.id
		WHERE a.status = 'active'
		ORDER BY a.created_at DESC, a.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.AlertWithSubject
	for rows.Next() {
		a, err := scanAlertWithSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert row: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteDB) UpdateAlertStatus(ctx context.Context, id int64, status models.AlertStatus, respondedBy string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET status = ?, responded_by = ? WHERE id = ?`,
		status, nullString(respondedBy), id)
	if err != nil {
		return 0, fmt.Errorf("error updating alert status: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlertWithSubject(row rowScanner) (*models.AlertWithSubject, error) {
	var a models.AlertWithSubject
	var location, message, respondedBy sql.NullString
	var phone, address, medical, contact sql.NullString
	err := row.Scan(
		&a.ID, &a.UserID, &a.Kind, &location, &message, &a.Status, &respondedBy, &a.CreatedAt,
		&a.FullName, &a.Email, &phone, &address, &medical, &contact,
	)
	if err != nil {
		return nil, err
	}
	a.Location = location.String
	a.Message = message.String
	a.RespondedBy = respondedBy.String
	a.Phone = phone.String
	a.Address = address.String
	a.MedicalInfo = medical.String
	a.EmergencyContact = contact.String
	return &a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no account exists for the given phone or id.
	ErrNotFound = errors.New("user not found")
	// ErrNotPending indicates a conditional Pending-to-Open transition matched
	// no row, either because the account is already Open or never existed.
	ErrNotPending = errors.New("user not pending")
	// ErrExists indicates a create collided with an existing phone number.
	ErrExists = errors.New("user exists")
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, u User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	MarkPhoneVerified(ctx context.Context, phone string) error
	// CompleteRegistration performs the Pending-to-Open transition as a single
	// conditional update so two concurrent completions cannot both succeed.
	CompleteRegistration(ctx context.Context, phone string, passwordHash []byte, deviceToken string) error
	UpdateDeviceToken(ctx context.Context, id, deviceToken string) error
	UpdatePasswordByPhone(ctx context.Context, phone string, passwordHash []byte) error
	UpdatePINByPhone(ctx context.Context, phone string, pinHash []byte) error
	UpdatePINByID(ctx context.Context, id string, pinHash []byte) error
}

const userColumns = `id, phone_main, phone_verified, password_hash, pin_hash, status, is_admin,
	COALESCE(device_token, ''), COALESCE(sap_card_code, ''), COALESCE(sap_name, ''), created_at, updated_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, u User) error {
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = r.db.Exec(ctx, `INSERT INTO users
		(id, phone_main, phone_verified, password_hash, pin_hash, status, is_admin, device_token, sap_card_code, sap_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $11)
		ON CONFLICT (phone_main) DO NOTHING`,
		userID, u.PhoneMain, u.PhoneVerified, u.PasswordHash, u.PINHash, u.Status, u.IsAdmin,
		u.DeviceToken, u.CardCode, u.FullName, now)
	return err
}

// FindByPhone fetches an account by its main phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone_main = $1`, phone)
	return scanUser(row)
}

// FindByID fetches an account by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// MarkPhoneVerified flips the phone_verified flag. The account status is left
// untouched; registration completion is a separate transition.
func (r *PostgresRepository) MarkPhoneVerified(ctx context.Context, phone string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET phone_verified = TRUE, updated_at = NOW() WHERE phone_main = $1`, phone)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteRegistration moves a Pending account to Open, storing the password
// hash and the device token. The status predicate is part of the UPDATE so the
// transition happens at most once.
func (r *PostgresRepository) CompleteRegistration(ctx context.Context, phone string, passwordHash []byte, deviceToken string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users
		SET password_hash = $1, status = $2, device_token = NULLIF($3, ''), updated_at = NOW()
		WHERE phone_main = $4 AND status = $5`,
		passwordHash, StatusOpen, deviceToken, phone, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// UpdateDeviceToken stores the push-delivery routing token for an account.
func (r *PostgresRepository) UpdateDeviceToken(ctx context.Context, id, deviceToken string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET device_token = NULLIF($1, ''), updated_at = NOW() WHERE id = $2`, deviceToken, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordByPhone replaces the password hash for an account.
func (r *PostgresRepository) UpdatePasswordByPhone(ctx context.Context, phone string, passwordHash []byte) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE phone_main = $2`, passwordHash, phone)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePINByPhone replaces the PIN hash for an account.
func (r *PostgresRepository) UpdatePINByPhone(ctx context.Context, phone string, pinHash []byte) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET pin_hash = $1, updated_at = NOW() WHERE phone_main = $2`, pinHash, phone)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePINByID replaces the PIN hash for an account addressed by id.
func (r *PostgresRepository) UpdatePINByID(ctx context.Context, id string, pinHash []byte) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx,
		`UPDATE users SET pin_hash = $1, updated_at = NOW() WHERE id = $2`, pinHash, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		id        uuid.UUID
		status    string
		createdAt time.Time
		updatedAt time.Time
		u         User
	)
	err := row.Scan(&id, &u.PhoneMain, &u.PhoneVerified, &u.PasswordHash, &u.PINHash, &status,
		&u.IsAdmin, &u.DeviceToken, &u.CardCode, &u.FullName, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.ID = id.String()
	u.Status = Status(status)
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return u, nil
}

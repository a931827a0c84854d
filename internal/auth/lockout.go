package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/database"
)

const (
	MaxFailedLoginAttempts = 10
	AccountLockoutDuration = 15 * time.Minute
)

// IncrementFailedLoginAttempts bumps the counter and locks the account once
// it reaches MaxFailedLoginAttempts.
func IncrementFailedLoginAttempts(ctx context.Context, db *sqlx.DB, username string, now time.Time) error {
	_, err := db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= ? THEN ?
		        ELSE locked_until
		    END
		WHERE username = ?`,
		MaxFailedLoginAttempts, database.Timestamp(now.Add(AccountLockoutDuration)), username)
	return err
}

// ResetFailedLoginAttempts clears the counter after a successful login.
func ResetFailedLoginAttempts(ctx context.Context, db *sqlx.DB, username string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL
		WHERE username = ?`, username)
	return err
}

// IsAccountLocked checks if an account is currently locked. An expired lock is cleared.
func IsAccountLocked(ctx context.Context, db *sqlx.DB, username string, now time.Time) (bool, error) {
	var lockedUntil sql.NullString
	err := db.GetContext(ctx, &lockedUntil, "SELECT locked_until FROM users WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !lockedUntil.Valid || lockedUntil.String == "" {
		return false, nil
	}

	lockTime, err := database.ParseTime(lockedUntil.String)
	if err != nil {
		return false, nil
	}
	if now.Before(lockTime) {
		return true, nil
	}
	return false, ResetFailedLoginAttempts(ctx, db, username)
}

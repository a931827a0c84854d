package server

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"jewelpo/internal/auth"
	"jewelpo/internal/config"
)

// Seed creates the bootstrap company and a platform admin when the users
// table is empty. Nothing happens when the seed settings are incomplete.
func Seed(ctx context.Context, db *sqlx.DB, cfg config.SeedConfig, log *zap.Logger) error {
	if cfg.Company == "" || cfg.Username == "" || cfg.Password == "" {
		return nil
	}
	var users int
	if err := db.GetContext(ctx, &users, "SELECT COUNT(*) FROM users"); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		return nil
	}
	if err := auth.ValidatePasswordStrength(cfg.Password); err != nil {
		return fmt.Errorf("seed admin password: %w", err)
	}
	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO companies (company_name) VALUES (?)", cfg.Company)
	if err != nil {
		return fmt.Errorf("seed company: %w", err)
	}
	companyID, _ := res.LastInsertId()
	roles := auth.JoinRoles([]auth.Role{auth.RolePlatformAdmin, auth.RoleAdmin})
	_, err = tx.ExecContext(ctx, `INSERT INTO users (company_id, username, full_name, password_hash, roles, active)
		VALUES (?, ?, 'Administrator', ?, ?, 1)`, companyID, cfg.Username, hash, roles)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info("seeded bootstrap account", zap.String("company", cfg.Company), zap.String("username", cfg.Username))
	return nil
}

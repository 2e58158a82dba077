package seed

import (
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/cotizaciones/internal/access"
)

const adminDisplayName = "Administrador"

// User is an account created at startup if its email is not taken.
type User struct {
	Email       string
	DisplayName string
	Role        access.Role
	Password    string
}

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	Users         []User
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Run executes the startup seed in an idempotent way. Existing users are
// never modified.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	users := cfg.Users
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin := User{
			Email:       cfg.AdminEmail,
			DisplayName: adminDisplayName,
			Role:        access.RoleAdmin,
			Password:    cfg.AdminPassword,
		}
		users = append([]User{admin}, users...)
	}

	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	for _, u := range users {
		if err := ensureUser(tx, u, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureUser(tx *sql.Tx, u User, stats *Stats) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" || u.Password == "" {
		stats.Skipped++
		return nil
	}
	role, ok := access.ParseRole(string(u.Role))
	if !ok {
		return fmt.Errorf("seed user %s: unknown role %q", email, u.Role)
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check user %s existence: %w", email, err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", email, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO users (email, display_name, role, active, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`, email, u.DisplayName, string(role), true, string(hash)); err != nil {
		return fmt.Errorf("insert user %s: %w", email, err)
	}
	stats.Inserts++
	return nil
}

// Package adminctl creates administrator accounts directly in the
// database. Roles are immutable through the API, so this is the only
// way an administrator comes to exist.
package adminctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/sstoianov/liblend/internal/server/auth"
	"github.com/sstoianov/liblend/internal/server/config"
	"github.com/sstoianov/liblend/internal/server/models"
	"github.com/sstoianov/liblend/internal/server/repositories/repomanager"
)

// Seams for tests: no terminal and no live database required.
var (
	readPassword = term.ReadPassword

	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
)

type App struct {
	config *config.Config
	out    io.Writer
}

func NewApp(cfg *config.Config) *App {
	return &App{config: cfg, out: os.Stdout}
}

// Run prompts for a password and inserts the administrator account. The
// password is hashed exactly as the server does it, so the account
// works for ordinary sign-in.
func (a *App) Run(ctx context.Context, name, email string) error {
	if err := auth.ValidateName(name); err != nil {
		return err
	}
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Enter password")
	password, err := readPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if err := auth.ValidatePassword(string(password)); err != nil {
		return err
	}

	hasher := auth.NewHasher([]byte(a.config.HasherKey), auth.DefaultHasherParams())
	hash, err := hasher.Hash(string(password))
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	db, err := openDB(a.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		return fmt.Errorf("repository init error: %w", err)
	}

	user := &models.User{
		Name:          name,
		Email:         email,
		PasswordHash:  models.PasswordHash(hash),
		RefreshSecret: uuid.New(),
		Role:          models.RoleAdministrator,
	}
	if err := rm.Users(db).Insert(ctx, user); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Administrator account created")
	return nil
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/pkg/db"
)

// DefaultThemeName is reported when no theme has been saved yet
const DefaultThemeName = "default"

// ThemeRepository stores design-token themes
type ThemeRepository struct {
	db  db.Database
	now func() time.Time
}

// NewThemeRepository creates a theme repository
func NewThemeRepository(database db.Database) *ThemeRepository {
	return &ThemeRepository{db: database, now: time.Now}
}

// Active returns the active theme, or an empty default when none is saved
func (r *ThemeRepository) Active(ctx context.Context) (entities.Theme, error) {
	query := `SELECT name, tokens FROM themes WHERE is_active = ` + r.trueLiteral() + ` ORDER BY created_at DESC LIMIT 1`
	row := r.db.QueryRow(ctx, query)
	if row == nil {
		return entities.Theme{}, db.ErrNoDatabase
	}

	var (
		theme  entities.Theme
		tokens sql.NullString
	)
	if err := row.Scan(&theme.Name, &tokens); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Theme{Name: DefaultThemeName, Tokens: map[string]string{}}, nil
		}
		return entities.Theme{}, fmt.Errorf("failed to load active theme: %w", err)
	}
	theme.Tokens = map[string]string{}
	if tokens.Valid && tokens.String != "" {
		if err := json.Unmarshal([]byte(tokens.String), &theme.Tokens); err != nil {
			return entities.Theme{}, fmt.Errorf("failed to decode theme tokens: %w", err)
		}
	}
	return theme, nil
}

// Exists reports whether a theme name is taken
func (r *ThemeRepository) Exists(ctx context.Context, name string) (bool, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM themes WHERE name = %s`, r.db.Dialect().Placeholder(1))
	row := r.db.QueryRow(ctx, query, name)
	if row == nil {
		return false, db.ErrNoDatabase
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check theme name: %w", err)
	}
	return count > 0, nil
}

// Create inserts an inactive theme; an existing name is never overwritten
func (r *ThemeRepository) Create(ctx context.Context, theme entities.Theme) error {
	exists, err := r.Exists(ctx, theme.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", entities.ErrThemeExists, theme.Name)
	}

	tokens, err := json.Marshal(theme.Tokens)
	if err != nil {
		return fmt.Errorf("failed to encode theme tokens: %w", err)
	}
	d := r.db.Dialect()
	query := fmt.Sprintf(`INSERT INTO themes (name, tokens, is_active, created_at) VALUES (%s, %s, %s, %s)`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4))
	if _, err := r.db.Exec(ctx, query, theme.Name, string(tokens), false, timeArg(d, r.now().UTC())); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

func (r *ThemeRepository) trueLiteral() string {
	if r.db.Dialect() == db.Postgres {
		return "TRUE"
	}
	return "1"
}

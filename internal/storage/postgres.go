package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/xaenox/postbot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetUserSettings(ctx context.Context, userID int64) (*models.UserSettings, error) {
	settings := &models.UserSettings{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT watermark, channel_id, is_premium, created_at, last_seen_at
		FROM users WHERE user_id = $1`, userID,
	).Scan(&settings.Watermark, &settings.ChannelID, &settings.IsPremium,
		&settings.CreatedAt, &settings.LastSeenAt)

	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user settings: %w", err)
	}
	return settings, nil
}

func (s *PostgresStorage) UpdateUserSettings(ctx context.Context, settings *models.UserSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, watermark, channel_id, is_premium, last_seen_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
			watermark = EXCLUDED.watermark,
			channel_id = EXCLUDED.channel_id,
			is_premium = EXCLUDED.is_premium,
			last_seen_at = now()`,
		settings.UserID, settings.Watermark, settings.ChannelID, settings.IsPremium)
	if err != nil {
		return fmt.Errorf("error updating user settings: %w", err)
	}
	return nil
}

func (s *PostgresStorage) SaveTemplate(ctx context.Context, tpl *models.TemplateSpec) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE templates SET active = FALSE WHERE user_id = $1`, tpl.UserID); err != nil {
		return fmt.Errorf("error deactivating templates: %w", err)
	}

	versionID := uuid.New().String()
	kinds := make([]string, len(tpl.Kinds))
	for i, k := range tpl.Kinds {
		kinds[i] = string(k)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO templates (version_id, user_id, name, kinds, body, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)`,
		versionID, tpl.UserID, tpl.Name, pq.Array(kinds), tpl.Body); err != nil {
		return fmt.Errorf("error inserting template: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing template: %w", err)
	}
	tpl.VersionID = versionID
	tpl.Active = true
	return nil
}

func (s *PostgresStorage) GetTemplate(ctx context.Context, userID int64, name string) (*models.TemplateSpec, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT version_id, user_id, name, kinds, body, active, created_at
		FROM templates
		WHERE user_id = $1 AND name = $2
		ORDER BY created_at DESC LIMIT 1`, userID, name)

	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %q not found", name)
	}
	return tpl, err
}

func (s *PostgresStorage) GetActiveTemplate(ctx context.Context, userID int64, kind models.Kind) (*models.TemplateSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version_id, user_id, name, kinds, body, active, created_at
		FROM templates
		WHERE user_id = $1 AND active
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying active templates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		if tpl.AppliesTo(kind) {
			return tpl, nil
		}
	}
	return nil, rows.Err()
}

func (s *PostgresStorage) ListTemplates(ctx context.Context, userID int64) ([]*models.TemplateSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (name)
			version_id, user_id, name, kinds, body, active, created_at
		FROM templates
		WHERE user_id = $1
		ORDER BY name, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying templates: %w", err)
	}
	defer rows.Close()

	var out []*models.TemplateSpec
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *PostgresStorage) SetActiveTemplate(ctx context.Context, userID int64, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE templates SET active = FALSE WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error deactivating templates: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE templates SET active = TRUE
		WHERE version_id = (
			SELECT version_id FROM templates
			WHERE user_id = $1 AND name = $2
			ORDER BY created_at DESC LIMIT 1
		)`, userID, name)
	if err != nil {
		return fmt.Errorf("error activating template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("template %q not found", name)
	}

	return tx.Commit()
}

func (s *PostgresStorage) DeleteTemplate(ctx context.Context, userID int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM templates WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return nil
}

func (s *PostgresStorage) IncrementPostCount(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_posts (user_id, day, count)
		VALUES ($1, CURRENT_DATE, 1)
		ON CONFLICT (user_id, day) DO UPDATE SET count = daily_posts.count + 1`,
		userID)
	if err != nil {
		return fmt.Errorf("error incrementing post count: %w", err)
	}
	return nil
}

func (s *PostgresStorage) PostsToday(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count FROM daily_posts WHERE user_id = $1 AND day = CURRENT_DATE`,
		userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error querying post count: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*models.TemplateSpec, error) {
	var tpl models.TemplateSpec
	var kinds []string
	err := row.Scan(&tpl.VersionID, &tpl.UserID, &tpl.Name,
		pq.Array(&kinds), &tpl.Body, &tpl.Active, &tpl.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning template: %w", err)
	}
	for _, k := range kinds {
		tpl.Kinds = append(tpl.Kinds, models.Kind(k))
	}
	return &tpl, nil
}

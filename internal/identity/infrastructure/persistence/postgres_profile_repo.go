package persistence

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/identity/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database"
)

// PostgresProfileRepository implements domain.Repository on the hosted store.
type PostgresProfileRepository struct {
	conn database.Connection
}

// NewPostgresProfileRepository creates a repository on conn.
func NewPostgresProfileRepository(conn database.Connection) *PostgresProfileRepository {
	return &PostgresProfileRepository{conn: conn}
}

// Create inserts a profile. A duplicate name yields domain.ErrProfileExists.
func (r *PostgresProfileRepository) Create(ctx context.Context, p domain.Profile) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`INSERT INTO profiles (id, name, password_hash, key_salt, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID.String(),
		p.Name,
		p.PasswordHash,
		base64.StdEncoding.EncodeToString(p.KeySalt),
		p.CreatedAt,
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// FindByID returns domain.ErrProfileNotFound for an unknown id.
func (r *PostgresProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id::text, name, password_hash, key_salt, created_at FROM profiles WHERE id = $1`, id.String())
	p, err := scanPostgresProfile(row)
	if database.IsNoRows(err) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, err
}

// ExistsByName reports whether a profile with name exists.
func (r *PostgresProfileRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

// List returns every profile, oldest first.
func (r *PostgresProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT id::text, name, password_hash, key_salt, created_at FROM profiles ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		p, err := scanPostgresProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanPostgresProfile(row database.Row) (domain.Profile, error) {
	var (
		p        domain.Profile
		id, salt string
	)
	if err := row.Scan(&id, &p.Name, &p.PasswordHash, &salt, &p.CreatedAt); err != nil {
		return domain.Profile{}, err
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return domain.Profile{}, fmt.Errorf("profile id: %w", err)
	}
	if p.KeySalt, err = base64.StdEncoding.DecodeString(salt); err != nil {
		return domain.Profile{}, fmt.Errorf("profile key salt: %w", err)
	}
	return p, nil
}

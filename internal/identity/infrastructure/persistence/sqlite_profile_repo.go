package persistence

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/identity/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database"
)

// SQLiteProfileRepository implements domain.Repository on the local store.
// Key salts are stored base64-encoded.
type SQLiteProfileRepository struct {
	conn database.Connection
}

// NewSQLiteProfileRepository creates a repository on conn.
func NewSQLiteProfileRepository(conn database.Connection) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{conn: conn}
}

// Create inserts a profile. A duplicate name yields domain.ErrProfileExists.
func (r *SQLiteProfileRepository) Create(ctx context.Context, p domain.Profile) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`INSERT INTO profiles (id, name, password_hash, key_salt, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID.String(),
		p.Name,
		p.PasswordHash,
		base64.StdEncoding.EncodeToString(p.KeySalt),
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
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
func (r *SQLiteProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Profile, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id, name, password_hash, key_salt, created_at FROM profiles WHERE id = ?`, id.String())
	p, err := scanSQLiteProfile(row)
	if database.IsNoRows(err) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, err
}

// ExistsByName reports whether a profile with name exists.
func (r *SQLiteProfileRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var n int
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT COUNT(*) FROM profiles WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every profile, oldest first.
func (r *SQLiteProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT id, name, password_hash, key_salt, created_at FROM profiles ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		p, err := scanSQLiteProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanSQLiteProfile(row database.Row) (domain.Profile, error) {
	var (
		p                 domain.Profile
		id, salt, created string
	)
	if err := row.Scan(&id, &p.Name, &p.PasswordHash, &salt, &created); err != nil {
		return domain.Profile{}, err
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return domain.Profile{}, fmt.Errorf("profile id: %w", err)
	}
	if p.KeySalt, err = base64.StdEncoding.DecodeString(salt); err != nil {
		return domain.Profile{}, fmt.Errorf("profile key salt: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return domain.Profile{}, fmt.Errorf("profile created_at: %w", err)
	}
	return p, nil
}

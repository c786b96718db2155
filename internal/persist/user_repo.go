package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserRow mirrors one row of the users table.
type UserRow struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
	Online       bool
	LastSeenAt   *time.Time
	CreatedAt    time.Time
}

// UserRepo handles user account persistence.
type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Load fetches a user by username. Returns (nil, nil) when the user does not
// exist.
func (r *UserRepo) Load(ctx context.Context, username string) (*UserRow, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, online, last_seen_at, created_at
		 FROM users WHERE username = $1`, username)

	var u UserRow
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Online, &u.LastSeenAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", username, err)
	}
	return &u, nil
}

// LoadByID fetches a user by id. Returns (nil, nil) when absent.
func (r *UserRepo) LoadByID(ctx context.Context, id uuid.UUID) (*UserRow, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, online, last_seen_at, created_at
		 FROM users WHERE id = $1`, id)

	var u UserRow
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Online, &u.LastSeenAt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return &u, nil
}

// Create inserts a new user with a bcrypt password hash.
func (r *UserRepo) Create(ctx context.Context, username, password, role string) (*UserRow, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := UserRow{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return &u, nil
}

// VerifyPassword checks a candidate password against the stored hash.
func (r *UserRepo) VerifyPassword(u *UserRow, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// List returns all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]UserRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, username, password_hash, role, online, last_seen_at, created_at
		 FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Online, &u.LastSeenAt, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateRole changes a user's role. Reports whether a row matched.
func (r *UserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return false, fmt.Errorf("update role for %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a user. Reports whether a row matched.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetOnline updates presence flags. last_seen_at always advances so an
// unclean disconnect still leaves a truthful timestamp.
func (r *UserRepo) SetOnline(ctx context.Context, id string, online bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET online = $2, last_seen_at = now() WHERE id = $1`, id, online)
	if err != nil {
		return fmt.Errorf("set online for %s: %w", id, err)
	}
	return nil
}

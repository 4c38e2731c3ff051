package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/model"
	"github.com/sumo47/exam-prep-back/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, google_id, email, name, picture, bio, location, education, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.Name,
		&u.Picture,
		&u.Bio,
		&u.Location,
		&u.Education,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. ID and timestamps are generated here and
// written back into the caller's struct.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GoogleID,
		user.Email,
		user.Name,
		user.Picture,
		user.Bio,
		user.Location,
		user.Education,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if col, ok := uniqueViolation(err, "users"); ok {
			field := col
			if col == "google_id" {
				field = "googleId"
			}
			return apperror.Conflict("user", field)
		}
		return fmt.Errorf("sqlite: inserting user (googleID=%s): %w", user.GoogleID, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByGoogleID retrieves a user by the identity provider's subject ID.
func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", googleID)
		}
		return nil, fmt.Errorf("sqlite: getting user by google_id %s: %w", googleID, err)
	}
	return u, nil
}

// RefreshIdentity updates name and picture of an existing user and returns
// the stored record.
func (db *DB) RefreshIdentity(ctx context.Context, id, name, picture string) (*model.User, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, picture = ?, updated_at = ?
		 WHERE id = ?`,
		name, picture, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: refreshing user %s: %w", id, err)
	}
	if err := requireAffected(result, "user", id); err != nil {
		return nil, err
	}
	return db.GetUserByID(ctx, id)
}

// UpdateProfile applies only the fields present in upd in a single UPDATE.
// The SET clause is built from a fixed list of column names, never from input.
func (db *DB) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.User, error) {
	if upd.IsEmpty() {
		return db.GetUserByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, v *string) {
		if v != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *v)
		}
	}
	add("name", upd.Name)
	add("bio", upd.Bio)
	add("location", upd.Location)
	add("education", upd.Education)
	add("picture", upd.Picture)

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}
	if err := requireAffected(result, "user", id); err != nil {
		return nil, err
	}
	return db.GetUserByID(ctx, id)
}

// requireAffected turns an UPDATE that matched no row into a NotFound.
func requireAffected(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

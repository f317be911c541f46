package sqlite

import (
	"context"
	"database/sql"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, username, display_name, email, password_hash, role, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var displayName, email sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Username,
		&displayName,
		&email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.DisplayName = mapNullString(displayName)
	u.Email = mapNullString(email)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Username,
		mapStringNull(u.DisplayName),
		mapStringNull(u.Email),
		u.PasswordHash,
		u.Role,
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, userID)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store"
)

type permissionsRepo struct {
	db *sql.DB
}

func (r *permissionsRepo) ListRolePermissionSets(ctx context.Context) ([]domain.RolePermissionSet, error) {
	roleRows, err := r.db.QueryContext(ctx,
		`SELECT name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()

	byName := make(map[string]*domain.RolePermissionSet)
	var order []string
	for roleRows.Next() {
		var name string
		var description sql.NullString
		if err := roleRows.Scan(&name, &description); err != nil {
			return nil, err
		}
		byName[name] = &domain.RolePermissionSet{
			Role:        name,
			Description: mapNullString(description),
		}
		order = append(order, name)
	}
	if err := roleRows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadInherits(ctx, byName); err != nil {
		return nil, err
	}
	if err := r.loadRules(ctx, byName); err != nil {
		return nil, err
	}

	sets := make([]domain.RolePermissionSet, 0, len(order))
	for _, name := range order {
		sets = append(sets, *byName[name])
	}
	return sets, nil
}

func (r *permissionsRepo) loadInherits(ctx context.Context, byName map[string]*domain.RolePermissionSet) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, inherits_role FROM role_inherits ORDER BY role, inherits_role`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var role, parent string
		if err := rows.Scan(&role, &parent); err != nil {
			return err
		}
		if set, ok := byName[role]; ok {
			set.Inherits = append(set.Inherits, parent)
		}
	}
	return rows.Err()
}

func (r *permissionsRepo) loadRules(ctx context.Context, byName map[string]*domain.RolePermissionSet) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT role, service, method, path, description
		FROM permission_rules ORDER BY role, service, method, path`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var rule domain.PermissionRule
		var description sql.NullString
		if err := rows.Scan(&role, &rule.Service, &rule.Method, &rule.Path, &description); err != nil {
			return err
		}
		rule.Description = mapNullString(description)
		if set, ok := byName[role]; ok {
			set.Rules = append(set.Rules, rule)
		}
	}
	return rows.Err()
}

func (r *permissionsRepo) GetRolePermissionSet(ctx context.Context, role string) (domain.RolePermissionSet, error) {
	var set domain.RolePermissionSet
	var description sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT name, description FROM roles WHERE name = ?`, role).
		Scan(&set.Role, &description)
	if err != nil {
		return domain.RolePermissionSet{}, mapNotFound(err)
	}
	set.Description = mapNullString(description)

	byName := map[string]*domain.RolePermissionSet{set.Role: &set}
	if err := r.loadInherits(ctx, byName); err != nil {
		return domain.RolePermissionSet{}, err
	}
	if err := r.loadRules(ctx, byName); err != nil {
		return domain.RolePermissionSet{}, err
	}
	return set, nil
}

// UpsertRolePermissionSet replaces the role row, its inherits list and its
// rules inside one transaction so refresh never observes a half-written role.
func (r *permissionsRepo) UpsertRolePermissionSet(ctx context.Context, set domain.RolePermissionSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO roles (name, description) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			updated_at = CURRENT_TIMESTAMP`,
		set.Role, mapStringNull(set.Description)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM role_inherits WHERE role = ?`, set.Role); err != nil {
		return err
	}
	for _, parent := range set.Inherits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_inherits (role, inherits_role) VALUES (?, ?)`,
			set.Role, parent); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM permission_rules WHERE role = ?`, set.Role); err != nil {
		return err
	}
	for _, rule := range set.Rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO permission_rules (role, service, method, path, description)
			VALUES (?, ?, ?, ?, ?)`,
			set.Role, rule.Service, rule.Method, rule.Path,
			mapStringNull(rule.Description)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *permissionsRepo) DeleteRole(ctx context.Context, role string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE name = ?`, role)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

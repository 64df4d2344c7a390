package postgres

import (
	"context"

	"github.com/openshelf/openshelf/internal/authz"
	"gorm.io/gorm"
)

// Resolver loads effective permissions by traversing user_roles and
// role_permissions. It recomputes on every call; assignments can change
// between requests, so nothing is cached here.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

func (r *Resolver) Resolve(ctx context.Context, userID int64) (authz.PermissionSet, error) {
	query := `SELECT DISTINCT p.name
	          FROM permissions p
	          JOIN role_permissions rp ON rp.permission_id = p.id
	          JOIN user_roles ur ON ur.role_id = rp.role_id
	          WHERE ur.user_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return authz.NewPermissionSet(nil), err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return authz.NewPermissionSet(nil), err
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return authz.NewPermissionSet(nil), err
	}

	// Unknown users resolve to the empty set; the gate turns that into a
	// clean deny rather than an internal fault.
	return authz.NewPermissionSet(labels), nil
}

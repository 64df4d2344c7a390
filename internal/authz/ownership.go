package authz

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLOwnerLookup builds an OwnerLookup from a single-column query taking the
// resource id as its only parameter, e.g.
// "SELECT user_id FROM rates WHERE id = $1".
func SQLOwnerLookup(db *sqlx.DB, query string) OwnerLookup {
	return func(ctx context.Context, id int64) (int64, bool, error) {
		var ownerID int64
		err := db.GetContext(ctx, &ownerID, query, id)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, err
		}
		return ownerID, true, nil
	}
}

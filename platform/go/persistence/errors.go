package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// Constraint names declared in database/schema. Stores use them to tell
// concurrent-insert races apart.
const (
	constraintTenantAuthID    = "tenants_auth_id_unique"
	constraintTenantUsername  = "tenants_username_unique"
	constraintPageTenantSlug  = "capture_pages_tenant_slug_unique"
	constraintPageSlug        = "capture_pages_slug_unique"
	constraintLeadTenantEmail = "leads_tenant_email_unique"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// violatedConstraint returns the constraint name carried by a Postgres error.
func violatedConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.ConstraintName == "" {
		return "", false
	}
	return pgErr.ConstraintName, true
}

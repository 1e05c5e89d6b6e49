package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantsTable defines the table backing the tenant registry.
const TenantsTable = "tenants"

const tenantColumns = `tenant_id, auth_id, username, email, webhook_url, capture_name,
        capture_phone, notify_on_new_leads, created_at, updated_at`

// TenantRecord represents a row in the tenants table.
type TenantRecord struct {
	TenantID         uuid.UUID `db:"tenant_id"`
	AuthID           string    `db:"auth_id"`
	Username         string    `db:"username"`
	Email            *string   `db:"email"`
	WebhookURL       *string   `db:"webhook_url"`
	CaptureName      bool      `db:"capture_name"`
	CapturePhone     bool      `db:"capture_phone"`
	NotifyOnNewLeads bool      `db:"notify_on_new_leads"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

var (
	// ErrTenantNotFound indicates a missing tenant record.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrAuthIDConflict indicates another tenant already owns the auth id.
	ErrAuthIDConflict = errors.New("tenant auth id conflict")
	// ErrUsernameConflict indicates another tenant already owns the username.
	ErrUsernameConflict = errors.New("tenant username conflict")
)

// TenantStore provides access to the tenants table.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a store; assumes BootstrapSchema already created the table.
func NewTenantStore(ctx context.Context, pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool}, nil
}

// CreateTenantParams captures the fields required to insert a tenant.
type CreateTenantParams struct {
	TenantID         uuid.UUID
	AuthID           string
	Username         string
	Email            *string
	CaptureName      bool
	CapturePhone     bool
	NotifyOnNewLeads bool
}

// Create inserts a tenant. Unique violations are reported per constraint so
// callers can tell a lost provisioning race from a username collision.
func (s *TenantStore) Create(ctx context.Context, params CreateTenantParams) (TenantRecord, error) {
	if params.TenantID == uuid.Nil {
		return TenantRecord{}, errors.New("tenant id is required")
	}
	if strings.TrimSpace(params.AuthID) == "" {
		return TenantRecord{}, errors.New("auth id is required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (tenant_id, auth_id, username, email, capture_name, capture_phone, notify_on_new_leads)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING %s
    `, TenantsTable, tenantColumns)

	row := s.pool.QueryRow(ctx, query,
		params.TenantID, params.AuthID, params.Username, params.Email,
		params.CaptureName, params.CapturePhone, params.NotifyOnNewLeads,
	)

	rec, err := scanTenantRecord(row)
	if err != nil {
		return TenantRecord{}, mapTenantWriteError(err)
	}
	return rec, nil
}

// GetByID returns the tenant with the given id.
func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1`, tenantColumns, TenantsTable)
	return s.getOne(ctx, query, id)
}

// GetByUsername returns the tenant owning the username (exact match).
func (s *TenantStore) GetByUsername(ctx context.Context, username string) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1`, tenantColumns, TenantsTable)
	return s.getOne(ctx, query, username)
}

// GetByAuthID returns the tenant bound to the external identity subject.
func (s *TenantStore) GetByAuthID(ctx context.Context, authID string) (TenantRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE auth_id = $1`, tenantColumns, TenantsTable)
	return s.getOne(ctx, query, authID)
}

// UsernameExists reports whether any tenant owns the username.
func (s *TenantStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE username = $1)`, TenantsTable)
	if err := s.pool.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// UpdateTenantSettingsParams lists the mutable settings. Nil fields are left untouched.
type UpdateTenantSettingsParams struct {
	Username         *string
	CaptureName      *bool
	CapturePhone     *bool
	NotifyOnNewLeads *bool
}

// UpdateSettings applies the provided fields and returns the updated record.
func (s *TenantStore) UpdateSettings(ctx context.Context, id uuid.UUID, params UpdateTenantSettingsParams) (TenantRecord, error) {
	setParts := []string{}
	var args []any

	if params.Username != nil {
		args = append(args, *params.Username)
		setParts = append(setParts, fmt.Sprintf("username = $%d", len(args)))
	}
	if params.CaptureName != nil {
		args = append(args, *params.CaptureName)
		setParts = append(setParts, fmt.Sprintf("capture_name = $%d", len(args)))
	}
	if params.CapturePhone != nil {
		args = append(args, *params.CapturePhone)
		setParts = append(setParts, fmt.Sprintf("capture_phone = $%d", len(args)))
	}
	if params.NotifyOnNewLeads != nil {
		args = append(args, *params.NotifyOnNewLeads)
		setParts = append(setParts, fmt.Sprintf("notify_on_new_leads = $%d", len(args)))
	}

	if len(setParts) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
        UPDATE %s
        SET %s, updated_at = NOW()
        WHERE tenant_id = $%d
        RETURNING %s
    `, TenantsTable, strings.Join(setParts, ", "), len(args), tenantColumns)

	rec, err := scanTenantRecord(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return TenantRecord{}, mapTenantWriteError(err)
	}
	return rec, nil
}

// UpdateWebhook sets the webhook URL; nil clears it.
func (s *TenantStore) UpdateWebhook(ctx context.Context, id uuid.UUID, webhookURL *string) (TenantRecord, error) {
	query := fmt.Sprintf(`
        UPDATE %s
        SET webhook_url = $1, updated_at = NOW()
        WHERE tenant_id = $2
        RETURNING %s
    `, TenantsTable, tenantColumns)

	rec, err := scanTenantRecord(s.pool.QueryRow(ctx, query, webhookURL, id))
	if err != nil {
		return TenantRecord{}, mapTenantWriteError(err)
	}
	return rec, nil
}

func (s *TenantStore) getOne(ctx context.Context, query string, arg any) (TenantRecord, error) {
	rec, err := scanTenantRecord(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrTenantNotFound
		}
		return TenantRecord{}, fmt.Errorf("get tenant: %w", err)
	}
	return rec, nil
}

func mapTenantWriteError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTenantNotFound
	}
	if isUniqueViolation(err) {
		switch name, _ := violatedConstraint(err); name {
		case constraintTenantAuthID:
			return ErrAuthIDConflict
		case constraintTenantUsername:
			return ErrUsernameConflict
		}
	}
	return fmt.Errorf("write tenant: %w", err)
}

func scanTenantRecord(row pgx.Row) (TenantRecord, error) {
	var rec TenantRecord
	if err := row.Scan(
		&rec.TenantID, &rec.AuthID, &rec.Username, &rec.Email, &rec.WebhookURL,
		&rec.CaptureName, &rec.CapturePhone, &rec.NotifyOnNewLeads, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return TenantRecord{}, err
	}
	return rec, nil
}

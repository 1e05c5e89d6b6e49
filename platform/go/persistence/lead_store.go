package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LeadsTable defines the table holding captured leads.
const LeadsTable = "leads"

// Lead represents a row in the leads table.
type Lead struct {
	LeadID    uuid.UUID `db:"lead_id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenantId"`
	Email     string    `db:"email" json:"email"`
	Name      *string   `db:"name" json:"name,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ErrLeadNotFound indicates a missing lead record.
var ErrLeadNotFound = errors.New("lead not found")

// LeadStore exposes persistence helpers for the leads table.
type LeadStore struct {
	pool *pgxpool.Pool
}

// NewLeadStore returns a store instance.
func NewLeadStore(ctx context.Context, pool *pgxpool.Pool) (*LeadStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &LeadStore{pool: pool}, nil
}

// InsertLeadParams carries a normalized lead.
type InsertLeadParams struct {
	LeadID   uuid.UUID
	TenantID uuid.UUID
	Email    string
	Name     *string
	Phone    *string
}

// InsertIfAbsent inserts the lead unless (tenant, email) already exists. The
// boolean reports whether a row was written; an existing pair is not an error.
func (s *LeadStore) InsertIfAbsent(ctx context.Context, params InsertLeadParams) (Lead, bool, error) {
	if params.LeadID == uuid.Nil || params.TenantID == uuid.Nil {
		return Lead{}, false, errors.New("lead id and tenant id are required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (lead_id, tenant_id, email, name, phone)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT ON CONSTRAINT %s DO NOTHING
        RETURNING lead_id, tenant_id, email, name, phone, created_at
    `, LeadsTable, constraintLeadTenantEmail)

	lead, err := scanLead(s.pool.QueryRow(ctx, query,
		params.LeadID, params.TenantID, params.Email, params.Name, params.Phone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, fmt.Errorf("insert lead: %w", err)
	}
	return lead, true, nil
}

// ListLeadsParams captures tenant scoping and pagination for ListByTenant.
type ListLeadsParams struct {
	TenantID uuid.UUID
	Page     int
	PageSize int
}

// ListLeadsResult includes the rows and the total count for pagination metadata.
type ListLeadsResult struct {
	Leads      []Lead
	TotalItems int
}

// ListByTenant returns the tenant's leads, newest first.
func (s *LeadStore) ListByTenant(ctx context.Context, params ListLeadsParams) (ListLeadsResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 50
	}
	if params.PageSize > 500 {
		params.PageSize = 500
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE tenant_id = $1`, LeadsTable)
	if err := s.pool.QueryRow(ctx, countQuery, params.TenantID).Scan(&total); err != nil {
		return ListLeadsResult{}, fmt.Errorf("count leads: %w", err)
	}

	result := ListLeadsResult{Leads: []Lead{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
        SELECT lead_id, tenant_id, email, name, phone, created_at
        FROM %s
        WHERE tenant_id = $1
        ORDER BY created_at DESC, lead_id
        LIMIT $2 OFFSET $3
    `, LeadsTable)

	rows, err := s.pool.Query(ctx, query, params.TenantID, params.PageSize, (params.Page-1)*params.PageSize)
	if err != nil {
		return ListLeadsResult{}, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		lead, scanErr := scanLead(rows)
		if scanErr != nil {
			return ListLeadsResult{}, fmt.Errorf("scan lead: %w", scanErr)
		}
		result.Leads = append(result.Leads, lead)
	}
	if err := rows.Err(); err != nil {
		return ListLeadsResult{}, fmt.Errorf("iterate leads: %w", err)
	}

	return result, nil
}

// GetByID returns a single lead.
func (s *LeadStore) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	query := fmt.Sprintf(`SELECT lead_id, tenant_id, email, name, phone, created_at FROM %s WHERE lead_id = $1`, LeadsTable)

	lead, err := scanLead(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrLeadNotFound
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// Delete removes a lead by identifier.
func (s *LeadStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE lead_id = $1`, LeadsTable), id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	if err := row.Scan(&lead.LeadID, &lead.TenantID, &lead.Email, &lead.Name, &lead.Phone, &lead.CreatedAt); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

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

// CapturePagesTable defines the table backing the capture page registry.
const CapturePagesTable = "capture_pages"

const capturePageColumns = `page_id, tenant_id, name, slug, headline, subheadline, background_type,
        background_color, background_gradient, background_image, text_color, button_color,
        button_text_color, font_family, capture_name, capture_phone, is_active, created_at, updated_at`

// CapturePageRecord represents a row in the capture_pages table.
type CapturePageRecord struct {
	PageID             uuid.UUID `db:"page_id"`
	TenantID           uuid.UUID `db:"tenant_id"`
	Name               string    `db:"name"`
	Slug               string    `db:"slug"`
	Headline           string    `db:"headline"`
	Subheadline        *string   `db:"subheadline"`
	BackgroundType     string    `db:"background_type"`
	BackgroundColor    *string   `db:"background_color"`
	BackgroundGradient *string   `db:"background_gradient"`
	BackgroundImage    *string   `db:"background_image"`
	TextColor          *string   `db:"text_color"`
	ButtonColor        *string   `db:"button_color"`
	ButtonTextColor    *string   `db:"button_text_color"`
	FontFamily         *string   `db:"font_family"`
	CaptureName        bool      `db:"capture_name"`
	CapturePhone       bool      `db:"capture_phone"`
	IsActive           bool      `db:"is_active"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

var (
	// ErrCapturePageNotFound indicates a missing capture page.
	ErrCapturePageNotFound = errors.New("capture page not found")
	// ErrSlugConflict indicates the slug is already registered.
	ErrSlugConflict = errors.New("capture page slug conflict")
)

// CapturePageStore exposes persistence helpers for the capture_pages table.
type CapturePageStore struct {
	pool *pgxpool.Pool
}

// NewCapturePageStore returns a store instance.
func NewCapturePageStore(ctx context.Context, pool *pgxpool.Pool) (*CapturePageStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CapturePageStore{pool: pool}, nil
}

// CreateCapturePageParams carries a fully validated page definition.
type CreateCapturePageParams struct {
	PageID             uuid.UUID
	TenantID           uuid.UUID
	Name               string
	Slug               string
	Headline           string
	Subheadline        *string
	BackgroundType     string
	BackgroundColor    *string
	BackgroundGradient *string
	BackgroundImage    *string
	TextColor          *string
	ButtonColor        *string
	ButtonTextColor    *string
	FontFamily         *string
	CaptureName        bool
	CapturePhone       bool
	IsActive           bool
}

// Create inserts a capture page and returns the persisted record.
func (s *CapturePageStore) Create(ctx context.Context, params CreateCapturePageParams) (CapturePageRecord, error) {
	if params.PageID == uuid.Nil || params.TenantID == uuid.Nil {
		return CapturePageRecord{}, errors.New("page id and tenant id are required")
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (
            page_id, tenant_id, name, slug, headline, subheadline, background_type,
            background_color, background_gradient, background_image, text_color, button_color,
            button_text_color, font_family, capture_name, capture_phone, is_active
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING %s
    `, CapturePagesTable, capturePageColumns)

	row := s.pool.QueryRow(ctx, query,
		params.PageID, params.TenantID, params.Name, params.Slug, params.Headline, params.Subheadline,
		params.BackgroundType, params.BackgroundColor, params.BackgroundGradient, params.BackgroundImage,
		params.TextColor, params.ButtonColor, params.ButtonTextColor, params.FontFamily,
		params.CaptureName, params.CapturePhone, params.IsActive,
	)

	rec, err := scanCapturePage(row)
	if err != nil {
		if isUniqueViolation(err) {
			if name, _ := violatedConstraint(err); name == constraintPageSlug || name == constraintPageTenantSlug {
				return CapturePageRecord{}, ErrSlugConflict
			}
		}
		return CapturePageRecord{}, fmt.Errorf("insert capture page: %w", err)
	}
	return rec, nil
}

// GetByID returns a capture page regardless of its activation state.
func (s *CapturePageStore) GetByID(ctx context.Context, id uuid.UUID) (CapturePageRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE page_id = $1`, capturePageColumns, CapturePagesTable)
	return s.getOne(ctx, query, id)
}

// GetBySlug returns the page registered under the slug regardless of its activation state.
func (s *CapturePageStore) GetBySlug(ctx context.Context, slug string) (CapturePageRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE slug = $1`, capturePageColumns, CapturePagesTable)
	return s.getOne(ctx, query, slug)
}

// ListByTenant returns every page owned by the tenant, newest first.
func (s *CapturePageStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]CapturePageRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 ORDER BY created_at DESC`, capturePageColumns, CapturePagesTable)

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list capture pages: %w", err)
	}
	defer rows.Close()

	pages := make([]CapturePageRecord, 0)
	for rows.Next() {
		rec, scanErr := scanCapturePage(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan capture page: %w", scanErr)
		}
		pages = append(pages, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capture pages: %w", err)
	}
	return pages, nil
}

// SetActive toggles the activation flag.
func (s *CapturePageStore) SetActive(ctx context.Context, id uuid.UUID, active bool) (CapturePageRecord, error) {
	query := fmt.Sprintf(`
        UPDATE %s SET is_active = $1, updated_at = NOW()
        WHERE page_id = $2
        RETURNING %s
    `, CapturePagesTable, capturePageColumns)

	rec, err := scanCapturePage(s.pool.QueryRow(ctx, query, active, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CapturePageRecord{}, ErrCapturePageNotFound
		}
		return CapturePageRecord{}, fmt.Errorf("update capture page: %w", err)
	}
	return rec, nil
}

// Delete removes a page by identifier.
func (s *CapturePageStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1`, CapturePagesTable), id)
	if err != nil {
		return fmt.Errorf("delete capture page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCapturePageNotFound
	}
	return nil
}

func (s *CapturePageStore) getOne(ctx context.Context, query string, arg any) (CapturePageRecord, error) {
	rec, err := scanCapturePage(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CapturePageRecord{}, ErrCapturePageNotFound
		}
		return CapturePageRecord{}, fmt.Errorf("get capture page: %w", err)
	}
	return rec, nil
}

func scanCapturePage(row pgx.Row) (CapturePageRecord, error) {
	var rec CapturePageRecord
	if err := row.Scan(
		&rec.PageID, &rec.TenantID, &rec.Name, &rec.Slug, &rec.Headline, &rec.Subheadline,
		&rec.BackgroundType, &rec.BackgroundColor, &rec.BackgroundGradient, &rec.BackgroundImage,
		&rec.TextColor, &rec.ButtonColor, &rec.ButtonTextColor, &rec.FontFamily,
		&rec.CaptureName, &rec.CapturePhone, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return CapturePageRecord{}, err
	}
	return rec, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/discussions/internal/sites"
)

// siteRepository implements sites.Repository using SQLite.
type siteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func newSiteRepository(db *sql.DB) *siteRepository {
	return &siteRepository{db: db, now: time.Now}
}

var _ sites.Repository = (*siteRepository)(nil)

func scanSite(scanner rowScanner) (*SiteModel, error) {
	var m SiteModel
	err := scanner.Scan(&m.ID, &m.Domain, &m.Name)
	return &m, err
}

func (r *siteRepository) CreateSite(ctx context.Context, site *sites.Site) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO sites (domain, name) VALUES (?, ?)`, site.Domain, site.Name)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", sites.ErrSiteExists, site.Domain)
	}
	if err != nil {
		return fmt.Errorf("failed to insert site: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	site.ID = id
	return nil
}

func (r *siteRepository) FindSiteByDomain(ctx context.Context, domain string) (*sites.Site, error) {
	model, err := scanSite(r.db.QueryRowContext(ctx, `SELECT id, domain, name FROM sites WHERE domain = ?`, domain))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &sites.SiteNotFoundError{Domain: domain}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find site by domain: %w", err)
	}
	return model.toDomain(), nil
}

func (r *siteRepository) FindSiteByID(ctx context.Context, id int64) (*sites.Site, error) {
	model, err := scanSite(r.db.QueryRowContext(ctx, `SELECT id, domain, name FROM sites WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &sites.SiteNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find site by id: %w", err)
	}
	return model.toDomain(), nil
}

func (r *siteRepository) ListSites(ctx context.Context) ([]*sites.Site, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, domain, name FROM sites ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*sites.Site
	for rows.Next() {
		model, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		out = append(out, model.toDomain())
	}
	return out, rows.Err()
}

// SaveConfiguration upserts on site_id and refreshes UpdatedAt.
func (r *siteRepository) SaveConfiguration(ctx context.Context, cfg *sites.Configuration) error {
	cfg.UpdatedAt = r.now()
	model, err := toConfigurationModel(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode site configuration: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO site_configurations (site_id, enabled, site_values, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(site_id) DO UPDATE SET
			enabled = excluded.enabled, site_values = excluded.site_values, updated_at = excluded.updated_at
		 RETURNING id`,
		model.SiteID, model.Enabled, model.Values, model.UpdatedAt,
	)
	if err := row.Scan(&cfg.ID); err != nil {
		return fmt.Errorf("failed to save site configuration: %w", err)
	}
	return nil
}

func (r *siteRepository) FindConfiguration(ctx context.Context, siteID int64) (*sites.Configuration, error) {
	var m ConfigurationModel
	err := r.db.QueryRowContext(ctx,
		`SELECT id, site_id, enabled, site_values, updated_at FROM site_configurations WHERE site_id = ?`, siteID,
	).Scan(&m.ID, &m.SiteID, &m.Enabled, &m.Values, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &sites.ConfigurationNotFoundError{SiteID: siteID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find site configuration: %w", err)
	}
	cfg, err := m.toDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to decode site configuration: %w", err)
	}
	return cfg, nil
}

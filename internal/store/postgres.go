// Package store persists completed runs. Postgres is the system of
// record; the CSV exporter feeds the spreadsheet-facing consumers.
package store

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	apperr "github.com/Nestour97/dsp-scraper/pkg/errors"

	"github.com/Nestour97/dsp-scraper/internal/model"
	"github.com/Nestour97/dsp-scraper/logger"
	"github.com/Nestour97/dsp-scraper/services/worker"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	elapsed_ms BIGINT NOT NULL,
	row_count  INT NOT NULL,
	diag_count INT NOT NULL
);

CREATE TABLE IF NOT EXISTS price_rows (
	id              BIGSERIAL PRIMARY KEY,
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	provider        TEXT NOT NULL,
	country         TEXT NOT NULL,
	country_code    TEXT NOT NULL,
	plan            TEXT NOT NULL,
	currency        TEXT NOT NULL,
	currency_raw    TEXT NOT NULL,
	price_display   TEXT NOT NULL,
	price_value     NUMERIC,
	source          TEXT NOT NULL,
	source_url      TEXT NOT NULL,
	has_page        BOOLEAN NOT NULL,
	redirected      BOOLEAN NOT NULL,
	redirected_to   TEXT NOT NULL DEFAULT '',
	redirect_reason TEXT NOT NULL DEFAULT '',
	scraped_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
	id           BIGSERIAL PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	provider     TEXT NOT NULL,
	country      TEXT NOT NULL,
	country_code TEXT NOT NULL,
	plan         TEXT NOT NULL,
	url          TEXT NOT NULL,
	reason       TEXT NOT NULL,
	snippet      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_rows_run ON price_rows (run_id);
CREATE INDEX IF NOT EXISTS idx_price_rows_lookup ON price_rows (provider, country_code, plan);
CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics (run_id);
`

// PostgresStore persists runs, rows and diagnostics.
type PostgresStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPostgresStore opens the database and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperr.NewStore("opening postgres connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperr.NewStore("pinging postgres", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, apperr.NewStore("creating schema", err)
	}
	return &PostgresStore{db: db, log: logger.ForStore()}, nil
}

// SaveRun writes a completed run in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, result worker.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.NewStore("beginning transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, elapsed_ms, row_count, diag_count) VALUES ($1, $2, $3, $4, $5)`,
		result.RunID, result.StartedAt, result.Elapsed.Milliseconds(), len(result.Rows), len(result.Diagnostics))
	if err != nil {
		return apperr.NewStore("inserting run", err)
	}

	for _, row := range result.Rows {
		var value sql.NullString
		if row.PriceValue != nil {
			value = sql.NullString{String: row.PriceValue.String(), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO price_rows
				(run_id, provider, country, country_code, plan, currency, currency_raw,
				 price_display, price_value, source, source_url, has_page,
				 redirected, redirected_to, redirect_reason, scraped_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			row.RunID, row.Provider, row.Country, row.CountryCode, string(row.Plan),
			row.Currency, row.CurrencyRaw, row.PriceDisplay, value, row.Source,
			row.SourceURL, row.HasPage, row.Redirected, row.RedirectedTo,
			row.RedirectReason, row.ScrapedAt)
		if err != nil {
			return apperr.NewStore("inserting price row", err)
		}
	}

	for _, d := range result.Diagnostics {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO diagnostics
				(run_id, provider, country, country_code, plan, url, reason, snippet, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			d.RunID, d.Provider, d.Country, d.CountryCode, d.Plan, d.URL, d.Reason,
			d.Snippet, d.Timestamp)
		if err != nil {
			return apperr.NewStore("inserting diagnostic", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.NewStore("committing run", err)
	}

	s.log.WithFields(logger.Fields{
		"run_id": result.RunID,
		"rows":   len(result.Rows),
	}).Info().Msg("run persisted")
	return nil
}

// LatestRunID returns the most recently started run, or "" when the
// database is empty.
func (s *PostgresStore) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperr.NewStore("querying latest run", err)
	}
	return id, nil
}

// RowFilter narrows Rows and Diagnostics queries. Zero values match
// everything.
type RowFilter struct {
	RunID       string
	Provider    string
	CountryCode string
}

// Rows returns price rows for the filter in export order.
func (s *PostgresStore) Rows(ctx context.Context, f RowFilter) ([]model.PriceRow, error) {
	query := `SELECT run_id, provider, country, country_code, plan, currency, currency_raw,
			price_display, price_value, source, source_url, has_page,
			redirected, redirected_to, redirect_reason, scraped_at
		FROM price_rows
		WHERE ($1 = '' OR run_id = $1)
		  AND ($2 = '' OR provider = $2)
		  AND ($3 = '' OR country_code = $3)
		ORDER BY country, plan`

	rs, err := s.db.QueryContext(ctx, query, f.RunID, f.Provider, f.CountryCode)
	if err != nil {
		return nil, apperr.NewStore("querying price rows", err)
	}
	defer rs.Close()

	var rows []model.PriceRow
	for rs.Next() {
		row, err := scanRow(rs)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, apperr.NewStore("iterating price rows", err)
	}
	return rows, nil
}

// Diagnostics returns failure records for the filter, newest first.
func (s *PostgresStore) Diagnostics(ctx context.Context, f RowFilter) ([]model.Diagnostic, error) {
	query := `SELECT run_id, provider, country, country_code, plan, url, reason, snippet, created_at
		FROM diagnostics
		WHERE ($1 = '' OR run_id = $1)
		  AND ($2 = '' OR provider = $2)
		  AND ($3 = '' OR country_code = $3)
		ORDER BY created_at DESC`

	rs, err := s.db.QueryContext(ctx, query, f.RunID, f.Provider, f.CountryCode)
	if err != nil {
		return nil, apperr.NewStore("querying diagnostics", err)
	}
	defer rs.Close()

	var diags []model.Diagnostic
	for rs.Next() {
		var d model.Diagnostic
		if err := rs.Scan(&d.RunID, &d.Provider, &d.Country, &d.CountryCode, &d.Plan,
			&d.URL, &d.Reason, &d.Snippet, &d.Timestamp); err != nil {
			return nil, apperr.NewStore("scanning diagnostic", err)
		}
		diags = append(diags, d)
	}
	if err := rs.Err(); err != nil {
		return nil, apperr.NewStore("iterating diagnostics", err)
	}
	return diags, nil
}

func scanRow(rs *sql.Rows) (model.PriceRow, error) {
	var row model.PriceRow
	var plan string
	var value sql.NullString
	err := rs.Scan(&row.RunID, &row.Provider, &row.Country, &row.CountryCode, &plan,
		&row.Currency, &row.CurrencyRaw, &row.PriceDisplay, &value, &row.Source,
		&row.SourceURL, &row.HasPage, &row.Redirected, &row.RedirectedTo,
		&row.RedirectReason, &row.ScrapedAt)
	if err != nil {
		return row, apperr.NewStore("scanning price row", err)
	}
	row.Plan = model.Tier(plan)
	if value.Valid {
		v, err := decimal.NewFromString(value.String)
		if err != nil {
			return row, apperr.NewStore("parsing stored price value", err)
		}
		row.PriceValue = &v
	}
	return row, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ worker.Sink = (*PostgresStore)(nil)

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order inside a single transaction. Every statement is
// idempotent so Migrate can run on each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
	   handle        VARCHAR(25) PRIMARY KEY CHECK (handle = lower(handle)),
	   name          TEXT UNIQUE NOT NULL,
	   num_employees INTEGER CHECK (num_employees >= 0),
	   description   TEXT NOT NULL,
	   logo_url      TEXT
	 )`,
	`CREATE TABLE IF NOT EXISTS jobs (
	   id             SERIAL PRIMARY KEY,
	   title          TEXT NOT NULL,
	   salary         INTEGER CHECK (salary >= 0),
	   equity         NUMERIC CHECK (equity >= 0 AND equity <= 1.0),
	   company_handle VARCHAR(25) NOT NULL
	     REFERENCES companies ON DELETE CASCADE,
	   CONSTRAINT jobs_natural_key UNIQUE NULLS NOT DISTINCT (title, salary, equity, company_handle)
	 )`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_title ON jobs (title, id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_company_handle ON jobs (company_handle)`,
}

// Migrate creates the companies and jobs tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate step %d: %w", i+1, err)
			}
		}
		return nil
	})
}

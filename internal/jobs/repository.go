package jobs

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query-execution surface the repository needs. *pgxpool.Pool,
// *pgx.Conn and pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// jobColumns is the select list every Job scan expects. equity travels as text
// in both directions so the NUMERIC value is never routed through a float.
const jobColumns = `id, title, salary, equity::text, company_handle`

// Repository owns all SQL for the jobs table. It is stateless; every method is
// a single statement.
type Repository struct {
	db DBTX
}

// NewRepository returns a Repository backed by db.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// Create inserts a job and returns it with its assigned id.
func (r *Repository) Create(ctx context.Context, nj NewJob) (*Job, error) {
	var j Job
	err := r.db.QueryRow(ctx,
		`INSERT INTO jobs (title, salary, equity, company_handle)
		 VALUES ($1, $2, $3::text::numeric, $4)
		 RETURNING `+jobColumns,
		nj.Title, nj.Salary, nj.Equity, nj.CompanyHandle,
	).Scan(&j.ID, &j.Title, &j.Salary, &j.Equity, &j.CompanyHandle)
	if err != nil {
		return nil, classify("createJob", err)
	}
	return &j, nil
}

// FindAll returns every job ordered by title, then id.
func (r *Repository) FindAll(ctx context.Context) ([]Job, error) {
	return r.list(ctx, "findAll", "")
}

// Filter returns the jobs matching every supplied option, ordered like FindAll.
// Returns ErrNotFound when nothing matches.
func (r *Repository) Filter(ctx context.Context, opts FilterOptions) ([]Job, error) {
	where, args := BuildFilter(opts)
	jobs, err := r.list(ctx, "filterJobs", where, args...)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNotFound
	}
	return jobs, nil
}

func (r *Repository) list(ctx context.Context, op, where string, args ...any) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY title, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op+" query", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Salary, &j.Equity, &j.CompanyHandle); err != nil {
			return nil, classify(op+" scan", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op+" rows", err)
	}
	return jobs, nil
}

// Get returns one job joined with its company.
func (r *Repository) Get(ctx context.Context, id int) (*JobDetail, error) {
	var d JobDetail
	err := r.db.QueryRow(ctx,
		`SELECT j.id, j.title, j.salary, j.equity::text,
		        c.handle, c.name, c.description, c.num_employees, c.logo_url
		 FROM jobs j
		 JOIN companies c ON c.handle = j.company_handle
		 WHERE j.id = $1`,
		id,
	).Scan(
		&d.ID, &d.Title, &d.Salary, &d.Equity,
		&d.Company.Handle, &d.Company.Name, &d.Company.Description,
		&d.Company.NumEmployees, &d.Company.LogoURL,
	)
	if err != nil {
		return nil, classify("getJob", err)
	}
	return &d, nil
}

// Update applies the non-nil fields of patch to job id and returns the result.
func (r *Repository) Update(ctx context.Context, id int, patch JobPatch) (*Job, error) {
	set, args := buildSet(patch)
	if set == "" {
		return nil, &ValidationError{Msg: "no data"}
	}
	args = append(args, id)

	var j Job
	err := r.db.QueryRow(ctx,
		`UPDATE jobs SET `+set+`
		 WHERE id = $`+strconv.Itoa(len(args))+`
		 RETURNING `+jobColumns,
		args...,
	).Scan(&j.ID, &j.Title, &j.Salary, &j.Equity, &j.CompanyHandle)
	if err != nil {
		return nil, classify("updateJob", err)
	}
	return &j, nil
}

// Remove deletes job id.
func (r *Repository) Remove(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return classify("removeJob", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildSet renders "col = $n" assignments for the supplied patch fields, in
// column order, with args aligned to the placeholders.
func buildSet(p JobPatch) (string, []any) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		cols = append(cols, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Salary != nil {
		add("salary", *p.Salary)
	}
	if p.Equity != nil {
		args = append(args, *p.Equity)
		cols = append(cols, "equity = $"+strconv.Itoa(len(args))+"::text::numeric")
	}
	if p.CompanyHandle != nil {
		add("company_handle", *p.CompanyHandle)
	}
	return strings.Join(cols, ", "), args
}

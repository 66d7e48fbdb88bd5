package jobs

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when a job id does not exist, or when a filter
// matches no jobs.
var ErrNotFound = errors.New("job not found")

// ErrConflict is returned when a create or update would duplicate an existing job.
var ErrConflict = errors.New("duplicate job")

// ErrConstraint is returned when companyHandle does not reference a company.
var ErrConstraint = errors.New("company handle does not reference an existing company")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// classify maps store errors onto the taxonomy above. Anything it does not
// recognise is wrapped with op and returned as is.
func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return withDetail(ErrConflict, pgErr)
		case pgerrcode.ForeignKeyViolation:
			return withDetail(ErrConstraint, pgErr)
		case pgerrcode.CheckViolation:
			return &ValidationError{Msg: fmt.Sprintf("violates %s", pgErr.ConstraintName)}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func withDetail(sentinel error, pgErr *pgconn.PgError) error {
	if pgErr.Detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, pgErr.Detail)
}

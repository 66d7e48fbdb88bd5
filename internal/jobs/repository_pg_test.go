package jobs_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobs-service/internal/db"
	"jobmate/jobs-service/internal/jobs"
)

// newPostgresRepo migrates a throwaway schema on DATABASE_URL and seeds
// c1..c3 and j1 100/0.1, j2 200/0.2, j3 300/null. Skipped without a database.
func newPostgresRepo(t *testing.T) *jobs.Repository {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := db.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	schema := "jobs_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	pool, err := db.NewPostgresPool(ctx, url+sep+"search_path="+schema)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `
		INSERT INTO companies (handle, name, num_employees, description, logo_url)
		VALUES ('c1', 'C1', 1, 'Desc1', 'http://c1.img'),
		       ('c2', 'C2', 2, 'Desc2', 'http://c2.img'),
		       ('c3', 'C3', 3, 'Desc3', 'http://c3.img')`)
	require.NoError(t, err)

	repo := jobs.NewRepository(pool)
	for _, nj := range []jobs.NewJob{
		{Title: "j1", Salary: intPtr(100), Equity: strPtr("0.1"), CompanyHandle: "c1"},
		{Title: "j2", Salary: intPtr(200), Equity: strPtr("0.2"), CompanyHandle: "c2"},
		{Title: "j3", Salary: intPtr(300), CompanyHandle: "c3"},
	} {
		_, err := repo.Create(ctx, nj)
		require.NoError(t, err)
	}
	return repo
}

func jobTitles(list []jobs.Job) []string {
	out := make([]string, 0, len(list))
	for _, j := range list {
		out = append(out, j.Title)
	}
	return out
}

func TestPostgres_FilterCombinations(t *testing.T) {
	repo := newPostgresRepo(t)

	title, minSalary, hasEquity := strPtr("J"), intPtr(150), boolPtr(true)
	cases := []struct {
		name string
		opts jobs.FilterOptions
		want []string
	}{
		{"none", jobs.FilterOptions{}, []string{"j1", "j2", "j3"}},
		{"title", jobs.FilterOptions{Title: title}, []string{"j1", "j2", "j3"}},
		{"minSalary", jobs.FilterOptions{MinSalary: minSalary}, []string{"j2", "j3"}},
		{"hasEquity", jobs.FilterOptions{HasEquity: hasEquity}, []string{"j1", "j2"}},
		{"title+minSalary", jobs.FilterOptions{Title: title, MinSalary: minSalary}, []string{"j2", "j3"}},
		{"title+hasEquity", jobs.FilterOptions{Title: title, HasEquity: hasEquity}, []string{"j1", "j2"}},
		{"minSalary+hasEquity", jobs.FilterOptions{MinSalary: minSalary, HasEquity: hasEquity}, []string{"j2"}},
		{"all", jobs.FilterOptions{Title: title, MinSalary: minSalary, HasEquity: hasEquity}, []string{"j2"}},
		{"exact title", jobs.FilterOptions{Title: strPtr("j1")}, []string{"j1"}},
		{"hasEquity false", jobs.FilterOptions{HasEquity: boolPtr(false)}, []string{"j1", "j2", "j3"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := repo.Filter(context.Background(), c.opts)
			require.NoError(t, err)
			assert.Equal(t, c.want, jobTitles(got))
		})
	}
}

func TestPostgres_FilterNoMatch(t *testing.T) {
	repo := newPostgresRepo(t)

	for _, title := range []string{"nope", "%", "_1", `j\`} {
		_, err := repo.Filter(context.Background(), jobs.FilterOptions{Title: strPtr(title)})
		assert.ErrorIs(t, err, jobs.ErrNotFound, title)
	}
}

func TestPostgres_EquityRoundTrip(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, strPtr("0.1"), all[0].Equity)
	assert.Nil(t, all[2].Equity)

	got, err := repo.Get(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, strPtr("0.1"), got.Equity)
	assert.Equal(t, "C1", got.Company.Name)
	assert.Equal(t, strPtr("http://c1.img"), got.Company.LogoURL)
}

func TestPostgres_CreateErrors(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, jobs.NewJob{Title: "j1", Salary: intPtr(100), Equity: strPtr("0.1"), CompanyHandle: "c1"})
	assert.ErrorIs(t, err, jobs.ErrConflict)

	// nulls take part in the natural key
	_, err = repo.Create(ctx, jobs.NewJob{Title: "j3", Salary: intPtr(300), CompanyHandle: "c3"})
	assert.ErrorIs(t, err, jobs.ErrConflict)

	_, err = repo.Create(ctx, jobs.NewJob{Title: "x", CompanyHandle: "nope"})
	assert.ErrorIs(t, err, jobs.ErrConstraint)

	_, err = repo.Create(ctx, jobs.NewJob{Title: "x", Equity: strPtr("1.5"), CompanyHandle: "c1"})
	var ve *jobs.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPostgres_UpdateThenRemove(t *testing.T) {
	repo := newPostgresRepo(t)
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	id := all[0].ID

	updated, err := repo.Update(ctx, id, jobs.JobPatch{Title: strPtr("new"), Equity: strPtr("0.25")})
	require.NoError(t, err)
	assert.Equal(t, &jobs.Job{
		ID: id, Title: "new", Salary: intPtr(100), Equity: strPtr("0.25"), CompanyHandle: "c1",
	}, updated)

	require.NoError(t, repo.Remove(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, jobs.ErrNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, id), jobs.ErrNotFound)
}

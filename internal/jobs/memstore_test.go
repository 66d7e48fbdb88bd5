package jobs_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"jobmate/jobs-service/internal/jobs"
)

// memStore is an in-memory jobs.Store with the same observable semantics as
// the Postgres repository. It backs the service, handler and gRPC tests.
type memStore struct {
	mu        sync.Mutex
	nextID    int
	jobs      map[int]jobs.Job
	companies map[string]jobs.Company
	getCalls  int
}

// errInt4Range mirrors pgx refusing to encode an id into the int4 column.
var errInt4Range = errors.New("greater than maximum value for int4")

func outOfRange(id int) bool { return id > math.MaxInt32 || id < math.MinInt32 }

// newMemStore returns a store seeded with c1..c3 and j1..j3
// (salaries 100/200/300, equity 0.1/0.2/null).
func newMemStore() *memStore {
	s := &memStore{
		jobs:      map[int]jobs.Job{},
		companies: map[string]jobs.Company{},
	}
	for i := 1; i <= 3; i++ {
		n := strconv.Itoa(i)
		s.companies["c"+n] = jobs.Company{
			Handle: "c" + n, Name: "C" + n, Description: "Desc" + n,
			NumEmployees: intPtr(i), LogoURL: strPtr("http://c" + n + ".img"),
		}
	}
	equities := []*string{strPtr("0.1"), strPtr("0.2"), nil}
	for i := 1; i <= 3; i++ {
		n := strconv.Itoa(i)
		_, _ = s.Create(context.Background(), jobs.NewJob{
			Title: "j" + n, Salary: intPtr(i * 100), Equity: equities[i-1], CompanyHandle: "c" + n,
		})
	}
	return s
}

func sameJob(a jobs.Job, nj jobs.NewJob) bool {
	eqInt := func(x, y *int) bool { return (x == nil && y == nil) || (x != nil && y != nil && *x == *y) }
	eqStr := func(x, y *string) bool { return (x == nil && y == nil) || (x != nil && y != nil && *x == *y) }
	return a.Title == nj.Title && a.CompanyHandle == nj.CompanyHandle &&
		eqInt(a.Salary, nj.Salary) && eqStr(a.Equity, nj.Equity)
}

func (s *memStore) Create(_ context.Context, nj jobs.NewJob) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[nj.CompanyHandle]; !ok {
		return nil, jobs.ErrConstraint
	}
	for _, j := range s.jobs {
		if sameJob(j, nj) {
			return nil, jobs.ErrConflict
		}
	}
	s.nextID++
	j := jobs.Job{ID: s.nextID, Title: nj.Title, Salary: nj.Salary, Equity: nj.Equity, CompanyHandle: nj.CompanyHandle}
	s.jobs[j.ID] = j
	return &j, nil
}

func (s *memStore) sorted(keep func(jobs.Job) bool) []jobs.Job {
	out := make([]jobs.Job, 0)
	for _, j := range s.jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Title != out[b].Title {
			return out[a].Title < out[b].Title
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func (s *memStore) FindAll(_ context.Context) ([]jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(jobs.Job) bool { return true }), nil
}

func (s *memStore) Filter(_ context.Context, o jobs.FilterOptions) ([]jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted(func(j jobs.Job) bool {
		if o.Title != nil && !strings.Contains(strings.ToLower(j.Title), strings.ToLower(*o.Title)) {
			return false
		}
		if o.MinSalary != nil && (j.Salary == nil || *j.Salary < *o.MinSalary) {
			return false
		}
		if o.HasEquity != nil && *o.HasEquity {
			if j.Equity == nil {
				return false
			}
			if f, _ := strconv.ParseFloat(*j.Equity, 64); f <= 0 {
				return false
			}
		}
		return true
	})
	if len(out) == 0 {
		return nil, jobs.ErrNotFound
	}
	return out, nil
}

func (s *memStore) Get(_ context.Context, id int) (*jobs.JobDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if outOfRange(id) {
		return nil, errInt4Range
	}
	j, ok := s.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return &jobs.JobDetail{
		ID: j.ID, Title: j.Title, Salary: j.Salary, Equity: j.Equity,
		Company: s.companies[j.CompanyHandle],
	}, nil
}

func (s *memStore) Update(_ context.Context, id int, p jobs.JobPatch) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Empty() {
		return nil, &jobs.ValidationError{Msg: "no data"}
	}
	if outOfRange(id) {
		return nil, errInt4Range
	}
	j, ok := s.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	if p.CompanyHandle != nil {
		if _, ok := s.companies[*p.CompanyHandle]; !ok {
			return nil, jobs.ErrConstraint
		}
		j.CompanyHandle = *p.CompanyHandle
	}
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Salary != nil {
		j.Salary = p.Salary
	}
	if p.Equity != nil {
		j.Equity = p.Equity
	}
	s.jobs[id] = j
	return &j, nil
}

func (s *memStore) Remove(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if outOfRange(id) {
		return errInt4Range
	}
	if _, ok := s.jobs[id]; !ok {
		return jobs.ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *memStore) gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

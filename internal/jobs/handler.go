package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	log      *zap.Logger
}

var equityPattern = regexp.MustCompile(`^(0(\.\d+)?|1(\.0+)?|\.\d+)$`)

// NewHandler returns a configured Handler.
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	validate := validator.New()
	_ = validate.RegisterValidation("equity", func(fl validator.FieldLevel) bool {
		return equityPattern.MatchString(fl.Field().String())
	})
	return &Handler{svc: svc, validate: validate, log: log.Named("http")}
}

// RegisterRoutes mounts all jobs routes on mux.
//
//	POST   /jobs        → create a job (admin)
//	GET    /jobs        → list jobs, optionally filtered by title, minSalary, hasEquity
//	GET    /jobs/{id}   → one job with its company
//	PATCH  /jobs/{id}   → partial update (admin)
//	DELETE /jobs/{id}   → delete (admin)
//
// All routes expect the x-user-id header forwarded by the Gateway; mutating
// routes also require x-user-admin: true.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /jobs", h.requireAdmin(h.createJob))
	mux.HandleFunc("GET /jobs", h.requireUser(h.listJobs))
	mux.HandleFunc("GET /jobs/{id}", h.requireUser(h.getJob))
	mux.HandleFunc("PATCH /jobs/{id}", h.requireAdmin(h.updateJob))
	mux.HandleFunc("DELETE /jobs/{id}", h.requireAdmin(h.removeJob))
}

// ─── Auth ────────────────────────────────────────────────────────────────────

func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-user-id") == "" {
			jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(r.Header.Get("x-user-admin"), "true") {
			jsonError(w, "admin only", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	var body NewJob
	if err := decodeStrict(r, &body); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.svc.CreateJob(r.Context(), body)
	if err != nil {
		h.fail(w, "createJob", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"job": job})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if len(q) == 0 {
		all, err := h.svc.ListJobs(r.Context())
		if err != nil {
			h.fail(w, "listJobs", err)
			return
		}
		jsonOK(w, map[string]any{"jobs": all})
		return
	}

	opts, err := FilterOptionsFromQuery(q)
	if err != nil {
		h.log.Warn("filter coercion failed", zap.Error(err))
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	found, err := h.svc.FilterJobs(r.Context(), opts)
	if err != nil {
		h.fail(w, "filterJobs", err)
		return
	}
	jsonOK(w, map[string]any{"jobs": found})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		h.fail(w, "getJob", err)
		return
	}
	jsonOK(w, map[string]any{"job": job})
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body JobPatch
	if err := decodeStrict(r, &body); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.svc.UpdateJob(r.Context(), id, body)
	if err != nil {
		h.fail(w, "updateJob", err)
		return
	}
	jsonOK(w, map[string]any{"job": job})
}

func (h *Handler) removeJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.RemoveJob(r.Context(), id); err != nil {
		h.fail(w, "removeJob", err)
		return
	}
	jsonOK(w, map[string]string{"deleted": strconv.Itoa(id)})
}

// ─── Request parsing ─────────────────────────────────────────────────────────

// FilterOptionsFromQuery coerces the recognised query keys into FilterOptions.
// Unknown keys are ignored.
func FilterOptionsFromQuery(q url.Values) (FilterOptions, error) {
	var opts FilterOptions
	if q.Has("title") {
		t := q.Get("title")
		opts.Title = &t
	}
	if q.Has("minSalary") {
		n, err := strconv.Atoi(q.Get("minSalary"))
		if err != nil {
			return opts, fmt.Errorf("minSalary: %w", err)
		}
		opts.MinSalary = &n
	}
	if q.Has("hasEquity") {
		b, err := strconv.ParseBool(q.Get("hasEquity"))
		if err != nil {
			return opts, fmt.Errorf("hasEquity: %w", err)
		}
		opts.HasEquity = &b
	}
	return opts, nil
}

// decodeStrict rejects unknown keys, which covers an attempt to patch id.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// pathID parses {id}. An id that is not numeric or does not fit the int4 id
// column can never match a job, so it is a 404.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		jsonError(w, ErrNotFound.Error(), http.StatusNotFound)
		return 0, false
	}
	return int(id), true
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// fail maps service errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrConstraint), errors.As(err, &ve):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error(op+" failed", zap.Error(err))
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{"error": map[string]any{"message": msg, "status": code}})
}

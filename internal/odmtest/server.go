// Package odmtest provides an in-process fake of the ODM import and linking
// API for tests. State lives in an in-memory SQLite database.
package odmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Options tune the fake's behavior.
type Options struct {
	// Token, when set, is required in the Genestack-API-Token header.
	Token string

	// PollsBeforeDone is the number of RUNNING answers a job gives before
	// reaching its terminal status.
	PollsBeforeDone int

	// FailImports maps a data link to the diagnostic of a job that ends
	// in FAILED.
	FailImports map[string]string

	// FailRelations maps a relation name to the body of a 500 response
	// returned for every link call on that relation.
	FailRelations map[string]string

	// Unregistered lists group accessions that are linked but never
	// reported by the study groups endpoint.
	Unregistered map[string]bool

	Logger *slog.Logger
}

// Server is the fake service.
type Server struct {
	router chi.Router
	store  *store
	opts   Options
	logger *slog.Logger
}

// New creates a fake service with a default template TPL1.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	st, err := newStore(context.Background(), logger)
	if err != nil {
		return nil, err
	}
	if err := st.putTemplate(context.Background(), "TPL1", "Default template", true); err != nil {
		st.close()
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		store:  st,
		opts:   opts,
		logger: logger.With("component", "odmtest"),
	}
	s.routes()
	return s, nil
}

// Start runs a fake service on a local port for the duration of the test.
func Start(t testing.TB, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("odmtest: %v", err)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the database.
func (s *Server) Close() error {
	return s.store.close()
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(s.tokenMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs/import/{kind}", s.handleSubmit)
		r.Get("/jobs/{id}/info", s.handleJobInfo)
		r.Get("/jobs/{id}/output", s.handleJobOutput)
		r.Post("/links/{relation}/{source}/to/{target}", s.handleLink)
		r.Get("/studies/{accession}", s.handleEntity("study"))
		r.Get("/studies/{accession}/groups/{kind}", s.handleStudyGroups)
		r.Get("/templates", s.handleTemplates)
		r.Get("/mapping-files/{accession}", s.handleEntity("mapping-file"))
		r.Post("/mapping-files", s.handleUploadMappingFile)
	})
}

// AddEntity seeds an existing entity, e.g. a study given by accession.
func (s *Server) AddEntity(kind, accession string) error {
	return s.store.putEntity(context.Background(), accession, kind, "")
}

// Jobs returns all submitted jobs in submission order.
func (s *Server) Jobs() ([]*Job, error) {
	return s.store.listJobs(context.Background())
}

// Links returns all recorded relations in creation order.
func (s *Server) Links() ([]Link, error) {
	return s.store.listLinks(context.Background())
}

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// requestIDMiddleware echoes the client's X-Request-ID or assigns one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.New().String()[:8]
		}
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			reqID, _ := r.Context().Value(ctxKeyRequestID).(string)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
				"request_id", reqID,
			)
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) tokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Genestack-API-Token") != s.opts.Token {
			respondError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

type importRequest struct {
	DataLink                  string `json:"dataLink"`
	MetadataLink              string `json:"metadataLink"`
	TemplateID                string `json:"templateId"`
	Source                    string `json:"source"`
	PreviousVersion           string `json:"previousVersion"`
	NumberOfFeatureAttributes *int   `json:"numberOfFeatureAttributes"`
	DataClass                 string `json:"dataClass"`
	MeasurementSeparator      string `json:"measurementSeparator"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := chi.URLParam(r, "kind")
	if _, ok := prefixes[kind]; !ok || kind == "mapping-file" {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown import kind %q", kind))
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	link := req.DataLink
	if link == "" {
		link = req.MetadataLink
	}
	if link == "" {
		respondError(w, http.StatusBadRequest, "dataLink or metadataLink is required")
		return
	}
	if kind == "study" && req.TemplateID == "" {
		respondError(w, http.StatusBadRequest, "templateId is required for study import")
		return
	}

	existing, err := s.store.findJob(ctx, kind, link)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing != nil {
		respondError(w, http.StatusConflict,
			fmt.Sprintf("job instance already exists for link %s: jobExecId=%d", link, existing.ID))
		return
	}

	job := &Job{
		Kind:            kind,
		DataLink:        link,
		MetadataLink:    req.MetadataLink,
		TemplateID:      req.TemplateID,
		Source:          req.Source,
		PreviousVersion: req.PreviousVersion,
		PollsLeft:       s.opts.PollsBeforeDone,
		Failure:         s.opts.FailImports[link],
	}
	if job.Failure == "" {
		job.Accession, err = s.store.createEntity(ctx, kind, link)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := s.store.createJob(ctx, job); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"jobExecId": job.ID})
}

func (s *Server) jobFromPath(w http.ResponseWriter, r *http.Request) *Job {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return nil
	}
	job, err := s.store.getJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if job == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("job %d not found", id))
		return nil
	}
	return job
}

func jobStatus(j *Job) string {
	switch {
	case j.PollsLeft > 0:
		return "RUNNING"
	case j.Failure != "":
		return "FAILED"
	}
	return "COMPLETED"
}

func (s *Server) handleJobInfo(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromPath(w, r)
	if job == nil {
		return
	}
	status := jobStatus(job)
	if job.PollsLeft > 0 {
		if err := s.store.decrementPolls(r.Context(), job.ID); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleJobOutput(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromPath(w, r)
	if job == nil {
		return
	}
	status := jobStatus(job)
	switch status {
	case "FAILED":
		respondJSON(w, http.StatusOK, map[string]any{"status": status, "errors": []string{job.Failure}})
	case "COMPLETED":
		result := map[string]string{"groupAccession": job.Accession}
		if job.Kind == "study" {
			result = map[string]string{"accession": job.Accession}
		}
		respondJSON(w, http.StatusOK, map[string]any{"status": status, "result": result})
	default:
		respondJSON(w, http.StatusOK, map[string]any{"status": status})
	}
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	relation := chi.URLParam(r, "relation")
	l := Link{Relation: relation, Source: chi.URLParam(r, "source"), Target: chi.URLParam(r, "target")}

	if body, ok := s.opts.FailRelations[relation]; ok {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, body)
		return
	}

	srcKind, dstKind, ok := relationKinds(relation)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown relation %q", relation))
		return
	}
	for _, end := range []struct{ acc, kind string }{{l.Source, srcKind}, {l.Target, dstKind}} {
		kind, err := s.store.entityKind(ctx, end.acc)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if kind != end.kind {
			respondError(w, http.StatusNotFound, fmt.Sprintf("no %s with accession %s", end.kind, end.acc))
			return
		}
	}

	if err := s.store.addLink(ctx, l); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEntity(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc := chi.URLParam(r, "accession")
		got, err := s.store.entityKind(r.Context(), acc)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if got != kind {
			respondError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, acc))
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"accession": acc})
	}
}

func (s *Server) handleStudyGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.studyGroups(r.Context(), chi.URLParam(r, "accession"), chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	registered := groups[:0]
	for _, g := range groups {
		if !s.opts.Unregistered[g] {
			registered = append(registered, g)
		}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"groups": registered})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.listTemplates(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, templates)
}

func (s *Server) handleUploadMappingFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DataLink == "" {
		respondError(w, http.StatusBadRequest, "dataLink is required")
		return
	}
	if msg, ok := s.opts.FailImports[req.DataLink]; ok {
		respondError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	acc, err := s.store.entityByLink(ctx, "mapping-file", req.DataLink)
	if err == nil && acc == "" {
		acc, err = s.store.createEntity(ctx, "mapping-file", req.DataLink)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"accession": acc})
}

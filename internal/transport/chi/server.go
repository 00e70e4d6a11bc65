// Package chi serves the admin HTTP API: health, metrics and the endpoints
// that inject crawl, assembly and reindex requests into the pipeline.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/crawl"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/metrics"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/pipeline"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/transport/jetstream"
	healthuc "github.com/UMD-DRASTIC/drastic-trellis/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Error codes returned in errorResponse.
const (
	codeBadRequest    = "bad_request"
	codeUnauthorized  = "unauthorized"
	codePublishFailed = "publish_failed"
	codeInternal      = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type acceptedResponse struct {
	Subject string `json:"subject"`
	IRI     string `json:"iri"`
	CrawlID string `json:"crawlId,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Publisher sends a payload to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Server implements the admin API handlers.
type Server struct {
	pub      Publisher
	subjects jetstream.Subjects
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates an admin API server.
func NewServer(pub Publisher, subjects jetstream.Subjects, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{pub: pub, subjects: subjects, health: health, logger: logger}
}

// Router builds the chi router with the middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/crawl", s.Crawl)
	r.Post("/paged-documents", s.AssemblePagedDocuments)
	r.Post("/reindex", s.Reindex)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// Crawl handles POST /crawl. A crawl id is assigned when missing so the
// visited set can track the run.
func (s *Server) Crawl(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := crawl.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := pipeline.ValidateIRI(req.StartURI); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if _, err := s.subjects.Topic(req.Topic); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.CrawlID == "" {
		req.CrawlID = uuid.NewString()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	s.publish(w, r, s.subjects.Crawl(), payload, acceptedResponse{IRI: req.StartURI, CrawlID: req.CrawlID})
}

// AssemblePagedDocuments handles POST /paged-documents.
func (s *Server) AssemblePagedDocuments(w http.ResponseWriter, r *http.Request) {
	s.enqueueIRI(w, r, s.subjects.PagedDocuments())
}

// Reindex handles POST /reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	s.enqueueIRI(w, r, s.subjects.GraphChanged())
}

func (s *Server) enqueueIRI(w http.ResponseWriter, r *http.Request, subject string) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	iri, err := pipeline.ParseIRI(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	s.publish(w, r, subject, []byte(iri), acceptedResponse{IRI: iri})
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request, subject string, payload []byte, resp acceptedResponse) {
	log := logger.FromContext(r.Context())
	if err := s.pub.Publish(r.Context(), subject, payload); err != nil {
		log.Error("publish failed", zap.String("subject", subject), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, codePublishFailed, "event bus unavailable")
		return
	}
	resp.Subject = subject
	log.Info("request enqueued", zap.String("subject", subject), zap.String("iri", resp.IRI))
	writeJSON(w, http.StatusAccepted, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return nil, false
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, domain.ErrMalformedPayload.Error())
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

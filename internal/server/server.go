// Package server is the HTTP boundary of the gateway. It parses bodies and
// headers into what the pipeline expects, assigns submission ids, and maps
// pipeline failures onto HTTP responses.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navikt/omsorgspenger-mottak/internal/broker"
	"github.com/navikt/omsorgspenger-mottak/internal/document"
	"github.com/navikt/omsorgspenger-mottak/internal/health"
	"github.com/navikt/omsorgspenger-mottak/internal/ids"
	"github.com/navikt/omsorgspenger-mottak/internal/jsoncodec"
	"github.com/navikt/omsorgspenger-mottak/internal/logging"
	"github.com/navikt/omsorgspenger-mottak/internal/metadata"
	"github.com/navikt/omsorgspenger-mottak/internal/submission"
)

// Submitter is the slice of the submission service the boundary depends on.
type Submitter interface {
	Submit(ctx context.Context, id submission.SubmissionID, md metadata.Metadata, in submission.Incoming) (submission.SubmissionID, error)
}

// Server routes the three intake operations plus the operational endpoints.
type Server struct {
	router *chi.Mux
	logger logging.ServiceLogger
}

// Options carries the collaborators the server hands requests to.
type Options struct {
	Primary     Submitter
	DayTransfer Submitter
	Followup    Submitter
	Checkers    []health.Checker
	Metrics     bool
	Logger      logging.ServiceLogger
}

// New builds the HTTP handler for the gateway.
func New(opts Options) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: opts.Logger,
	}

	s.router.Post("/v1/application", s.handleSubmit(submission.Primary, opts.Primary))
	s.router.Post("/v1/application/day-transfer", s.handleSubmit(submission.DayTransfer, opts.DayTransfer))
	s.router.Post("/v1/followup", s.handleSubmit(submission.Followup, opts.Followup))

	s.router.Get("/isalive", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ALIVE"))
	})
	s.router.Get("/isready", s.handleHealth(opts.Checkers))
	s.router.Get("/health", s.handleHealth(opts.Checkers))

	if opts.Metrics {
		s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleSubmit(variant submission.Variant, submitter Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		md, ok := metadataFromRequest(r)
		if !ok {
			s.respondError(w, http.StatusBadRequest, "correlation id is required")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "could not read request body")
			return
		}

		in, err := submission.Parse(variant, body)
		if err != nil {
			s.logger.Info("Rejecting malformed payload", logging.LogFields{
				"variant": variant.Name,
				"error":   err.Error(),
			})
			s.respondError(w, http.StatusBadRequest, "malformed payload")
			return
		}

		if violations := submission.Validate(in); len(violations) > 0 {
			s.respondJSON(w, http.StatusBadRequest, map[string]any{"violations": violations})
			return
		}

		id := ids.NewSubmissionID()
		if _, err := submitter.Submit(r.Context(), id, md, in); err != nil {
			s.respondPipelineError(w, variant, id, err)
			return
		}

		s.respondJSON(w, http.StatusAccepted, map[string]string{"id": string(id)})
	}
}

func (s *Server) respondPipelineError(w http.ResponseWriter, variant submission.Variant, id submission.SubmissionID, err error) {
	s.logger.Error("Submission failed", err, logging.LogFields{
		"variant":       variant.Name,
		"submission_id": string(id),
	})

	var storeErr *document.StoreError
	var publishErr *broker.PublishError
	switch {
	case errors.As(err, &storeErr):
		s.respondError(w, http.StatusBadGateway, "could not store attachments")
	case errors.As(err, &publishErr):
		s.respondError(w, http.StatusBadGateway, "could not queue submission")
	default:
		s.respondError(w, http.StatusInternalServerError, "submission failed")
	}
}

func (s *Server) handleHealth(checkers []health.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, healthy := health.CheckAll(r.Context(), checkers)
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		s.respondJSON(w, status, map[string]any{"checks": results})
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoncodec.Encode(w, body); err != nil {
		s.logger.Error("Writing response failed", err, nil)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, reason string) {
	s.respondJSON(w, status, map[string]string{"error": reason})
}

// metadataFromRequest extracts the caller metadata. The correlation id is
// required; a missing request id gets a generated one so downstream log
// correlation always has something to hold on to.
func metadataFromRequest(r *http.Request) (metadata.Metadata, bool) {
	correlationID := r.Header.Get(metadata.HeaderCorrelationID)
	if correlationID == "" {
		return metadata.Metadata{}, false
	}
	requestID := r.Header.Get(metadata.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return metadata.Metadata{
		Version:       broker.SupportedVersion,
		CorrelationID: correlationID,
		RequestID:     requestID,
	}, true
}

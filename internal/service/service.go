// Package service orchestrates the submission pipeline: offload attachments,
// build the outgoing record, publish, return the id. One Service exists per
// variant; the pipeline stages run sequentially within the request.
package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/navikt/omsorgspenger-mottak/internal/broker"
	"github.com/navikt/omsorgspenger-mottak/internal/document"
	"github.com/navikt/omsorgspenger-mottak/internal/logging"
	"github.com/navikt/omsorgspenger-mottak/internal/metadata"
	"github.com/navikt/omsorgspenger-mottak/internal/metrics"
	"github.com/navikt/omsorgspenger-mottak/internal/submission"
)

// DocumentStore offloads attachment bytes and returns their stored locations.
type DocumentStore interface {
	Store(ctx context.Context, docs []submission.Attachment, owner submission.ApplicantID, correlationID string) ([]string, error)
}

// Producer publishes an outgoing submission and blocks until acknowledged.
type Producer interface {
	Produce(ctx context.Context, md metadata.Metadata, out submission.Outgoing) error
}

// Service runs the pipeline for one submission variant.
type Service struct {
	variant   submission.Variant
	documents DocumentStore
	producer  Producer
	logger    logging.ServiceLogger
	metrics   *metrics.IntakeMetrics
}

// New builds the service for a variant. The document store may be nil for
// variants that carry no attachments.
func New(variant submission.Variant, documents DocumentStore, producer Producer, logger logging.ServiceLogger, m *metrics.IntakeMetrics) *Service {
	return &Service{
		variant:   variant,
		documents: documents,
		producer:  producer,
		logger:    logger.With(logging.LogFields{"variant": variant.Name}),
		metrics:   m,
	}
}

// Submit runs the validated submission through the pipeline and returns the
// same id once the broker has acknowledged the record. Any failure aborts the
// whole operation; already-stored documents are not rolled back.
func (s *Service) Submit(ctx context.Context, id submission.SubmissionID, md metadata.Metadata, in submission.Incoming) (submission.SubmissionID, error) {
	tracer := otel.Tracer("mottak-submission")
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("submission.variant", s.variant.Name),
		attribute.String("submission.id", string(id)),
	)

	started := time.Now()
	s.metrics.ObserveReceived(s.variant.Name)

	out, err := s.process(ctx, id, md, in)
	if err != nil {
		s.metrics.ObserveFailure(s.variant.Name, failureReason(err))
		return "", err
	}

	if err := s.producer.Produce(ctx, md, out); err != nil {
		s.metrics.ObserveFailure(s.variant.Name, failureReason(err))
		return "", err
	}

	s.metrics.ObservePublished(s.variant.Name, time.Since(started))
	return id, nil
}

func (s *Service) process(ctx context.Context, id submission.SubmissionID, md metadata.Metadata, in submission.Incoming) (submission.Outgoing, error) {
	if s.variant.NormalizeTitles {
		in = in.WithNormalizedTitles()
	}

	for _, role := range s.variant.Roles {
		urls, err := s.offload(ctx, md.CorrelationID, in, role.Key)
		if err != nil {
			return submission.Outgoing{}, err
		}
		in = in.WithAttachmentURLs(role.Key, urls)
	}

	s.logger.Trace("Queueing submission", logging.LogFields{"submission_id": string(id)})
	return in.WithSubmissionID(id).ToOutgoing()
}

func (s *Service) offload(ctx context.Context, correlationID string, in submission.Incoming, role submission.Role) ([]string, error) {
	docs := in.Attachments(role)
	if len(docs) == 0 {
		return []string{}, nil
	}

	s.logger.Trace("Storing attachments", logging.LogFields{
		"role":  string(role),
		"count": len(docs),
	})
	return s.documents.Store(ctx, docs, in.Applicant(), correlationID)
}

func failureReason(err error) string {
	var storeErr *document.StoreError
	var publishErr *broker.PublishError
	switch {
	case errors.As(err, &storeErr):
		return "document_store"
	case errors.As(err, &publishErr):
		return "broker"
	case errors.Is(err, broker.ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, submission.ErrIncompleteTransform):
		return "incomplete_transform"
	default:
		return "internal"
	}
}

// Package document offloads attachment bytes to the external document store,
// replacing them with addressable locations before anything is published.
package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/navikt/omsorgspenger-mottak/internal/jsoncodec"
	"github.com/navikt/omsorgspenger-mottak/internal/logging"
	"github.com/navikt/omsorgspenger-mottak/internal/metadata"
	"github.com/navikt/omsorgspenger-mottak/internal/submission"
)

// HeaderDocumentOwner carries the actor id owning the stored documents.
const HeaderDocumentOwner = "X-Document-Owner"

// StoreError wraps a transport or storage failure during offload. The gateway
// never retries it; the whole submission aborts.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("mottak: document offload failed: %v", e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Client stores attachments in the document store over HTTP. One instance is
// shared by all pipelines; it is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.ServiceLogger
}

// NewClient creates a document store client against the given base URL.
func NewClient(baseURL string, logger logging.ServiceLogger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Store offloads the distinct documents among the given attachments and
// returns one URL per distinct document. Duplicates by structural equality
// collapse to a single stored document. Documents are stored one at a time in
// first-seen order, so the returned URLs correspond positionally to the
// distinct attachments. Any failure aborts with a StoreError and no URLs.
func (c *Client) Store(ctx context.Context, docs []submission.Attachment, owner submission.ApplicantID, correlationID string) ([]string, error) {
	distinct := distinctDocuments(docs)

	c.logger.Info("Storing documents", logging.LogFields{
		"count":    len(distinct),
		"received": len(docs),
	})

	urls := make([]string, 0, len(distinct))
	for _, doc := range distinct {
		url, err := c.storeOne(ctx, doc, owner, correlationID)
		if err != nil {
			return nil, &StoreError{Err: err}
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (c *Client) storeOne(ctx context.Context, doc submission.Attachment, owner submission.ApplicantID, correlationID string) (string, error) {
	body, err := jsoncodec.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshalling document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/documents", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(metadata.HeaderCorrelationID, correlationID)
	req.Header.Set(HeaderDocumentOwner, string(owner))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("document store responded with status %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("document store response carries no location")
	}
	return location, nil
}

// distinctDocuments collapses structural duplicates, keeping first-seen order.
func distinctDocuments(docs []submission.Attachment) []submission.Attachment {
	seen := make(map[[sha256.Size]byte]struct{}, len(docs))
	distinct := make([]submission.Attachment, 0, len(docs))
	for _, doc := range docs {
		key := documentKey(doc)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, doc)
	}
	return distinct
}

func documentKey(doc submission.Attachment) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(doc.ContentType))
	h.Write([]byte{0})
	h.Write([]byte(doc.Title))
	h.Write([]byte{0})
	h.Write(doc.Content)
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}

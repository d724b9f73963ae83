package redact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bricker/vivial-sub003/internal/errors"
)

// Classifier reaches the external text-redaction service over HTTP. The
// service owns the PII category model; this client only moves text.
type Classifier struct {
	endpoint string
	client   *http.Client
}

// classifyRequest is the wire shape of a classifier call.
type classifyRequest struct {
	Texts []string `json:"texts"`
}

// classifyResponse is the wire shape of a classifier response.
type classifyResponse struct {
	Texts []string `json:"texts"`
}

// NewClassifier creates a classifier client for the given endpoint.
func NewClassifier(endpoint string, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Redact sends the batch to the classifier and returns the rewritten texts.
func (c *Classifier) Redact(ctx context.Context, texts []string) ([]string, error) {
	body, err := json.Marshal(classifyRequest{Texts: texts})
	if err != nil {
		return nil, errors.NewRedactionError("failed to encode classifier request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/redact", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewRedactionError("failed to build classifier request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewRedactionError("classifier call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewRedactionError(fmt.Sprintf("classifier returned status %d", resp.StatusCode), nil)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.NewRedactionError("failed to decode classifier response", err)
	}
	if len(decoded.Texts) != len(texts) {
		return nil, errors.NewRedactionError(
			fmt.Sprintf("classifier returned %d texts for %d inputs", len(decoded.Texts), len(texts)), nil)
	}
	return decoded.Texts, nil
}

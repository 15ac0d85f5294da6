package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TimeoutEntityCall bounds a single recognizer sidecar request.
const TimeoutEntityCall = 10 * time.Second

// HTTPRecognizer calls a spaCy-style NER sidecar over HTTP. The sidecar
// contract is POST {baseURL}/entities with {"text": ...} returning
// {"entities": [{tag, start, end, text}, ...]}.
type HTTPRecognizer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRecognizer creates a recognizer client pointing at the given base
// URL. If baseURL is empty, defaults to http://localhost:8321.
func NewHTTPRecognizer(baseURL string) *HTTPRecognizer {
	if baseURL == "" {
		baseURL = "http://localhost:8321"
	}
	return &HTTPRecognizer{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

type entitiesRequest struct {
	Text string `json:"text"`
}

type entitiesResponse struct {
	Entities []Entity `json:"entities"`
}

// Entities sends text to the sidecar and returns the typed entities it found.
func (r *HTTPRecognizer) Entities(ctx context.Context, text string) ([]Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, TimeoutEntityCall)
	defer cancel()

	body, err := json.Marshal(entitiesRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshalling entities request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/entities", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating entities request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("entities api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entities api call: status %d", resp.StatusCode)
	}

	var apiResp entitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding entities response: %w", err)
	}
	return apiResp.Entities, nil
}

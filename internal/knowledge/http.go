package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPSource queries a remote search service that speaks the collaborator
// contract as JSON: POST {query, scope}, reply {hits: [...]}.
type HTTPSource struct {
	name     string
	scope    Scope
	endpoint string
	client   *http.Client
}

// NewHTTPSource creates a source posting to endpoint. client may be nil.
func NewHTTPSource(name string, scope Scope, endpoint string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{name: name, scope: scope, endpoint: endpoint, client: client}
}

func (s *HTTPSource) Name() string { return s.name }
func (s *HTTPSource) Scope() Scope { return s.scope }

// Search posts the query. A 404 is an empty response; any other non-2xx
// status is an error.
func (s *HTTPSource) Search(ctx context.Context, q Query) (Response, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return Response{}, fmt.Errorf("encoding query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("querying %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Response{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("querying %s: status %d: %s", s.name, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decoding %s response: %w", s.name, err)
	}
	return out, nil
}

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 512

// RemoteModel calls an inference sidecar that serves the trained classifier:
//
//	GET  /metadata       -> {"classes": [...], "features": [...]}
//	POST /predict_proba  {"features": [...], "rows": [[...]]} -> {"probabilities": [[...]]}
type RemoteModel struct {
	baseURL  string
	client   *http.Client
	classes  []string
	features []string
}

type metadataResponse struct {
	Classes  []string `json:"classes"`
	Features []string `json:"features"`
}

type predictRequest struct {
	Features []string    `json:"features,omitempty"`
	Rows     [][]float64 `json:"rows"`
}

type predictResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// DialRemote fetches the sidecar metadata and returns a ready predictor.
func DialRemote(ctx context.Context, baseURL string, timeout time.Duration, client *http.Client) (*RemoteModel, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: empty url", ErrRemote)
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	m := &RemoteModel{baseURL: strings.TrimRight(baseURL, "/"), client: client}

	var meta metadataResponse
	if err := m.call(ctx, http.MethodGet, "/metadata", nil, &meta); err != nil {
		return nil, err
	}
	if len(meta.Classes) < 2 {
		return nil, fmt.Errorf("%w: metadata lists %d classes", ErrRemoteShape, len(meta.Classes))
	}
	m.classes, m.features = meta.Classes, meta.Features
	return m, nil
}

func (m *RemoteModel) Classes() []string  { return append([]string(nil), m.classes...) }
func (m *RemoteModel) Features() []string { return append([]string(nil), m.features...) }

// PredictProba posts rows to the sidecar.
func (m *RemoteModel) PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error) {
	var resp predictResponse
	if err := m.call(ctx, http.MethodPost, "/predict_proba", predictRequest{Features: m.features, Rows: rows}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Probabilities) != len(rows) {
		return nil, fmt.Errorf("%w: %d rows returned for %d sent", ErrRemoteShape, len(resp.Probabilities), len(rows))
	}
	return resp.Probabilities, nil
}

func (m *RemoteModel) call(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrRemote, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRemote, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrRemote, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrRemoteShape, path, err)
	}
	return nil
}

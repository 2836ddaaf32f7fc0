package churnapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/refset/churn-insight-dashboard/internal/customer"
)

// Client is a client for the churn prediction backend. It is safe for
// concurrent use; each call issues exactly one request and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client. A zero timeout leaves requests
// bounded only by the transport defaults.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// PredictionResult is one model's label for the submitted customer.
type PredictionResult struct {
	Model      string `json:"model"`
	Prediction string `json:"prediction"`
}

// PredictionResponse is the backend's answer to /predict: an echo of the
// customer and one result per model, in backend order.
type PredictionResponse struct {
	Customer    map[string]string  `json:"customer"`
	Predictions []PredictionResult `json:"predictions"`
}

// EvaluationBundle is the raw top-level object returned by one evaluation
// endpoint. Its shape depends on the endpoint kind.
type EvaluationBundle struct {
	Endpoint Endpoint
	Fields   map[string]json.RawMessage
}

type predictionWire struct {
	Customer    map[string]string `json:"customer"`
	Predictions []struct {
		Model      *string `json:"model"`
		Prediction *string `json:"prediction"`
	} `json:"predictions"`
}

// Predict submits a validated customer record and returns every model's
// prediction.
func (c *Client) Predict(ctx context.Context, rec customer.Record) (PredictionResponse, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return PredictionResponse{}, err
	}

	var wire predictionWire
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/predict", body, &wire); err != nil {
		return PredictionResponse{}, err
	}
	if wire.Customer == nil {
		return PredictionResponse{}, Malformed("predict: missing customer object")
	}
	if wire.Predictions == nil {
		return PredictionResponse{}, Malformed("predict: missing predictions list")
	}

	resp := PredictionResponse{
		Customer:    wire.Customer,
		Predictions: make([]PredictionResult, 0, len(wire.Predictions)),
	}
	for i, p := range wire.Predictions {
		if p.Model == nil || *p.Model == "" || p.Prediction == nil {
			return PredictionResponse{}, Malformed("predict: prediction %d lacks model or label", i)
		}
		resp.Predictions = append(resp.Predictions, PredictionResult{Model: *p.Model, Prediction: *p.Prediction})
	}
	return resp, nil
}

// FetchBundle fetches the raw evaluation bundle of one endpoint.
func (c *Client) FetchBundle(ctx context.Context, endpoint Endpoint) (EvaluationBundle, error) {
	if _, ok := endpoints[endpoint]; !ok {
		return EvaluationBundle{}, fmt.Errorf("unknown endpoint %q", endpoint)
	}

	var fields map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.baseURL+endpoint.Path(), nil, &fields); err != nil {
		return EvaluationBundle{}, err
	}
	if fields == nil {
		return EvaluationBundle{}, Malformed("%s: body is not an object", endpoint)
	}
	return EvaluationBundle{Endpoint: endpoint, Fields: fields}, nil
}

// Ping checks connectivity to the backend health route.
func (c *Client) Ping(ctx context.Context) error {
	var ignored json.RawMessage
	return c.do(ctx, http.MethodGet, c.baseURL+"/", nil, &ignored)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, result any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: read body: %w", ErrNetwork, method, url, err)
	}
	log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestFailedError{Method: method, URL: url, Status: resp.StatusCode, Message: backendMessage(data)}
	}
	if err := json.Unmarshal(data, result); err != nil {
		return Malformed("%s %s: %v", method, url, err)
	}
	return nil
}

// backendMessage extracts {"error": "..."} from a failure body, falling back
// to the first line of the raw body.
func backendMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(data))
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

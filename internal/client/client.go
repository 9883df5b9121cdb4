// Package client talks to the exam server on behalf of a candidate.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stemsi/exstem-access/internal/model"
	"github.com/stemsi/exstem-access/internal/response"
)

// APIError is a non-2xx reply decoded from the response envelope.
type APIError struct {
	Status  int
	Code    response.ErrCode
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code response.ErrCode) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client is an HTTP client for the candidate routes.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// VerifyCode opens the test behind code.
func (c *Client) VerifyCode(ctx context.Context, code string) (*model.VerifyCodeResponse, error) {
	var out model.VerifyCodeResponse
	if err := c.post(ctx, "/test/verify-code", model.VerifyCodeRequest{Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitExam sends the finished attempt and returns the graded result.
func (c *Client) SubmitExam(ctx context.Context, req *model.SubmitExamRequest) (*model.Result, error) {
	var out model.Result
	if err := c.post(ctx, "/test/submit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || env.Error != nil {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

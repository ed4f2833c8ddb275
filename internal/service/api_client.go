package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"insightai/internal/model"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GenericAPIError is shown when the backend gives no message of its own
const GenericAPIError = "Request failed. Please try again."

var ErrInvalidQuestionCount = fmt.Errorf("number of questions must be between %d and %d", model.MinQuestions, model.MaxQuestions)

// APIError is a failed backend call. Status is 0 for transport failures.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend unreachable: %s", e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsNotFound reports whether the backend answered 404
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// UserMessage returns the message to show a user: the server's own text when present,
// otherwise fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status != 0 && apiErr.Message != "" && apiErr.Message != GenericAPIError {
		return apiErr.Message
	}
	return fallback
}

// APIClient wraps the survey backend REST API
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for the backend at baseURL (without the /api suffix)
func NewAPIClient(baseURL, token string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// doRequest performs one HTTP call and decodes the JSON response into out (if non-nil).
// There are no retries; every failure goes back to the caller.
func (c *APIClient) doRequest(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[API Client] ERROR: %s %s failed: %v", method, path, err)
		return &APIError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[API Client] ERROR: failed to read response body: %v", err)
		return &APIError{Status: resp.StatusCode, Message: GenericAPIError, Err: err}
	}

	if resp.StatusCode >= 400 {
		msg := errorMessage(respBody)
		log.Printf("[API Client] ERROR: %s %s returned %d: %s", method, path, resp.StatusCode, msg)
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: GenericAPIError, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// errorMessage pulls {"error": "..."} or {"message": "..."} out of an error body
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return GenericAPIError
}

// GenerateSurvey asks the backend to draft a survey for a research goal
func (c *APIClient) GenerateSurvey(ctx context.Context, req model.GenerateSurveyRequest) (*model.Survey, error) {
	if req.NumQuestions < model.MinQuestions || req.NumQuestions > model.MaxQuestions {
		return nil, ErrInvalidQuestionCount
	}
	var survey model.Survey
	if err := c.doRequest(ctx, http.MethodPost, "/surveys/generate", req, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

// ListSurveys lists survey summaries
func (c *APIClient) ListSurveys(ctx context.Context) ([]model.Survey, error) {
	var surveys []model.Survey
	if err := c.doRequest(ctx, http.MethodGet, "/surveys", nil, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

// GetSurvey fetches one survey with its questions
func (c *APIClient) GetSurvey(ctx context.Context, surveyID string) (*model.Survey, error) {
	var survey model.Survey
	if err := c.doRequest(ctx, http.MethodGet, "/surveys/"+url.PathEscape(surveyID), nil, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

// DeleteSurvey deletes a survey and all its data
func (c *APIClient) DeleteSurvey(ctx context.Context, surveyID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/surveys/"+url.PathEscape(surveyID), nil, nil)
}

// StartResponse opens a new response for a survey, tagged with the collection channel
func (c *APIClient) StartResponse(ctx context.Context, surveyID, channel string) (string, error) {
	if channel == "" {
		channel = model.ChannelWeb
	}
	var result model.StartResponseResult
	path := fmt.Sprintf("/surveys/%s/responses/start", url.PathEscape(surveyID))
	if err := c.doRequest(ctx, http.MethodPost, path, model.StartResponseRequest{Channel: channel}, &result); err != nil {
		return "", err
	}
	if result.ResponseID == "" {
		return "", &APIError{Status: http.StatusOK, Message: GenericAPIError, Err: errors.New("missing responseId")}
	}
	return result.ResponseID, nil
}

// SubmitAnswer stores one answer; the acknowledgement may carry a follow-up prompt
func (c *APIClient) SubmitAnswer(ctx context.Context, responseID string, req model.AnswerRequest) (*model.AnswerAck, error) {
	var ack model.AnswerAck
	path := fmt.Sprintf("/responses/%s/answer", url.PathEscape(responseID))
	if err := c.doRequest(ctx, http.MethodPost, path, req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// CompleteResponse marks a response completed
func (c *APIClient) CompleteResponse(ctx context.Context, responseID string) error {
	path := fmt.Sprintf("/responses/%s/complete", url.PathEscape(responseID))
	return c.doRequest(ctx, http.MethodPatch, path, nil, nil)
}

// GenerateInsights runs insight synthesis over the accumulated answers
func (c *APIClient) GenerateInsights(ctx context.Context, surveyID string) (*model.InsightReport, error) {
	var report model.InsightReport
	path := fmt.Sprintf("/surveys/%s/insights/generate", url.PathEscape(surveyID))
	if err := c.doRequest(ctx, http.MethodPost, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetInsights returns the current report, or nil when none has been generated yet
func (c *APIClient) GetInsights(ctx context.Context, surveyID string) (*model.InsightReport, error) {
	var report *model.InsightReport
	path := fmt.Sprintf("/surveys/%s/insights", url.PathEscape(surveyID))
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &report); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil, nil
		}
		return nil, err
	}
	return report, nil
}

// GetSurveyStats returns aggregate response statistics
func (c *APIClient) GetSurveyStats(ctx context.Context, surveyID string) (*model.SurveyStats, error) {
	var stats model.SurveyStats
	path := fmt.Sprintf("/surveys/%s/stats", url.PathEscape(surveyID))
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

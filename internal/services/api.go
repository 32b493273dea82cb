// Shared HTTP transport for provider API calls
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/portify/internal/shared"
	"golang.org/x/time/rate"
)

const defaultRateLimit = 10

// apiClient performs authenticated JSON requests against one provider API.
//
// Responses are decoded into caller-supplied shapes; transport status codes
// are mapped onto the package error contract (401 -> ErrUnauthorized,
// other non-2xx -> ErrProvider). A token-bucket limiter throttles calls so
// multi-call orchestrations stay inside provider quotas.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// newAPIClient creates a transport for the given base URL.
func newAPIClient(baseURL string, client *http.Client, rps float64) *apiClient {
	if client == nil {
		client = http.DefaultClient
	}
	if rps <= 0 {
		rps = defaultRateLimit
	}

	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// request performs a JSON API call against baseURL+path.
//
// A non-empty bearer is sent as an Authorization header. body (if any) is
// marshalled to JSON; result (if any) receives the decoded response body.
func (a *apiClient) request(ctx context.Context, method, path, bearer string, query url.Values, body, result any) error {
	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return a.do(req, result)
}

// postForm performs a form-encoded POST against an absolute URL, used for
// OAuth token refresh endpoints that live outside the API base URL.
func (a *apiClient) postForm(ctx context.Context, rawURL string, form url.Values, headers http.Header, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	return a.do(req, result)
}

// do executes a prepared request and decodes the JSON response.
func (a *apiClient) do(req *http.Request, result any) error {
	if err := a.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return shared.ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", shared.ErrProvider, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode body: %v", shared.ErrInvalidResponse, err)
		}
	}

	return nil
}

// basicAuthHeader builds an HTTP Basic credential value for OAuth clients
// that authenticate the refresh call with client id and secret.
func basicAuthHeader(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blogdeploy/models"
)

// asProviderError unwraps an error chain looking for a ProviderError
func asProviderError(err error, target **ProviderError) bool {
	return errors.As(err, target)
}

// apiClient is the shared JSON-over-HTTP helper every adapter builds on
type apiClient struct {
	platform   models.Platform
	httpClient *http.Client
}

func newAPIClient(platform models.Platform) *apiClient {
	return &apiClient{
		platform: platform,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doJSON performs one request against a platform API, marshaling the request
// body and decoding the response into out (when non-nil). Non-2xx responses
// become a ProviderError carrying the platform name and a body snippet.
func (c *apiClient) doJSON(ctx context.Context, method, url string, headers map[string]string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Platform: c.platform, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ProviderError{
			Platform:   c.platform,
			StatusCode: resp.StatusCode,
			Message:    string(snippet),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &ProviderError{
				Platform: c.platform,
				Message:  fmt.Sprintf("unexpected response shape: %v", err),
			}
		}
	}

	return nil
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

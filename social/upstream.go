package social

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// DoJSON sends req and decodes a 2xx JSON response body into out. Any other
// status is returned as an *UpstreamError carrying the status and body.
// out may be nil when the body is not needed.
func DoJSON(client *http.Client, provider, operation string, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request: %w", provider, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s read response: %w", provider, operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{
			Provider:   provider,
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s decode response: %w", provider, operation, err)
	}
	return nil
}

// FromRetrieveError converts a token endpoint failure reported by x/oauth2
// into an *UpstreamError. Other errors are wrapped unchanged.
func FromRetrieveError(provider, operation string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &UpstreamError{
			Provider:   provider,
			Operation:  operation,
			StatusCode: re.Response.StatusCode,
			Body:       string(re.Body),
		}
	}
	return fmt.Errorf("%s %s: %w", provider, operation, err)
}

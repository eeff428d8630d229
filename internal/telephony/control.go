package telephony

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Controller issues one-shot call-control actions against the provider.
// Failures are for the caller to log; nothing here retries.
type Controller interface {
	// Hangup ends the call. Fire-and-forget: a failed hangup must not block
	// teardown.
	Hangup(ctx context.Context, callID string) error
}

// RESTController implements Controller against a provider's call REST API.
type RESTController struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewRESTController creates a controller posting to baseURL with the given
// bearer token.
func NewRESTController(baseURL, authToken string) *RESTController {
	return &RESTController{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Hangup posts a completed-status update for the call.
func (c *RESTController) Hangup(ctx context.Context, callID string) error {
	form := url.Values{"Status": []string{"completed"}}
	endpoint := fmt.Sprintf("%s/calls/%s", c.baseURL, url.PathEscape(callID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telephony: build hangup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: hangup %s: %w", callID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telephony: hangup %s: unexpected status %d", callID, resp.StatusCode)
	}
	return nil
}

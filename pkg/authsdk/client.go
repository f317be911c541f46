package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SDKClient is a client for the gatehouse authorization service. Downstream
// Go services use it to log in, validate sessions and run permission checks.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// ServiceName identifies this caller on check requests via the
	// X-Service-ID header. Optional.
	ServiceName string
}

// NewSDKClient creates a new gatehouse client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an HTTP request, attaching the session token when given.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path, token string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set(SessionHeader, token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeError turns a non-2xx response into an *APIError.
func decodeError(resp *http.Response) error {
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeServerError,
			Description: fmt.Sprintf("unexpected response %d", resp.StatusCode),
		}
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        body.Error,
		Description: body.ErrorDescription,
	}
}

func decodeJSON(resp *http.Response, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login authenticates and returns the session token with the identity it
// carries.
func (c *SDKClient) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	payload, err := json.Marshal(LoginRequest{Username: username, Password: password})
	if err != nil {
		return LoginResponse{}, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", "",
		bytes.NewReader(payload), map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return LoginResponse{}, err
	}
	defer resp.Body.Close()

	var out LoginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return LoginResponse{}, err
	}
	return out, nil
}

// Logout revokes a session token. Revoking an already dead token succeeds.
func (c *SDKClient) Logout(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	return nil
}

// Validate reports whether a session token is alive. The endpoint responds
// with a bare JSON boolean.
func (c *SDKClient) Validate(ctx context.Context, token string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/validate", token, nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var valid bool
	if err := decodeJSON(resp, &valid); err != nil {
		return false, err
	}
	return valid, nil
}

// Check asks the gateway whether the session may perform method on path. An
// empty token checks anonymous access. The client's ServiceName identifies
// the target service.
func (c *SDKClient) Check(ctx context.Context, token, httpMethod, requestPath string) (CheckResponse, error) {
	return c.CheckForService(ctx, token, c.ServiceName, httpMethod, requestPath)
}

// CheckForService is Check with an explicit target service, used when the
// service is determined per request rather than per client.
func (c *SDKClient) CheckForService(ctx context.Context, token, serviceName, httpMethod, requestPath string) (CheckResponse, error) {
	q := url.Values{}
	q.Set("httpMethod", httpMethod)
	q.Set("requestPath", requestPath)

	headers := map[string]string{}
	if serviceName != "" {
		headers[ServiceHeader] = serviceName
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/check?"+q.Encode(), token, nil, headers)
	if err != nil {
		return CheckResponse{}, err
	}
	defer resp.Body.Close()

	var out CheckResponse
	if err := decodeJSON(resp, &out); err != nil {
		return CheckResponse{}, err
	}
	return out, nil
}

// RefreshPermissions triggers a reload of the role permission snapshot. Needs
// an admin session.
func (c *SDKClient) RefreshPermissions(ctx context.Context, token string) (RefreshResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/admin/permissions/refresh", token, nil, nil)
	if err != nil {
		return RefreshResponse{}, err
	}
	defer resp.Body.Close()

	var out RefreshResponse
	if err := decodeJSON(resp, &out); err != nil {
		return RefreshResponse{}, err
	}
	return out, nil
}

// PermissionStatus reports the provenance of the active permission snapshot.
// Needs an admin session.
func (c *SDKClient) PermissionStatus(ctx context.Context, token string) (PermissionStatusResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/admin/permissions/status", token, nil, nil)
	if err != nil {
		return PermissionStatusResponse{}, err
	}
	defer resp.Body.Close()

	var out PermissionStatusResponse
	if err := decodeJSON(resp, &out); err != nil {
		return PermissionStatusResponse{}, err
	}
	return out, nil
}

// Health fetches the readiness state of the service.
func (c *SDKClient) Health(ctx context.Context) (HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", "", nil, nil)
	if err != nil {
		return HealthResponse{}, err
	}
	defer resp.Body.Close()

	var out HealthResponse
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthResponse{}, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return HealthResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

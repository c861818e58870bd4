package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"spacepurchase/internal/types"
)

// maxErrorBodyBytes bounds how much of an error response is read for its message.
const maxErrorBodyBytes = 64 << 10

// TokenSource resolves the bearer token for an outbound request.
type TokenSource func(ctx context.Context) (types.SecretString, error)

// CallerToken forwards the token of the caller stored in ctx by the auth
// middleware.
func CallerToken(ctx context.Context) (types.SecretString, error) {
	token, ok := types.GetAuthToken(ctx)
	if !ok {
		return "", types.NewAppError(types.ErrCodeAuthTokenMissing, "no caller token to forward upstream", nil)
	}
	return token, nil
}

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token types.SecretString) TokenSource {
	return func(context.Context) (types.SecretString, error) {
		return token, nil
	}
}

// OrgPath builds an organization-scoped path: /organizations/{orgID}/{segments...}.
func OrgPath(orgID string, segments ...string) string {
	return scopedPath("organizations", orgID, segments)
}

// SpacePath builds a space-scoped path: /spaces/{spaceID}/{segments...}.
func SpacePath(spaceID string, segments ...string) string {
	return scopedPath("spaces", spaceID, segments)
}

func scopedPath(scope, id string, segments []string) string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(scope)
	b.WriteString("/")
	b.WriteString(url.PathEscape(id))
	for _, seg := range segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

// upstreamErrorBody is the error envelope returned by the upstream APIs.
type upstreamErrorBody struct {
	Message string `json:"message"`
	Sys     struct {
		ID string `json:"id"`
	} `json:"sys"`
}

// APIClient is a JSON REST client for one upstream API.
type APIClient struct {
	base     *BaseClient
	baseURL  string
	token    TokenSource
	provider string
}

// NewAPIClient creates an APIClient rooted at baseURL. provider names the API
// in error details.
func NewAPIClient(base *BaseClient, baseURL string, token TokenSource, provider string) *APIClient {
	return &APIClient{
		base:     base,
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		provider: provider,
	}
}

// Get decodes the JSON response of GET path?query into out.
func (c *APIClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the response into out (may be nil).
func (c *APIClient) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body as JSON and decodes the response into out (may be nil).
func (c *APIClient) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, body, out)
}

// GetRaw returns the undecoded response body of GET path.
func (c *APIClient) GetRaw(ctx context.Context, path, accept string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "failed to read upstream response", err)
	}
	return data, nil
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode request body", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamDecode,
			"upstream returned a malformed response",
			err,
			map[string]any{"provider": c.provider, "path": path},
		)
	}
	return nil
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build upstream request", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token.Unmask())
	}
	return req, nil
}

// send performs req and converts non-2xx responses into AppErrors.
func (c *APIClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, c.statusError(req, resp)
}

func (c *APIClient) statusError(req *http.Request, resp *http.Response) *types.AppError {
	var body upstreamErrorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = json.Unmarshal(raw, &body)

	message := body.Message
	if message == "" {
		message = fmt.Sprintf("%s %s returned %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	details := map[string]any{
		"provider": c.provider,
		"status":   resp.StatusCode,
	}
	if body.Sys.ID != "" {
		details["upstream_error"] = body.Sys.ID
	}
	return types.NewAppErrorWithDetails(StatusCode(resp.StatusCode), message, nil, details)
}

// StatusCode maps a non-2xx upstream status onto the service's error codes.
func StatusCode(status int) types.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return types.ErrCodeValidationUpstreamRejected
	case http.StatusUnauthorized:
		return types.ErrCodeAuthTokenInvalid
	case http.StatusForbidden:
		return types.ErrCodePermissionRole
	case http.StatusNotFound:
		return types.ErrCodeNotFoundResource
	case http.StatusConflict:
		return types.ErrCodeConflictUpstream
	case http.StatusTooManyRequests:
		return types.ErrCodeUpstreamRateLimited
	default:
		return types.ErrCodeUpstreamUnavailable
	}
}

// Package api is the HTTP client for the remote receipts service: login,
// registration, extraction and the receipt history endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/scanly/internal/receipt"
)

// TokenSource provides the bearer token for authenticated requests.
// An empty token sends no Authorization header.
type TokenSource interface {
	Token() string
}

// Client calls the remote receipts API
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	decoder *receipt.Decoder
	logger  *slog.Logger
}

// NewClient creates a Client using the default HTTP client
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	return NewClientWithHTTP(baseURL, tokens, logger, &http.Client{})
}

// NewClientWithHTTP creates a Client with a custom HTTP client
func NewClientWithHTTP(baseURL string, tokens TokenSource, logger *slog.Logger, httpClient *http.Client) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		decoder: receipt.NewDecoder(logger),
		logger:  logger,
	}
}

// File is an upload for the extraction endpoint
type File struct {
	Name        string
	ContentType string
	Data        []byte

	// Progress, when set, receives the request body as it is sent
	Progress io.Writer
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token. The JSON endpoint is tried
// first; on any failure the multipart form endpoint is used instead.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	token, err := c.loginJSON(ctx, email, password)
	if err == nil {
		return token, nil
	}
	c.logger.Debug("JSON login failed, trying form login", "error", err)

	token, err = c.loginForm(ctx, email, password)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *Client) loginJSON(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/auth/login-json", bytes.NewReader(body), "application/json")
	if err != nil {
		return "", err
	}
	return decodeToken(data)
}

func (c *Client) loginForm(ctx context.Context, username, password string) (string, error) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	if err := writer.WriteField("username", username); err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}
	if err := writer.WriteField("password", password); err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/auth/login", &b, writer.FormDataContentType())
	if err != nil {
		return "", err
	}
	return decodeToken(data)
}

func decodeToken(data []byte) (string, error) {
	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}
	return resp.AccessToken, nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, email, password string) (User, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return User{}, fmt.Errorf("marshaling request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/auth/register", bytes.NewReader(body), "application/json")
	if err != nil {
		return User{}, err
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return User{}, fmt.Errorf("decoding user: %w", err)
	}
	return user, nil
}

// Me returns the user owning the current token
func (c *Client) Me(ctx context.Context) (User, error) {
	data, err := c.do(ctx, http.MethodGet, "/auth/me", nil, "")
	if err != nil {
		return User{}, err
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return User{}, fmt.Errorf("decoding user: %w", err)
	}
	return user, nil
}

// Extract uploads a receipt file and returns the structured result. The
// server persists the receipt as a side effect.
func (c *Client) Extract(ctx context.Context, file File) (*receipt.Extracted, error) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}

	var body io.Reader = &b
	if file.Progress != nil {
		body = io.TeeReader(&b, file.Progress)
	}

	data, err := c.do(ctx, http.MethodPost, "/extract", body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	extracted, err := c.decoder.DecodeExtracted(data)
	if err != nil {
		return nil, fmt.Errorf("decoding extraction result: %w", err)
	}
	return &extracted, nil
}

// ListReceipts returns every receipt of the current user. No filters are
// sent; filtering happens on the client.
func (c *Client) ListReceipts(ctx context.Context) ([]receipt.Receipt, error) {
	data, err := c.do(ctx, http.MethodGet, "/receipts", nil, "")
	if err != nil {
		return nil, err
	}
	receipts, err := c.decoder.DecodeReceipts(data)
	if err != nil {
		return nil, fmt.Errorf("decoding receipts: %w", err)
	}
	return receipts, nil
}

// GetReceipt returns a single receipt. A missing receipt matches common.ErrNotFound.
func (c *Client) GetReceipt(ctx context.Context, id string) (*receipt.Receipt, error) {
	data, err := c.do(ctx, http.MethodGet, "/receipts/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	r, err := c.decoder.DecodeReceipt(data)
	if err != nil {
		return nil, fmt.Errorf("decoding receipt: %w", err)
	}
	return &r, nil
}

// DeleteReceipt deletes a receipt
func (c *Client) DeleteReceipt(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/receipts/"+url.PathEscape(id), nil, "")
	return err
}

// do sends a request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("Calling receipts API", "method", method, "path", path, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := newStatusError(method, path, resp.StatusCode, data)
		c.logger.Debug("Receipts API error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		return nil, statusErr
	}

	return data, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

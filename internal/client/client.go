// Package client is a typed HTTP client for the marketplace server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"ecoxchange/models"
	"ecoxchange/services"
	"ecoxchange/structs"
)

// APIError is a non-2xx response. Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client calls the marketplace API on behalf of one session. It is safe for
// concurrent use once signed in.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Token returns the session token from the last SignIn.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SignIn opens a session and keeps its token for later calls.
func (c *Client) SignIn(ctx context.Context) (structs.SignInResponse, error) {
	var out structs.SignInResponse
	if err := c.doJSON(ctx, http.MethodPost, "/signin", nil, &out); err != nil {
		return out, err
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return out, nil
}

func (c *Client) State(ctx context.Context) (structs.StateResponse, error) {
	var out structs.StateResponse
	err := c.doJSON(ctx, http.MethodGet, "/marketplace/state", nil, &out)
	return out, err
}

func (c *Client) Listings(ctx context.Context) ([]models.Listing, error) {
	var out struct {
		Listings []models.Listing `json:"listings"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/marketplace/listings", nil, &out)
	return out.Listings, err
}

func (c *Client) SetView(ctx context.Context, mode string) (structs.StateResponse, error) {
	var out structs.StateResponse
	err := c.doJSON(ctx, http.MethodPut, "/marketplace/view", structs.SetViewRequest{Mode: mode}, &out)
	return out, err
}

func (c *Client) ToggleView(ctx context.Context) (structs.StateResponse, error) {
	var out structs.StateResponse
	err := c.doJSON(ctx, http.MethodPost, "/marketplace/view/toggle", nil, &out)
	return out, err
}

// UploadFile selects the file at path as the pending document.
func (c *Client) UploadFile(ctx context.Context, path string) (structs.StateResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return structs.StateResponse{}, err
	}
	defer f.Close()
	return c.UploadDocument(ctx, filepath.Base(path), f)
}

// UploadDocument selects r, named name, as the pending document.
func (c *Client) UploadDocument(ctx context.Context, name string, r io.Reader) (structs.StateResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(services.DocumentField, name)
	if err != nil {
		return structs.StateResponse{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return structs.StateResponse{}, fmt.Errorf("read document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return structs.StateResponse{}, err
	}

	var out structs.StateResponse
	err = c.do(ctx, http.MethodPut, "/marketplace/file", &buf, mw.FormDataContentType(), &out)
	return out, err
}

func (c *Client) Submit(ctx context.Context) (structs.StateResponse, error) {
	var out structs.StateResponse
	err := c.doJSON(ctx, http.MethodPost, "/marketplace/submit", nil, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, query string) (structs.SearchResponse, error) {
	var out structs.SearchResponse
	err := c.doJSON(ctx, http.MethodPost, "/marketplace/search", structs.SearchRequest{Query: query}, &out)
	return out, err
}

func (c *Client) Purchase(ctx context.Context, listingID string) (structs.PurchaseResponse, error) {
	var out structs.PurchaseResponse
	err := c.doJSON(ctx, http.MethodPost, "/marketplace/purchase", structs.PurchaseRequest{ListingID: listingID}, &out)
	return out, err
}

// Transactions returns up to limit journal entries, newest first. A limit
// of zero uses the server default.
func (c *Client) Transactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	path := "/marketplace/transactions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out structs.TransactionsResponse
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out.Transactions, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if in == nil {
		return c.do(ctx, method, path, nil, "", out)
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(raw), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error, Detail: body.Message}
}

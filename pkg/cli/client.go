package cli

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
	"strings"
	"time"
)

// APIError carries the server's error envelope alongside the HTTP status.
type APIError struct {
	HTTPStatus    int
	Message       string
	CorrelationID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (HTTP %d): %s", e.HTTPStatus, e.Message)
}

// Client is a thin typed client for the catalog REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// SetBaseURL updates the host after flag/env resolution.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// TableSummary is the subset of table metadata the CLI renders.
type TableSummary struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	RowCount   int64        `json:"rowCount"`
	SourceType string       `json:"sourceType"`
	Dirty      bool         `json:"dirty"`
	Fields     []FieldBrief `json:"fields"`
}

type FieldBrief struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	IsPrimaryKey bool    `json:"isPrimaryKey"`
	IsForeignKey bool    `json:"isForeignKey"`
	MissingRate  float64 `json:"missingRate"`
}

type ImportResponse struct {
	FileID string       `json:"fileId"`
	Table  TableSummary `json:"table"`
}

type RowsPage struct {
	Rows      []map[string]interface{} `json:"rows"`
	TotalRows int64                    `json:"totalRows"`
}

type ExportResponse struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	TableName string    `json:"tableName"`
	Undoable  bool      `json:"undoable"`
	CreatedAt time.Time `json:"createdAt"`
}

type UndoResponse struct {
	UndoneOperationID string `json:"undoneOperationId"`
	TableID           string `json:"tableId"`
}

func (c *Client) ListTables(ctx context.Context) ([]TableSummary, error) {
	var out []TableSummary
	return out, c.doJSON(ctx, http.MethodGet, "/api/tables", nil, &out)
}

func (c *Client) GetTable(ctx context.Context, tableID string) (*TableSummary, error) {
	var out TableSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/tables/"+tableID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) QueryRows(ctx context.Context, tableID string, limit, offset int) (*RowsPage, error) {
	var out RowsPage
	body := map[string]interface{}{"limit": limit, "offset": offset}
	if err := c.doJSON(ctx, http.MethodPost, "/api/tables/"+tableID+"/rows:query", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExportTable(ctx context.Context, tableID string) (*ExportResponse, error) {
	var out ExportResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/tables/"+tableID+"/export", map[string]interface{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var out []HistoryEntry
	return out, c.doJSON(ctx, http.MethodGet, "/api/history", nil, &out)
}

func (c *Client) Undo(ctx context.Context) (*UndoResponse, error) {
	var out UndoResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/undo", map[string]interface{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportFile uploads a local csv through the multipart import endpoint.
func (c *Client) ImportFile(ctx context.Context, path string) (*ImportResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/files/import", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out ImportResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error         string `json:"error"`
			CorrelationID string `json:"correlationId"`
		}
		msg := resp.Status
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Error != "" {
			msg = envelope.Error
		}
		return &APIError{HTTPStatus: resp.StatusCode, Message: msg, CorrelationID: envelope.CorrelationID}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

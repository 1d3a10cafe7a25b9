package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client implements storage.Storage against a remote Server. The caller in
// each request's context is sent as CallerHeader.
type Client struct {
	base string
	http *http.Client
	log  *types.Logger
}

var _ storage.Storage = (*Client)(nil)

// NewClient creates a client for the server at baseURL. A nil httpClient
// uses one with DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: httpClient,
		log:  types.GlobalLogger.WithField("component", "client"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.doRaw(ctx, method, path, body, out)
	return err
}

// doRaw sends one request and decodes the response into out. Errors come
// back typed: transport failures are TransientIO, server errors keep the
// kind the server reported.
func (c *Client) doRaw(ctx context.Context, method, path string, body, out interface{}) (errorResponse, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errorResponse{}, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return errorResponse{}, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller, err := types.CallerFrom(ctx); err == nil {
		req.Header.Set(CallerHeader, caller)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errorResponse{}, types.TransientIO(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var eb errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
			eb = errorResponse{}
		}
		return eb, decodeError(resp.StatusCode, eb)
	}
	if out == nil {
		return errorResponse{}, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorResponse{}, types.TransientIO("decode response", err)
	}
	return errorResponse{}, nil
}

func tablePath(tableID string, parts ...string) string {
	return "/tables/" + url.PathEscape(tableID) + strings.Join(parts, "")
}

func (c *Client) GetTableByID(ctx context.Context, tableID string) (types.Table, error) {
	var t types.Table
	err := c.do(ctx, http.MethodGet, tablePath(tableID), nil, &t)
	return t, err
}

func (c *Client) GetRows(ctx context.Context, tableID string, limit int, cursor string) (types.RowPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page types.RowPage
	err := c.do(ctx, http.MethodGet, tablePath(tableID, "/rows?", q.Encode()), nil, &page)
	return page, err
}

func (c *Client) GetRowsWithOperations(ctx context.Context, req types.PageRequest) (types.RowPage, error) {
	var page types.RowPage
	err := c.do(ctx, http.MethodPost, tablePath(req.TableID, "/query"), req, &page)
	return page, err
}

func (c *Client) AddColumn(ctx context.Context, tableID, name string, colType types.ColumnType) (types.Column, error) {
	var col types.Column
	err := c.do(ctx, http.MethodPost, tablePath(tableID, "/columns"), columnRequest{Name: name, Type: colType}, &col)
	return col, err
}

func (c *Client) AddRow(ctx context.Context, tableID string) (types.Row, error) {
	var row types.Row
	err := c.do(ctx, http.MethodPost, tablePath(tableID, "/rows"), nil, &row)
	return row, err
}

// AddFakeRows reports the rows the server inserted even when it fails part
// way through.
func (c *Client) AddFakeRows(ctx context.Context, tableID string, count int) (int, error) {
	var resp fakeResponse
	eb, err := c.doRaw(ctx, http.MethodPost, tablePath(tableID, "/fake"), fakeRequest{Count: count}, &resp)
	if err != nil {
		return eb.Inserted, err
	}
	return resp.Inserted, nil
}

func (c *Client) UpdateCell(ctx context.Context, tableID string, rowIndex int, columnID, value string) error {
	return c.do(ctx, http.MethodPut, tablePath(tableID, "/cells"), cellRequest{RowIndex: rowIndex, ColumnID: columnID, Value: value}, nil)
}

func (c *Client) CreateWorkspace(ctx context.Context, name string) (types.Workspace, error) {
	var ws types.Workspace
	err := c.do(ctx, http.MethodPost, "/workspaces", nameRequest{Name: name}, &ws)
	return ws, err
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	var ws []types.Workspace
	err := c.do(ctx, http.MethodGet, "/workspaces", nil, &ws)
	return ws, err
}

func (c *Client) CreateDefaultTable(ctx context.Context, workspaceID, name string) (types.Table, error) {
	var t types.Table
	err := c.do(ctx, http.MethodPost, "/workspaces/"+url.PathEscape(workspaceID)+"/tables", nameRequest{Name: name}, &t)
	return t, err
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Subscribe streams tableID's events to fn until ctx is cancelled or the
// connection drops. It returns once the subscription is established or
// has failed; delivery continues in the background and done is closed when
// it stops.
func (c *Client) Subscribe(ctx context.Context, tableID string, fn func(Event)) (done <-chan struct{}, err error) {
	u, err := url.Parse(c.base + tablePath(tableID, "/events"))
	if err != nil {
		return nil, fmt.Errorf("parse events url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if caller, err := types.CallerFrom(ctx); err == nil {
		header.Set(CallerHeader, caller)
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			var eb errorResponse
			if jerr := json.NewDecoder(resp.Body).Decode(&eb); jerr == nil && eb.Kind != "" {
				return nil, decodeError(resp.StatusCode, eb)
			}
		}
		return nil, types.TransientIO("subscribe "+tableID, err)
	}

	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-finished:
		}
	}()
	go func() {
		defer close(finished)
		defer ws.Close()
		for {
			var ev Event
			if err := ws.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					c.log.Debug("event stream for %s ended: %v", tableID, err)
				}
				return
			}
			fn(ev)
		}
	}()
	return finished, nil
}

// Package trello provides a minimal client for the Trello REST API.
package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Trello API root.
const DefaultBaseURL = "https://api.trello.com/1"

// ErrNotFound is matched (via errors.Is) by an APIError carrying a 404.
var ErrNotFound = errors.New("trello: resource not found")

// ErrMissingCredentials is returned before any request is made when the
// client has no API key or token.
var ErrMissingCredentials = errors.New("trello: api key and token are required")

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("trello api %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is reports 404 responses as ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client is a minimal HTTP client for the Trello API. Credentials are sent
// as the key/token query parameters Trello expects.
type Client struct {
	BaseURL string
	APIKey  string
	Token   string
	HTTP    *http.Client
}

// New returns a new client. If httpClient is nil, a default with a 10s timeout is used.
func New(baseURL, apiKey, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Token:   token,
		HTTP:    httpClient,
	}
}

// ListBoards returns every board the token's member can see, in Trello's order.
func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	var raw []apiBoard
	if err := c.get(ctx, "members/me/boards", nil, &raw); err != nil {
		return nil, err
	}
	return boardsFrom(raw), nil
}

// ListWorkspaceBoards returns the boards of one workspace (Trello organization).
func (c *Client) ListWorkspaceBoards(ctx context.Context, workspaceID string) ([]Board, error) {
	var raw []apiBoard
	if err := c.get(ctx, "organizations/"+url.PathEscape(workspaceID)+"/boards", nil, &raw); err != nil {
		return nil, err
	}
	return boardsFrom(raw), nil
}

// GetBoard fetches a single board.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	var raw apiBoard
	if err := c.get(ctx, "boards/"+url.PathEscape(boardID), nil, &raw); err != nil {
		return nil, err
	}
	b := raw.board()
	return &b, nil
}

// GetLists returns the lists of a board.
func (c *Client) GetLists(ctx context.Context, boardID string) ([]List, error) {
	var raw []apiList
	if err := c.get(ctx, "boards/"+url.PathEscape(boardID)+"/lists", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]List, 0, len(raw))
	for _, l := range raw {
		out = append(out, l.list())
	}
	return out, nil
}

// GetList fetches a single list by its own id.
func (c *Client) GetList(ctx context.Context, listID string) (*List, error) {
	var raw apiList
	if err := c.get(ctx, "lists/"+url.PathEscape(listID), nil, &raw); err != nil {
		return nil, err
	}
	l := raw.list()
	return &l, nil
}

// GetCards returns the cards of a list.
func (c *Client) GetCards(ctx context.Context, listID string) ([]Card, error) {
	var raw []apiCard
	if err := c.get(ctx, "lists/"+url.PathEscape(listID)+"/cards", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Card, 0, len(raw))
	for _, card := range raw {
		out = append(out, card.card())
	}
	return out, nil
}

// GetCard fetches a single card.
func (c *Client) GetCard(ctx context.Context, cardID string) (*Card, error) {
	var raw apiCard
	if err := c.get(ctx, "cards/"+url.PathEscape(cardID), nil, &raw); err != nil {
		return nil, err
	}
	card := raw.card()
	return &card, nil
}

// CreateCard adds a card to a list. An empty Desc is sent as-is.
func (c *Client) CreateCard(ctx context.Context, p CardParams) (*Card, error) {
	q := url.Values{}
	q.Set("idList", p.ListID)
	q.Set("name", p.Name)
	q.Set("desc", p.Desc)
	var raw apiCard
	if err := c.do(ctx, http.MethodPost, "cards", q, &raw); err != nil {
		return nil, err
	}
	card := raw.card()
	return &card, nil
}

// UpdateCard changes the fields set in u; nil fields are left untouched.
func (c *Client) UpdateCard(ctx context.Context, cardID string, u CardUpdate) (*Card, error) {
	q := url.Values{}
	if u.Name != nil {
		q.Set("name", *u.Name)
	}
	if u.Desc != nil {
		q.Set("desc", *u.Desc)
	}
	if u.ListID != nil {
		q.Set("idList", *u.ListID)
	}
	if u.Closed != nil {
		q.Set("closed", fmt.Sprintf("%t", *u.Closed))
	}
	var raw apiCard
	if err := c.do(ctx, http.MethodPut, "cards/"+url.PathEscape(cardID), q, &raw); err != nil {
		return nil, err
	}
	card := raw.card()
	return &card, nil
}

// CreateBoard creates a board, inside a workspace when WorkspaceID is set.
func (c *Client) CreateBoard(ctx context.Context, p BoardParams) (*Board, error) {
	q := url.Values{}
	q.Set("name", p.Name)
	if p.Desc != "" {
		q.Set("desc", p.Desc)
	}
	if p.WorkspaceID != "" {
		q.Set("idOrganization", p.WorkspaceID)
	}
	var raw apiBoard
	if err := c.do(ctx, http.MethodPost, "boards", q, &raw); err != nil {
		return nil, err
	}
	b := raw.board()
	return &b, nil
}

// CreateList adds a list to a board.
func (c *Client) CreateList(ctx context.Context, boardID, name string) (*List, error) {
	q := url.Values{}
	q.Set("idBoard", boardID)
	q.Set("name", name)
	var raw apiList
	if err := c.do(ctx, http.MethodPost, "lists", q, &raw); err != nil {
		return nil, err
	}
	l := raw.list()
	return &l, nil
}

// ListWorkspaces returns the workspaces the member belongs to.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var raw []apiWorkspace
	if err := c.get(ctx, "members/me/organizations", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Workspace, 0, len(raw))
	for _, w := range raw {
		out = append(out, w.workspace())
	}
	return out, nil
}

// GetWorkspace fetches a single workspace.
func (c *Client) GetWorkspace(ctx context.Context, workspaceID string) (*Workspace, error) {
	var raw apiWorkspace
	if err := c.get(ctx, "organizations/"+url.PathEscape(workspaceID), nil, &raw); err != nil {
		return nil, err
	}
	w := raw.workspace()
	return &w, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, params, out)
}

// do performs one request. Parameters always travel in the query string,
// POST and PUT included, which is what the Trello API accepts.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	if c.APIKey == "" || c.Token == "" {
		return ErrMissingCredentials
	}
	reqURL, err := c.buildURL(endpoint, params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// *url.Error embeds the full URL, credentials included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("trello api %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

// buildURL composes the request URL with credentials and query params.
func (c *Client) buildURL(endpoint string, params url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL + "/" + endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("key", c.APIKey)
	q.Set("token", c.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

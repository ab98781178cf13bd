package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"trello-mcp/internal/mcp"
	"trello-mcp/internal/trello"
)

// searchHit is one item of the search result list.
type searchHit struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Document is the normalized shape fetch returns for any resource type.
type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata"`
}

// matchBoards returns the open boards whose name or description contains
// query, ignoring case, in upstream order.
func matchBoards(boards []trello.Board, query string) []trello.Board {
	q := strings.ToLower(query)
	var out []trello.Board
	for _, b := range openBoards(boards) {
		if strings.Contains(strings.ToLower(b.Name), q) || strings.Contains(strings.ToLower(b.Desc), q) {
			out = append(out, b)
		}
	}
	return out
}

func (inv *Invoker) search(ctx context.Context, call *Call) (any, error) {
	query, err := call.Args.Require("query")
	if err != nil {
		return nil, err
	}
	boards, err := inv.upstream.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	hits := make([]searchHit, 0)
	for _, b := range matchBoards(boards, query) {
		hits = append(hits, searchHit{ID: b.ID, Title: b.Name, URL: b.URL})
	}
	return mcp.TextResult(map[string]any{"results": hits})
}

// fetch resolves id as a board, then a list, then a card. With the legacy
// fallback enabled a final attempt reads id as a board and returns its
// first list.
func (inv *Invoker) fetch(ctx context.Context, call *Call) (any, error) {
	id, err := call.Args.Require("id")
	if err != nil {
		return nil, err
	}

	resolvers := []func(context.Context, string) (*Document, error){
		inv.fetchBoard,
		inv.fetchList,
		inv.fetchCard,
	}
	if inv.legacyListFallback {
		resolvers = append(resolvers, inv.fetchFirstList)
	}

	var upstreamErr error
	for _, resolve := range resolvers {
		doc, err := resolve(ctx, id)
		if err == nil {
			return mcp.TextResult(doc)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isMiss(err) && upstreamErr == nil {
			upstreamErr = err
		}
	}
	if upstreamErr != nil {
		return nil, mcp.UpstreamError("fetch", upstreamErr)
	}
	return nil, mcp.NotFound(id)
}

// isMiss reports upstream answers meaning "no such id". Trello rejects
// malformed ids with 400 rather than 404.
func isMiss(err error) bool {
	if errors.Is(err, trello.ErrNotFound) {
		return true
	}
	var apiErr *trello.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

func (inv *Invoker) fetchBoard(ctx context.Context, id string) (*Document, error) {
	b, err := inv.upstream.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	text := b.Desc
	if text == "" {
		text = "Board " + b.Name
	}
	return &Document{
		ID:    b.ID,
		Title: b.Name,
		Text:  text,
		URL:   b.URL,
		Metadata: map[string]any{
			"type":        "board",
			"closed":      b.Closed,
			"workspaceId": b.WorkspaceID,
		},
	}, nil
}

func (inv *Invoker) fetchList(ctx context.Context, id string) (*Document, error) {
	l, err := inv.upstream.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	return listDocument(l), nil
}

func (inv *Invoker) fetchFirstList(ctx context.Context, id string) (*Document, error) {
	lists, err := inv.upstream.GetLists(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, trello.ErrNotFound
	}
	return listDocument(&lists[0]), nil
}

func listDocument(l *trello.List) *Document {
	return &Document{
		ID:    l.ID,
		Title: l.Name,
		Text:  fmt.Sprintf("List %s on board %s", l.Name, l.BoardID),
		URL:   "https://trello.com/b/" + l.BoardID,
		Metadata: map[string]any{
			"type":    "list",
			"closed":  l.Closed,
			"boardId": l.BoardID,
		},
	}
}

func (inv *Invoker) fetchCard(ctx context.Context, id string) (*Document, error) {
	c, err := inv.upstream.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	text := c.Desc
	if text == "" {
		text = "Card " + c.Name
	}
	return &Document{
		ID:    c.ID,
		Title: c.Name,
		Text:  text,
		URL:   c.URL,
		Metadata: map[string]any{
			"type":   "card",
			"closed": c.Closed,
			"listId": c.ListID,
		},
	}, nil
}

// Package trellotest provides an in-memory stand-in for the Trello API.
package trellotest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"trello-mcp/internal/trello"
)

// Fake satisfies the same method set as *trello.Client, backed by slices.
// Per-method delays and failures can be scripted; delays honour context
// cancellation so abandoned calls do not leak goroutines.
type Fake struct {
	mu         sync.Mutex
	boards     []trello.Board
	lists      []trello.List
	cards      []trello.Card
	workspaces []trello.Workspace
	delays     map[string]time.Duration
	errs       map[string]error
	calls      map[string]int
	seq        int
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		delays: make(map[string]time.Duration),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// AddBoard seeds boards.
func (f *Fake) AddBoard(boards ...trello.Board) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards = append(f.boards, boards...)
	return f
}

// AddList seeds lists.
func (f *Fake) AddList(lists ...trello.List) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, lists...)
	return f
}

// AddCard seeds cards.
func (f *Fake) AddCard(cards ...trello.Card) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards = append(f.cards, cards...)
	return f
}

// AddWorkspace seeds workspaces.
func (f *Fake) AddWorkspace(ws ...trello.Workspace) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workspaces = append(f.workspaces, ws...)
	return f
}

// Delay makes every call to method block for d (or until ctx is done).
func (f *Fake) Delay(method string, d time.Duration) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[method] = d
	return f
}

// Fail makes every call to method return err.
func (f *Fake) Fail(method string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
	return f
}

// Calls reports how many times method was entered.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	d := f.delays[method]
	err := f.errs[method]
	f.mu.Unlock()

	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func notFound(endpoint string) error {
	return &trello.APIError{Method: http.MethodGet, Endpoint: endpoint, StatusCode: http.StatusNotFound}
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *Fake) ListBoards(ctx context.Context) ([]trello.Board, error) {
	if err := f.enter(ctx, "ListBoards"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trello.Board(nil), f.boards...), nil
}

func (f *Fake) ListWorkspaceBoards(ctx context.Context, workspaceID string) ([]trello.Board, error) {
	if err := f.enter(ctx, "ListWorkspaceBoards"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trello.Board
	for _, b := range f.boards {
		if b.WorkspaceID == workspaceID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *Fake) GetBoard(ctx context.Context, boardID string) (*trello.Board, error) {
	if err := f.enter(ctx, "GetBoard"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.boards {
		if b.ID == boardID {
			b := b
			return &b, nil
		}
	}
	return nil, notFound("boards/" + boardID)
}

// GetLists returns lists whose BoardID matches. Like Trello it does not
// require the board itself to be fetchable; an id matching neither a board
// nor any list is a 404.
func (f *Fake) GetLists(ctx context.Context, boardID string) ([]trello.List, error) {
	if err := f.enter(ctx, "GetLists"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []trello.List
	for _, l := range f.lists {
		if l.BoardID == boardID {
			out = append(out, l)
		}
	}
	if out != nil {
		return out, nil
	}
	for _, b := range f.boards {
		if b.ID == boardID {
			return []trello.List{}, nil
		}
	}
	return nil, notFound("boards/" + boardID + "/lists")
}

func (f *Fake) GetList(ctx context.Context, listID string) (*trello.List, error) {
	if err := f.enter(ctx, "GetList"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lists {
		if l.ID == listID {
			l := l
			return &l, nil
		}
	}
	return nil, notFound("lists/" + listID)
}

func (f *Fake) GetCards(ctx context.Context, listID string) ([]trello.Card, error) {
	if err := f.enter(ctx, "GetCards"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []trello.Card{}
	for _, c := range f.cards {
		if c.ListID == listID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *Fake) GetCard(ctx context.Context, cardID string) (*trello.Card, error) {
	if err := f.enter(ctx, "GetCard"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.ID == cardID {
			c := c
			return &c, nil
		}
	}
	return nil, notFound("cards/" + cardID)
}

func (f *Fake) CreateCard(ctx context.Context, p trello.CardParams) (*trello.Card, error) {
	if err := f.enter(ctx, "CreateCard"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("card")
	c := trello.Card{ID: id, Name: p.Name, Desc: p.Desc, URL: "https://trello.com/c/" + id, ListID: p.ListID}
	f.cards = append(f.cards, c)
	return &c, nil
}

func (f *Fake) UpdateCard(ctx context.Context, cardID string, u trello.CardUpdate) (*trello.Card, error) {
	if err := f.enter(ctx, "UpdateCard"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cards {
		c := &f.cards[i]
		if c.ID != cardID {
			continue
		}
		if u.Name != nil {
			c.Name = *u.Name
		}
		if u.Desc != nil {
			c.Desc = *u.Desc
		}
		if u.ListID != nil {
			c.ListID = *u.ListID
		}
		if u.Closed != nil {
			c.Closed = *u.Closed
		}
		out := *c
		return &out, nil
	}
	return nil, notFound("cards/" + cardID)
}

func (f *Fake) CreateBoard(ctx context.Context, p trello.BoardParams) (*trello.Board, error) {
	if err := f.enter(ctx, "CreateBoard"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("board")
	b := trello.Board{ID: id, Name: p.Name, Desc: p.Desc, URL: "https://trello.com/b/" + id, WorkspaceID: p.WorkspaceID}
	f.boards = append(f.boards, b)
	return &b, nil
}

func (f *Fake) CreateList(ctx context.Context, boardID, name string) (*trello.List, error) {
	if err := f.enter(ctx, "CreateList"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l := trello.List{ID: f.nextID("list"), Name: name, BoardID: boardID}
	f.lists = append(f.lists, l)
	return &l, nil
}

func (f *Fake) ListWorkspaces(ctx context.Context) ([]trello.Workspace, error) {
	if err := f.enter(ctx, "ListWorkspaces"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trello.Workspace(nil), f.workspaces...), nil
}

func (f *Fake) GetWorkspace(ctx context.Context, workspaceID string) (*trello.Workspace, error) {
	if err := f.enter(ctx, "GetWorkspace"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.workspaces {
		if w.ID == workspaceID {
			w := w
			return &w, nil
		}
	}
	return nil, notFound("organizations/" + workspaceID)
}

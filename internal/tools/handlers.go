package tools

import (
	"context"

	"trello-mcp/internal/mcp"
	"trello-mcp/internal/trello"
)

// handlers maps every tool name in the full catalog to its implementation.
func (inv *Invoker) handlers() map[string]*Tool {
	return map[string]*Tool{
		"search":                {Handler: inv.search, List: true, degrade: degradeText("results")},
		"fetch":                 {Handler: inv.fetch},
		"list_boards":           {Handler: inv.listBoards, List: true, degrade: degradeList("boards")},
		"search_boards":         {Handler: inv.searchBoards, List: true, degrade: degradeList("results")},
		"get_board":             {Handler: inv.getBoard},
		"get_lists":             {Handler: inv.getLists, List: true, degrade: degradeList("lists")},
		"get_cards":             {Handler: inv.getCards, List: true, degrade: degradeList("cards")},
		"create_card":           {Handler: inv.createCard},
		"update_card":           {Handler: inv.updateCard},
		"archive_card":          {Handler: inv.archiveCard},
		"create_board":          {Handler: inv.createBoard},
		"create_list":           {Handler: inv.createList},
		"list_workspaces":       {Handler: inv.listWorkspaces, List: true, degrade: degradeList("workspaces")},
		"set_active_board":      {Handler: inv.setActiveBoard},
		"set_active_workspace":  {Handler: inv.setActiveWorkspace},
		"get_active_board_info": {Handler: inv.getActiveBoardInfo},
	}
}

// boardRef is the short board form used in search results.
type boardRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func openBoards(boards []trello.Board) []trello.Board {
	out := make([]trello.Board, 0, len(boards))
	for _, b := range boards {
		if !b.Closed {
			out = append(out, b)
		}
	}
	return out
}

// defaultBoardLimit caps list_boards when the caller gives no limit.
// An explicit limit of 0 lists every open board.
const defaultBoardLimit = 5

func (inv *Invoker) listBoards(ctx context.Context, call *Call) (any, error) {
	workspaceID, err := call.WorkspaceID()
	if err != nil {
		return nil, err
	}
	limit := defaultBoardLimit
	if v, ok := call.Args["limit"]; ok && v != nil {
		if limit, err = call.Args.Int("limit"); err != nil {
			return nil, err
		}
	}

	var boards []trello.Board
	if workspaceID != "" {
		boards, err = inv.upstream.ListWorkspaceBoards(ctx, workspaceID)
	} else {
		boards, err = inv.upstream.ListBoards(ctx)
	}
	if err != nil {
		return nil, err
	}

	open := openBoards(boards)
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return map[string]any{"boards": open}, nil
}

func (inv *Invoker) searchBoards(ctx context.Context, call *Call) (any, error) {
	query, err := call.Args.Require("query")
	if err != nil {
		return nil, err
	}
	boards, err := inv.upstream.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]boardRef, 0)
	for _, b := range matchBoards(boards, query) {
		results = append(results, boardRef{ID: b.ID, Name: b.Name, URL: b.URL})
	}
	return map[string]any{"results": results}, nil
}

func (inv *Invoker) getBoard(ctx context.Context, call *Call) (any, error) {
	boardID, err := call.BoardID()
	if err != nil {
		return nil, err
	}
	return inv.upstream.GetBoard(ctx, boardID)
}

func (inv *Invoker) getLists(ctx context.Context, call *Call) (any, error) {
	boardID, err := call.BoardID()
	if err != nil {
		return nil, err
	}
	lists, err := inv.upstream.GetLists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []trello.List{}
	}
	return map[string]any{"lists": lists}, nil
}

func (inv *Invoker) getCards(ctx context.Context, call *Call) (any, error) {
	listID, err := call.Args.Require(keyListID...)
	if err != nil {
		return nil, err
	}
	cards, err := inv.upstream.GetCards(ctx, listID)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []trello.Card{}
	}
	return map[string]any{"cards": cards}, nil
}

func (inv *Invoker) createCard(ctx context.Context, call *Call) (any, error) {
	listID, err := call.Args.Require(keyListID...)
	if err != nil {
		return nil, err
	}
	name, err := call.Args.Require("name")
	if err != nil {
		return nil, err
	}
	desc, err := call.Args.String("desc", "description")
	if err != nil {
		return nil, err
	}
	return inv.upstream.CreateCard(ctx, trello.CardParams{ListID: listID, Name: name, Desc: desc})
}

func (inv *Invoker) updateCard(ctx context.Context, call *Call) (any, error) {
	cardID, err := call.Args.Require(keyCardID...)
	if err != nil {
		return nil, err
	}
	var u trello.CardUpdate
	if u.Name, err = call.Args.Optional("name"); err != nil {
		return nil, err
	}
	if u.Desc, err = call.Args.Optional("desc", "description"); err != nil {
		return nil, err
	}
	if u.ListID, err = call.Args.Optional(keyListID...); err != nil {
		return nil, err
	}
	if u.Name == nil && u.Desc == nil && u.ListID == nil {
		return nil, mcp.InvalidArguments("update_card needs at least one of name, desc, listId")
	}
	return inv.upstream.UpdateCard(ctx, cardID, u)
}

func (inv *Invoker) archiveCard(ctx context.Context, call *Call) (any, error) {
	cardID, err := call.Args.Require(keyCardID...)
	if err != nil {
		return nil, err
	}
	closed := true
	return inv.upstream.UpdateCard(ctx, cardID, trello.CardUpdate{Closed: &closed})
}

func (inv *Invoker) createBoard(ctx context.Context, call *Call) (any, error) {
	name, err := call.Args.Require("name")
	if err != nil {
		return nil, err
	}
	desc, err := call.Args.String("desc", "description")
	if err != nil {
		return nil, err
	}
	workspaceID, err := call.WorkspaceID()
	if err != nil {
		return nil, err
	}
	return inv.upstream.CreateBoard(ctx, trello.BoardParams{Name: name, Desc: desc, WorkspaceID: workspaceID})
}

func (inv *Invoker) createList(ctx context.Context, call *Call) (any, error) {
	name, err := call.Args.Require("name")
	if err != nil {
		return nil, err
	}
	boardID, err := call.BoardID()
	if err != nil {
		return nil, err
	}
	return inv.upstream.CreateList(ctx, boardID, name)
}

func (inv *Invoker) listWorkspaces(ctx context.Context, _ *Call) (any, error) {
	ws, err := inv.upstream.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		ws = []trello.Workspace{}
	}
	return map[string]any{"workspaces": ws}, nil
}

func (inv *Invoker) setActiveBoard(ctx context.Context, call *Call) (any, error) {
	boardID, err := call.Args.Require(keyBoardID...)
	if err != nil {
		return nil, err
	}
	board, err := inv.upstream.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	call.StageActiveBoard(board.ID)
	return map[string]any{"activeBoardId": board.ID, "board": board}, nil
}

func (inv *Invoker) setActiveWorkspace(ctx context.Context, call *Call) (any, error) {
	workspaceID, err := call.Args.Require(keyWorkspaceID...)
	if err != nil {
		return nil, err
	}
	ws, err := inv.upstream.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	call.StageActiveWorkspace(ws.ID)
	return map[string]any{"activeWorkspaceId": ws.ID, "workspace": ws}, nil
}

func (inv *Invoker) getActiveBoardInfo(ctx context.Context, call *Call) (any, error) {
	state := call.Session()
	if state.ActiveBoardID == "" {
		return nil, mcp.MissingContext("board")
	}
	board, err := inv.upstream.GetBoard(ctx, state.ActiveBoardID)
	if err != nil {
		return nil, err
	}
	lists, err := inv.upstream.GetLists(ctx, state.ActiveBoardID)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []trello.List{}
	}
	return map[string]any{
		"activeBoardId":     state.ActiveBoardID,
		"activeWorkspaceId": state.ActiveWorkspaceID,
		"board":             board,
		"lists":             lists,
	}, nil
}

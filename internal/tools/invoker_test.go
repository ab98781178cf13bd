package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trello-mcp/internal/mcp"
	"trello-mcp/internal/trello"
	"trello-mcp/internal/trello/trellotest"
)

func seededFake() *trellotest.Fake {
	return trellotest.New().
		AddBoard(
			trello.Board{ID: "B1", Name: "SAV Client", Desc: "Support tickets", URL: "https://trello.com/b/B1"},
			trello.Board{ID: "B2", Name: "Projet X", Desc: "Roadmap", URL: "https://trello.com/b/B2"},
			trello.Board{ID: "B3", Name: "Old sav archive", Closed: true},
		).
		AddList(
			trello.List{ID: "L1", Name: "To Do", BoardID: "B1"},
			trello.List{ID: "L2", Name: "Done", BoardID: "B1"},
		).
		AddCard(trello.Card{ID: "C1", Name: "Refund", Desc: "Customer refund", ListID: "L1", URL: "https://trello.com/c/C1"}).
		AddWorkspace(trello.Workspace{ID: "W1", Name: "acme", DisplayName: "Acme"})
}

func newTestInvoker(t *testing.T, up Upstream, mutate ...func(*Config)) *Invoker {
	t.Helper()
	cfg := Config{
		Upstream:    up,
		ListTimeout: 200 * time.Millisecond,
		CallTimeout: 500 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	inv, err := NewInvoker(cfg)
	require.NoError(t, err)
	return inv
}

func requireKind(t *testing.T, err error, kind mcp.Kind) {
	t.Helper()
	require.Error(t, err)
	var e *mcp.Error
	require.True(t, errors.As(err, &e), "expected *mcp.Error, got %T: %v", err, err)
	assert.Equal(t, kind, e.Kind, e.Message)
}

func TestNewInvokerRequiresUpstream(t *testing.T) {
	_, err := NewInvoker(Config{})
	assert.Error(t, err)
}

func TestInvokeUnknownTool(t *testing.T) {
	inv := newTestInvoker(t, seededFake())
	_, err := inv.Invoke(context.Background(), "nope", nil)
	requireKind(t, err, mcp.KindUnknownTool)
	assert.False(t, inv.Has("nope"))
}

func TestLegacyAliasResolves(t *testing.T) {
	inv := newTestInvoker(t, seededFake())
	require.True(t, inv.Has("get_board_details"))

	got, err := inv.Invoke(context.Background(), "get_board_details", map[string]any{"boardId": "B2"})
	require.NoError(t, err)
	assert.Equal(t, "Projet X", got.(*trello.Board).Name)
}

func TestListBoardsFiltersClosedAndLimits(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	got, err := inv.Invoke(context.Background(), "list_boards", nil)
	require.NoError(t, err)
	boards := got.(map[string]any)["boards"].([]trello.Board)
	require.Len(t, boards, 2)
	assert.Equal(t, "B1", boards[0].ID)
	assert.Equal(t, "B2", boards[1].ID)

	got, err = inv.Invoke(context.Background(), "list_boards", map[string]any{"limit": float64(1)})
	require.NoError(t, err)
	assert.Len(t, got.(map[string]any)["boards"].([]trello.Board), 1)

	_, err = inv.Invoke(context.Background(), "list_boards", map[string]any{"limit": -1.0})
	requireKind(t, err, mcp.KindInvalidArguments)
}

func TestListBoardsDefaultLimit(t *testing.T) {
	fake := trellotest.New()
	for i := 1; i <= 7; i++ {
		fake.AddBoard(trello.Board{ID: fmt.Sprintf("B%d", i), Name: fmt.Sprintf("Board %d", i)})
	}
	inv := newTestInvoker(t, fake)

	got, err := inv.Invoke(context.Background(), "list_boards", nil)
	require.NoError(t, err)
	boards := got.(map[string]any)["boards"].([]trello.Board)
	require.Len(t, boards, 5)
	assert.Equal(t, "B5", boards[4].ID)

	got, err = inv.Invoke(context.Background(), "list_boards", map[string]any{"limit": float64(0)})
	require.NoError(t, err)
	assert.Len(t, got.(map[string]any)["boards"].([]trello.Board), 7)

	got, err = inv.Invoke(context.Background(), "list_boards", map[string]any{"limit": float64(6)})
	require.NoError(t, err)
	assert.Len(t, got.(map[string]any)["boards"].([]trello.Board), 6)
}

func TestListBoardsUsesActiveWorkspace(t *testing.T) {
	fake := seededFake()
	inv := newTestInvoker(t, fake)

	_, err := inv.Invoke(context.Background(), "set_active_workspace", map[string]any{"workspaceId": "W1"})
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), "list_boards", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Calls("ListWorkspaceBoards"))
	assert.Equal(t, 0, fake.Calls("ListBoards"))
}

func TestListBoardsDegradesOnTimeout(t *testing.T) {
	fake := seededFake().Delay("ListBoards", 5*time.Second)
	inv := newTestInvoker(t, fake, func(c *Config) { c.ListTimeout = 20 * time.Millisecond })

	start := time.Now()
	got, err := inv.Invoke(context.Background(), "list_boards", nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	out := got.(map[string]any)
	assert.Equal(t, []any{}, out["boards"])
	assert.Equal(t, true, out["degraded"])
	assert.Contains(t, out["error"], "timed out")
}

func TestNonListToolTimesOut(t *testing.T) {
	fake := seededFake().Delay("CreateCard", 5*time.Second)
	inv := newTestInvoker(t, fake, func(c *Config) { c.CallTimeout = 20 * time.Millisecond })

	_, err := inv.Invoke(context.Background(), "create_card", map[string]any{"listId": "L1", "name": "x"})
	requireKind(t, err, mcp.KindUpstreamTimeout)
}

func TestCallerCancellationWins(t *testing.T) {
	fake := seededFake().Delay("CreateCard", 5*time.Second)
	inv := newTestInvoker(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := inv.Invoke(ctx, "create_card", map[string]any{"listId": "L1", "name": "x"})
	requireKind(t, err, mcp.KindUpstreamTimeout)
}

func TestUpstreamFailureIsUpstreamError(t *testing.T) {
	fake := seededFake().Fail("GetCards", errors.New("connection reset"))
	inv := newTestInvoker(t, fake)

	_, err := inv.Invoke(context.Background(), "get_cards", map[string]any{"listId": "L1"})
	requireKind(t, err, mcp.KindUpstreamError)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPanicIsRecovered(t *testing.T) {
	inv := newTestInvoker(t, seededFake())
	inv.tools["get_board"].Handler = func(context.Context, *Call) (any, error) {
		panic("boom")
	}

	_, err := inv.Invoke(context.Background(), "get_board", map[string]any{"boardId": "B1"})
	requireKind(t, err, mcp.KindUpstreamError)
	assert.Contains(t, err.Error(), "boom")
}

func TestCreateCardWithoutDesc(t *testing.T) {
	fake := seededFake()
	inv := newTestInvoker(t, fake)

	got, err := inv.Invoke(context.Background(), "create_card", map[string]any{"listId": "L1", "name": "Fix bug"})
	require.NoError(t, err)
	card := got.(*trello.Card)
	assert.Equal(t, "Fix bug", card.Name)
	assert.Empty(t, card.Desc)
	assert.Equal(t, "L1", card.ListID)
}

func TestCreateCardRequiresName(t *testing.T) {
	inv := newTestInvoker(t, seededFake())
	_, err := inv.Invoke(context.Background(), "create_card", map[string]any{"listId": "L1"})
	requireKind(t, err, mcp.KindInvalidArguments)
}

func TestSnakeCaseArgumentsAccepted(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	got, err := inv.Invoke(context.Background(), "get_cards", map[string]any{"list_id": "L1"})
	require.NoError(t, err)
	cards := got.(map[string]any)["cards"].([]trello.Card)
	require.Len(t, cards, 1)
	assert.Equal(t, "C1", cards[0].ID)
}

func TestNonStringArgumentRejected(t *testing.T) {
	inv := newTestInvoker(t, seededFake())
	_, err := inv.Invoke(context.Background(), "get_cards", map[string]any{"listId": 42.0})
	requireKind(t, err, mcp.KindInvalidArguments)
}

func TestUpdateCard(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	_, err := inv.Invoke(context.Background(), "update_card", map[string]any{"cardId": "C1"})
	requireKind(t, err, mcp.KindInvalidArguments)

	got, err := inv.Invoke(context.Background(), "update_card", map[string]any{"cardId": "C1", "listId": "L2"})
	require.NoError(t, err)
	assert.Equal(t, "L2", got.(*trello.Card).ListID)
}

func TestArchiveCard(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	got, err := inv.Invoke(context.Background(), "archive_card", map[string]any{"cardId": "C1"})
	require.NoError(t, err)
	assert.True(t, got.(*trello.Card).Closed)
}

func TestBoardScopedToolsNeedContext(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	for _, name := range []string{"get_board", "get_lists", "get_active_board_info"} {
		_, err := inv.Invoke(context.Background(), name, nil)
		requireKind(t, err, mcp.KindMissingContext)
	}
	_, err := inv.Invoke(context.Background(), "create_list", map[string]any{"name": "Backlog"})
	requireKind(t, err, mcp.KindMissingContext)
}

func TestActiveBoardDefaults(t *testing.T) {
	fake := seededFake()
	inv := newTestInvoker(t, fake)

	got, err := inv.Invoke(context.Background(), "set_active_board", map[string]any{"boardId": "B1"})
	require.NoError(t, err)
	assert.Equal(t, "B1", got.(map[string]any)["activeBoardId"])
	assert.Equal(t, "B1", inv.Session().Snapshot().ActiveBoardID)

	got, err = inv.Invoke(context.Background(), "get_lists", nil)
	require.NoError(t, err)
	assert.Len(t, got.(map[string]any)["lists"].([]trello.List), 2)

	got, err = inv.Invoke(context.Background(), "create_list", map[string]any{"name": "Backlog"})
	require.NoError(t, err)
	assert.Equal(t, "B1", got.(*trello.List).BoardID)

	got, err = inv.Invoke(context.Background(), "get_active_board_info", nil)
	require.NoError(t, err)
	info := got.(map[string]any)
	assert.Equal(t, "B1", info["activeBoardId"])
	assert.Equal(t, "SAV Client", info["board"].(*trello.Board).Name)
	assert.Len(t, info["lists"].([]trello.List), 3)
}

func TestSetActiveBoardVerifiesBoard(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	_, err := inv.Invoke(context.Background(), "set_active_board", map[string]any{"boardId": "missing"})
	requireKind(t, err, mcp.KindUpstreamError)
	assert.Empty(t, inv.Session().Snapshot().ActiveBoardID)
}

func TestTimedOutCallDoesNotCommitSession(t *testing.T) {
	inv := newTestInvoker(t, seededFake(), func(c *Config) { c.CallTimeout = 20 * time.Millisecond })

	release := make(chan struct{})
	finished := make(chan struct{})
	inv.tools["set_active_board"].Handler = func(_ context.Context, call *Call) (any, error) {
		defer close(finished)
		call.StageActiveBoard("B2")
		<-release
		return map[string]any{"activeBoardId": "B2"}, nil
	}

	_, err := inv.Invoke(context.Background(), "set_active_board", map[string]any{"boardId": "B2"})
	requireKind(t, err, mcp.KindUpstreamTimeout)

	close(release)
	<-finished
	assert.Empty(t, inv.Session().Snapshot().ActiveBoardID)
}

func TestCreateBoardUsesActiveWorkspace(t *testing.T) {
	inv := newTestInvoker(t, seededFake())
	inv.Session().SetActiveWorkspace("W1")

	got, err := inv.Invoke(context.Background(), "create_board", map[string]any{"name": "Launch"})
	require.NoError(t, err)
	board := got.(*trello.Board)
	assert.Equal(t, "Launch", board.Name)
	assert.Equal(t, "W1", board.WorkspaceID)
}

func TestListWorkspaces(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	got, err := inv.Invoke(context.Background(), "list_workspaces", nil)
	require.NoError(t, err)
	ws := got.(map[string]any)["workspaces"].([]trello.Workspace)
	require.Len(t, ws, 1)
	assert.Equal(t, "Acme", ws[0].DisplayName)
}

func TestSearchBoardsStructured(t *testing.T) {
	inv := newTestInvoker(t, seededFake())

	got, err := inv.Invoke(context.Background(), "search_boards", map[string]any{"query": "roadmap"})
	require.NoError(t, err)
	results := got.(map[string]any)["results"].([]boardRef)
	require.Len(t, results, 1)
	assert.Equal(t, "B2", results[0].ID)
}

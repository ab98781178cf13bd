package tools

import (
	"fmt"

	"trello-mcp/internal/mcp"
)

// Catalog variants.
const (
	// CatalogFull exposes every operation as its own tool.
	CatalogFull = "full"
	// CatalogPublic exposes the generic search/fetch pair plus a few
	// convenience tools.
	CatalogPublic = "public"
)

var publicTools = []string{
	"search",
	"fetch",
	"list_boards",
	"get_lists",
	"get_cards",
	"create_card",
	"set_active_board",
	"get_active_board_info",
}

// legacyAliases maps operation names older clients call directly.
var legacyAliases = map[string]string{
	"get_board_details": "get_board",
}

// Catalog returns the descriptors of a catalog variant, in listing order.
func Catalog(variant string) ([]mcp.Descriptor, error) {
	all := descriptors()
	switch variant {
	case "", CatalogFull:
		return all, nil
	case CatalogPublic:
		byName := make(map[string]mcp.Descriptor, len(all))
		for _, d := range all {
			byName[d.Name] = d
		}
		out := make([]mcp.Descriptor, 0, len(publicTools))
		for _, name := range publicTools {
			out = append(out, byName[name])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown catalog %q (want %q or %q)", variant, CatalogFull, CatalogPublic)
	}
}

func str(desc string) mcp.Property {
	return mcp.Property{Type: "string", Description: desc}
}

func object(required []string, props map[string]mcp.Property) mcp.Schema {
	if required == nil {
		required = []string{}
	}
	if props == nil {
		props = map[string]mcp.Property{}
	}
	return mcp.Schema{Type: "object", Properties: props, Required: required}
}

var minZero = 0

func descriptors() []mcp.Descriptor {
	return []mcp.Descriptor{
		{
			Name: "search",
			Description: "Search Trello boards by name or description. Returns a JSON text block " +
				`{"results":[{"id","title","url"}]}; pass an id to fetch for details.`,
			InputSchema: object([]string{"query"}, map[string]mcp.Property{
				"query": str("Case-insensitive text to look for"),
			}),
		},
		{
			Name: "fetch",
			Description: "Fetch a board, list or card by id. Returns a JSON text block " +
				`{"id","title","text","url","metadata":{"type"}}.`,
			InputSchema: object([]string{"id"}, map[string]mcp.Property{
				"id": str("Board, list or card id"),
			}),
		},
		{
			Name:        "list_boards",
			Description: "List open boards, limited to the given or active workspace when one is set.",
			InputSchema: object(nil, map[string]mcp.Property{
				"workspaceId": str("Workspace to list boards from"),
				"limit":       {Type: "integer", Description: "Maximum number of boards, 5 by default; 0 lists all", Minimum: &minZero},
			}),
		},
		{
			Name:        "search_boards",
			Description: "Search open boards by name or description.",
			InputSchema: object([]string{"query"}, map[string]mcp.Property{
				"query": str("Search term"),
			}),
		},
		{
			Name:        "get_board",
			Description: "Get board details. Defaults to the active board.",
			InputSchema: object(nil, map[string]mcp.Property{
				"boardId": str("Board id"),
			}),
		},
		{
			Name:        "get_lists",
			Description: "Get the lists of a board. Defaults to the active board.",
			InputSchema: object(nil, map[string]mcp.Property{
				"boardId": str("Board id"),
			}),
		},
		{
			Name:        "get_cards",
			Description: "Get the cards of a list.",
			InputSchema: object([]string{"listId"}, map[string]mcp.Property{
				"listId": str("List id"),
			}),
		},
		{
			Name:        "create_card",
			Description: "Create a card in a list.",
			InputSchema: object([]string{"listId", "name"}, map[string]mcp.Property{
				"listId": str("List to create the card in"),
				"name":   str("Card title"),
				"desc":   str("Card description"),
			}),
		},
		{
			Name:        "update_card",
			Description: "Rename, re-describe or move a card.",
			InputSchema: object([]string{"cardId"}, map[string]mcp.Property{
				"cardId": str("Card id"),
				"name":   str("New title"),
				"desc":   str("New description"),
				"listId": str("List to move the card to"),
			}),
		},
		{
			Name:        "archive_card",
			Description: "Archive (close) a card.",
			InputSchema: object([]string{"cardId"}, map[string]mcp.Property{
				"cardId": str("Card id"),
			}),
		},
		{
			Name:        "create_board",
			Description: "Create a board, in the given or active workspace when one is set.",
			InputSchema: object([]string{"name"}, map[string]mcp.Property{
				"name":        str("Board name"),
				"desc":        str("Board description"),
				"workspaceId": str("Workspace to create the board in"),
			}),
		},
		{
			Name:        "create_list",
			Description: "Create a list on a board. Defaults to the active board.",
			InputSchema: object([]string{"name"}, map[string]mcp.Property{
				"name":    str("List name"),
				"boardId": str("Board id"),
			}),
		},
		{
			Name:        "list_workspaces",
			Description: "List the workspaces the token's member belongs to.",
			InputSchema: object(nil, nil),
		},
		{
			Name:        "set_active_board",
			Description: "Select the board other tools default to.",
			InputSchema: object([]string{"boardId"}, map[string]mcp.Property{
				"boardId": str("Board id"),
			}),
		},
		{
			Name:        "set_active_workspace",
			Description: "Select the workspace list_boards and create_board default to.",
			InputSchema: object([]string{"workspaceId"}, map[string]mcp.Property{
				"workspaceId": str("Workspace id"),
			}),
		},
		{
			Name:        "get_active_board_info",
			Description: "Show the active board with its lists.",
			InputSchema: object(nil, nil),
		},
	}
}

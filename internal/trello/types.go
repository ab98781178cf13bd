package trello

// Board is the flat projection of a Trello board the adapter hands out.
type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Desc        string `json:"desc"`
	URL         string `json:"url"`
	Closed      bool   `json:"closed"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// List is the flat projection of a Trello list.
type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Closed  bool   `json:"closed"`
	BoardID string `json:"boardId"`
}

// Card is the flat projection of a Trello card.
type Card struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	URL    string `json:"url"`
	Closed bool   `json:"closed"`
	ListID string `json:"listId"`
}

// Workspace is a Trello organization.
type Workspace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

// CardParams are the inputs for CreateCard.
type CardParams struct {
	ListID string
	Name   string
	Desc   string
}

// CardUpdate holds optional card changes.
type CardUpdate struct {
	Name   *string
	Desc   *string
	ListID *string
	Closed *bool
}

// BoardParams are the inputs for CreateBoard.
type BoardParams struct {
	Name        string
	Desc        string
	WorkspaceID string
}

// Wire shapes, as Trello returns them.

type apiBoard struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Desc           string `json:"desc"`
	URL            string `json:"url"`
	ShortURL       string `json:"shortUrl"`
	Closed         bool   `json:"closed"`
	IDOrganization string `json:"idOrganization"`
}

func (b apiBoard) board() Board {
	return Board{
		ID:          b.ID,
		Name:        b.Name,
		Desc:        b.Desc,
		URL:         firstNonEmpty(b.ShortURL, b.URL),
		Closed:      b.Closed,
		WorkspaceID: b.IDOrganization,
	}
}

func boardsFrom(raw []apiBoard) []Board {
	out := make([]Board, 0, len(raw))
	for _, b := range raw {
		out = append(out, b.board())
	}
	return out
}

type apiList struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Closed  bool   `json:"closed"`
	IDBoard string `json:"idBoard"`
}

func (l apiList) list() List {
	return List{ID: l.ID, Name: l.Name, Closed: l.Closed, BoardID: l.IDBoard}
}

type apiCard struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	URL      string `json:"url"`
	ShortURL string `json:"shortUrl"`
	Closed   bool   `json:"closed"`
	IDList   string `json:"idList"`
}

func (c apiCard) card() Card {
	return Card{
		ID:     c.ID,
		Name:   c.Name,
		Desc:   c.Desc,
		URL:    firstNonEmpty(c.ShortURL, c.URL),
		Closed: c.Closed,
		ListID: c.IDList,
	}
}

type apiWorkspace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	URL         string `json:"url"`
}

func (w apiWorkspace) workspace() Workspace {
	return Workspace{ID: w.ID, Name: w.Name, DisplayName: w.DisplayName, URL: w.URL}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

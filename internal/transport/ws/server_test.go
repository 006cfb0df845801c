package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/dispatch"
	"jetgo.dev/internal/game/hideout"
	"jetgo.dev/internal/game/item"
	"jetgo.dev/internal/game/profile"
	"jetgo.dev/internal/game/quest"
	"jetgo.dev/internal/game/trading"
	"jetgo.dev/internal/persistence/store"
	"jetgo.dev/internal/protocol"
)

const (
	tplStash  = "tpl_stash"
	tplRouble = "tpl_rouble"
)

func testContent() *content.Content {
	return &content.Content{
		Templates: content.TemplateCatalog{
			Digest: "tdig",
			Defs: map[string]content.ItemTemplate{
				tplStash: {ID: tplStash, Props: content.TemplateProps{
					Grids: []content.GridDef{{ID: "hideout", CellsH: 10, CellsV: 10}},
				}},
				tplRouble: {ID: tplRouble, Props: content.TemplateProps{
					Width: 1, Height: 1, StackMaxSize: 500, CreditsPrice: 1,
				}},
			},
		},
		Presets: content.PresetCatalog{Digest: "pdig"},
		Traders: content.TraderFiles{Digest: "trdig"},
		Quests:  content.QuestCatalog{Digest: "qdig"},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	c := testContent()
	f := item.NewFactory(c)
	d := dispatch.New(c, f, trading.NewService(c, f, trading.Config{}), hideout.NewService(c, f), quest.NewService(c, f), nil)

	st := store.New(t.TempDir())
	reg := profile.NewRegistry(st)
	reg.Create = func(id string) (*profile.State, error) {
		money := item.Item{ID: "money1", Tpl: tplRouble, ParentID: "stash", SlotID: "hideout",
			Location: &item.Location{Grid: &item.GridLocation{X: 0, Y: 0}}}
		money.SetCount(500)
		return &profile.State{
			ID: id,
			Inventory: profile.InventoryState{
				StashRoot: "stash",
				Items:     []item.Item{{ID: "stash", Tpl: tplStash}, money},
			},
		}, nil
	}

	srv := httptest.NewServer(NewServer(c, reg, d, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
}

func handshake(t *testing.T, conn *websocket.Conn, profileID string) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ProfileID: profileID})
	var w protocol.WelcomeMsg
	recv(t, conn, &w)
	return w
}

func TestHandshakeAdvertisesContentDigests(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	w := handshake(t, conn, "p1")
	if w.Type != protocol.TypeWelcome {
		t.Fatalf("type = %q", w.Type)
	}
	if w.ProfileID != "p1" || w.SessionID == "" {
		t.Fatalf("welcome = %+v", w)
	}
	if w.Content.TemplatesDigest != "tdig" || w.Content.QuestsDigest != "qdig" {
		t.Fatalf("digests = %+v", w.Content)
	}
	if w.Content.TemplateCount != 2 {
		t.Fatalf("template_count = %d, want 2", w.Content.TemplateCount)
	}
}

func TestActAppliesBatchAndPersists(t *testing.T) {
	srv, st := newTestServer(t)
	conn := dial(t, srv)
	handshake(t, conn, "p1")

	move := json.RawMessage(`{"Action":"Move","item":"money1","to":{"id":"stash","container":"hideout","location":{"x":4,"y":4,"r":"Horizontal"}}}`)
	send(t, conn, protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              "req1",
		Actions:         []json.RawMessage{move},
	})

	var res protocol.ResultMsg
	recv(t, conn, &res)
	if res.Ref != "req1" {
		t.Fatalf("ref = %q", res.Ref)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if len(res.ProfileChanges.Changed) == 0 && len(res.ProfileChanges.New) == 0 {
		t.Fatalf("no changes reported")
	}

	saved, err := st.Read("p1")
	if err != nil {
		t.Fatalf("store read: %v", err)
	}
	var moved *item.Item
	for i := range saved.Inventory.Items {
		if saved.Inventory.Items[i].ID == "money1" {
			moved = &saved.Inventory.Items[i]
		}
	}
	if moved == nil || moved.Location == nil || moved.Location.Grid == nil || moved.Location.Grid.X != 4 {
		t.Fatalf("move not persisted: %+v", moved)
	}
}

func TestBusinessErrorRidesInPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)
	handshake(t, conn, "p1")

	move := json.RawMessage(`{"Action":"Move","item":"no_such_item","to":{"id":"stash","container":"hideout"}}`)
	send(t, conn, protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Actions:         []json.RawMessage{move},
	})

	var res protocol.ResultMsg
	recv(t, conn, &res)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if res.Errors[0].Code != protocol.ErrNotFound {
		t.Fatalf("code = %q, want %q", res.Errors[0].Code, protocol.ErrNotFound)
	}
	if len(res.ProfileChanges.New)+len(res.ProfileChanges.Changed)+len(res.ProfileChanges.Deleted) != 0 {
		t.Fatalf("failed batch reported changes: %+v", res.ProfileChanges)
	}
}

func TestActVersionMismatchRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)
	handshake(t, conn, "p1")

	send(t, conn, protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: "0.1",
		ID:              "old",
		Actions:         []json.RawMessage{},
	})

	var res protocol.ResultMsg
	recv(t, conn, &res)
	if len(res.Errors) != 1 || res.Errors[0].Code != protocol.ErrProtoBadRequest {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if res.Ref != "old" {
		t.Fatalf("ref = %q", res.Ref)
	}
}

func TestHandshakeRequiresHello(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version})
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("connection survived without HELLO")
	}
}

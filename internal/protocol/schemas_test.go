package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"jetgo.dev/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	actSchema := compile("act.schema.json")
	resultSchema := compile("result.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"0.4",
	  "profile_id":"p1",
	  "session_name":"phone"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"0.4",
	  "profile_id":"p1",
	  "session_id":"s1",
	  "content":{
	    "templates_digest":"deadbeef",
	    "presets_digest":"deadbeef",
	    "traders_digest":"deadbeef",
	    "quests_digest":"deadbeef",
	    "template_count":3100
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var act any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"0.4",
	  "id":"req1",
	  "profile_id":"p1",
	  "actions":[
	    {"Action":"Move","item":"i1","to":{"id":"stash","container":"hideout","location":{"x":0,"y":0,"r":"Horizontal"}}},
	    {"Action":"TradingConfirm","type":"buy_from_trader","tid":"t1","item_id":"a1","count":2}
	  ]
	}`), &act)
	validate(actSchema, act)

	var result any
	_ = json.Unmarshal([]byte(`{
	  "type":"RESULT",
	  "protocol_version":"0.4",
	  "ref":"req1",
	  "profile_changes":{
	    "new":[{"_id":"i2","_tpl":"tpl_ammo","parentId":"stash","slotId":"hideout","location":{"x":1,"y":0,"r":"Horizontal"},"upd":{"StackCount":30}}],
	    "changed":[{"_id":"i1","_tpl":"tpl_ammo","upd":{"StackCount":20}}],
	    "deleted":[{"_id":"i0"}]
	  },
	  "errors":[{"code":"E_NO_SPACE","title":"no space","message":"2x1 does not fit"}]
	}`), &result)
	validate(resultSchema, result)
}

// The server's own marshaled frames must satisfy the published schemas.
func TestSchemas_ValidateMarshaledMessages(t *testing.T) {
	resultSchema, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "result.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             "r1",
		ProfileChanges: protocol.ProfileChanges{
			New: []protocol.ItemView{{
				ID:       "i1",
				Tpl:      "tpl_medkit",
				ParentID: "stash",
				SlotID:   "hideout",
				Location: json.RawMessage(`{"x":0,"y":0,"r":"Horizontal"}`),
			}},
		},
		Errors: []protocol.ErrorEntry{},
	}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := resultSchema.Validate(doc); err != nil {
		t.Fatalf("marshaled RESULT breaks schema: %v", err)
	}

	welcomeSchema, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "welcome.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	w := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ProfileID:       "p1",
		SessionID:       "s1",
	}
	b, err = json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := welcomeSchema.Validate(doc); err != nil {
		t.Fatalf("marshaled WELCOME breaks schema: %v", err)
	}
}

package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ProfileID       string `json:"profile_id"`
	SessionName     string `json:"session_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ProfileID       string         `json:"profile_id"`
	SessionID       string         `json:"session_id"`
	Content         ContentDigests `json:"content"`
}

type ContentDigests struct {
	TemplatesDigest string `json:"templates_digest"`
	PresetsDigest   string `json:"presets_digest"`
	TradersDigest   string `json:"traders_digest"`
	QuestsDigest    string `json:"quests_digest"`
	TemplateCount   int    `json:"template_count"`
}

// ACT (client -> server): one ordered batch of actions applied to a single profile.
type ActMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ID              string            `json:"id,omitempty"`
	ProfileID       string            `json:"profile_id"`
	Actions         []json.RawMessage `json:"actions"`
}

// RESULT (server -> client): three item buckets plus a structured error list.
// Transport delivery always succeeds; business failures ride in Errors.
type ResultMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Ref             string         `json:"ref,omitempty"`
	ProfileChanges  ProfileChanges `json:"profile_changes"`
	Errors          []ErrorEntry   `json:"errors"`
}

type ProfileChanges struct {
	New     []ItemView `json:"new"`
	Changed []ItemView `json:"changed"`
	Deleted []ItemRef  `json:"deleted"`
}

type ErrorEntry struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ItemView mirrors the in-memory item shape on the wire.
type ItemView struct {
	ID       string          `json:"_id"`
	Tpl      string          `json:"_tpl"`
	ParentID string          `json:"parentId,omitempty"`
	SlotID   string          `json:"slotId,omitempty"`
	Location json.RawMessage `json:"location,omitempty"`
	Upd      json.RawMessage `json:"upd,omitempty"`
}

type ItemRef struct {
	ID string `json:"_id"`
}

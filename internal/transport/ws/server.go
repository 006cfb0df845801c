// Package ws carries the client protocol over a websocket: one HELLO/WELCOME
// handshake per connection, then ACT batches answered by RESULT frames. A
// frame that reaches the dispatcher always gets a RESULT back; business
// failures ride in the errors list, never in transport status.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/dispatch"
	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/profile"
	auditlog "jetgo.dev/internal/persistence/log"
	"jetgo.dev/internal/protocol"
)

const (
	helloTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
)

// Auditor records handled actions. The zero value of a nil Auditor is fine;
// the server skips auditing when none is wired.
type Auditor interface {
	WriteAudit(auditlog.AuditEntry) error
}

type Server struct {
	content  *content.Content
	registry *profile.Registry
	dispatch *dispatch.Dispatcher
	audit    Auditor
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(c *content.Content, reg *profile.Registry, d *dispatch.Dispatcher, audit Auditor, logger *log.Logger) *Server {
	return &Server{
		content:  c,
		registry: reg,
		dispatch: d,
		audit:    audit,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		profileID := s.handshake(conn)
		if profileID == "" {
			return
		}

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.writeProtoError(conn, "", "malformed frame")
				continue
			}
			if base.Type != protocol.TypeAct {
				continue
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				s.writeProtoError(conn, "", "malformed ACT")
				continue
			}
			if act.ProtocolVersion != protocol.Version {
				s.writeProtoError(conn, act.ID, "unsupported protocol_version")
				continue
			}
			if act.ProfileID != "" && act.ProfileID != profileID {
				s.writeProtoError(conn, act.ID, "profile_id does not match session")
				continue
			}

			res := s.apply(r.Context(), profileID, act)
			if err := writeJSON(conn, res); err != nil {
				return
			}
		}
	}
}

func (s *Server) apply(ctx context.Context, profileID string, act protocol.ActMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             act.ID,
		Errors:          []protocol.ErrorEntry{},
	}

	var changes protocol.ProfileChanges
	err := s.registry.WithProfile(ctx, profileID, func(st *profile.State) error {
		var applyErr error
		changes, applyErr = s.dispatch.Apply(st, act.Actions)
		return applyErr
	})

	code := ""
	if err != nil {
		code = codeFor(err)
		res.Errors = append(res.Errors, protocol.ErrorEntry{
			Code:    code,
			Title:   gameerr.KindOf(err).String(),
			Message: err.Error(),
		})
	} else {
		res.ProfileChanges = changes
	}

	if s.audit != nil {
		_ = s.audit.WriteAudit(auditlog.AuditEntry{
			At:        time.Now().Unix(),
			ProfileID: profileID,
			Action:    batchLabel(act.Actions),
			Code:      code,
		})
	}
	return res
}

// batchLabel names an audit row after the batch's first action tag.
func batchLabel(actions []json.RawMessage) string {
	if len(actions) == 0 {
		return "(empty)"
	}
	var tag struct {
		Action string `json:"Action"`
	}
	if err := json.Unmarshal(actions[0], &tag); err != nil || tag.Action == "" {
		return "(unknown)"
	}
	if len(actions) > 1 {
		return tag.Action + "+"
	}
	return tag.Action
}

func codeFor(err error) string {
	switch gameerr.KindOf(err) {
	case gameerr.KindNotFound:
		return protocol.ErrNotFound
	case gameerr.KindNoSpace:
		return protocol.ErrNoSpace
	case gameerr.KindInvalidOperation:
		return protocol.ErrInvalidOperation
	case gameerr.KindUnimplemented:
		return protocol.ErrUnimplemented
	default:
		return protocol.ErrInternal
	}
}

func (s *Server) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return ""
	}
	if hello.ProfileID == "" {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing profile_id"), time.Now().Add(time.Second))
		return ""
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ProfileID:       hello.ProfileID,
		SessionID:       uuid.NewString(),
		Content: protocol.ContentDigests{
			TemplatesDigest: s.content.Templates.Digest,
			PresetsDigest:   s.content.Presets.Digest,
			TradersDigest:   s.content.Traders.Digest,
			QuestsDigest:    s.content.Quests.Digest,
			TemplateCount:   len(s.content.Templates.Defs),
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return ""
	}
	if s.log != nil {
		s.log.Printf("session %s opened for profile %s", welcome.SessionID, hello.ProfileID)
	}
	return hello.ProfileID
}

func (s *Server) writeProtoError(conn *websocket.Conn, ref, msg string) {
	res := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             ref,
		Errors: []protocol.ErrorEntry{{
			Code:    protocol.ErrProtoBadRequest,
			Title:   "bad request",
			Message: msg,
		}},
	}
	_ = writeJSON(conn, res)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jcorbin/autoblock/internal/autoformat"
)

// session is one websocket connection editing a document.
type session struct {
	srv  *Server
	conn *websocket.Conn
	doc  *openDoc
	send chan ServerMessage
}

// push queues msg for this session only.
func (sess *session) push(msg ServerMessage) {
	sess.srv.mu.Lock()
	defer sess.srv.mu.Unlock()
	select {
	case sess.send <- msg:
	default:
		sess.srv.logger.Warn("session send buffer full, dropping message", "doc", sess.doc.id)
	}
}

func (sess *session) readLoop(ctx context.Context) {
	defer func() {
		sess.srv.close(sess)
		_ = sess.conn.Close()
		sess.srv.logger.Info("session closed", "doc", sess.doc.id)
	}()

	sess.conn.SetReadLimit(maxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := sess.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.srv.logger.Warn("session read failed", "doc", sess.doc.id, "err", err)
			}
			return
		}
		if err := sess.handle(ctx, msg); err != nil {
			sess.srv.logger.Error("session message failed", "doc", sess.doc.id, "type", msg.Type, "err", err)
			sess.push(ServerMessage{Type: MsgError, Error: err.Error()})
		}
	}
}

func (sess *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sess.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sess.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sess.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (sess *session) handle(ctx context.Context, msg ClientMessage) error {
	store := sess.doc.store
	switch msg.Type {
	case MsgFocus:
		return store.Focus(msg.Index)

	case MsgSave:
		if msg.Document == nil {
			return fmt.Errorf("%v message without document", MsgSave)
		}
		store.Reset(*msg.Document)
		return sess.commit(ctx, nil)

	case MsgInput:
		out := sess.srv.engine.Handle(ctx, store, autoformat.Span{
			Content:  msg.Content,
			Index:    msg.Index,
			ReadOnly: msg.ReadOnly,
		})
		switch out.Status {
		case autoformat.Transformed, autoformat.Dropped:
		default:
			// keep the server copy in step with what the surface shows
			if err := store.SetText(out.Index, out.Content); err != nil {
				sess.srv.logger.Debug("text sync skipped", "doc", sess.doc.id, "index", out.Index, "err", err)
			}
		}
		return sess.commit(ctx, makeOutcome(out))

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// commit persists the document, replies to this session with the outcome,
// and updates every other session.
func (sess *session) commit(ctx context.Context, out *Outcome) error {
	doc, err := sess.srv.persist(ctx, sess.doc)
	if err != nil {
		return err
	}
	sess.push(ServerMessage{Type: MsgDocument, Document: &doc, Outcome: out})
	sess.srv.broadcast(sess.doc, ServerMessage{Type: MsgDocument, Document: &doc}, sess)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

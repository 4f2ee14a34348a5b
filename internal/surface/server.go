package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jcorbin/autoblock/internal/autoformat"
	"github.com/jcorbin/autoblock/internal/blocks"
	"github.com/jcorbin/autoblock/internal/docstore"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 16
)

// Server serves editing sessions for documents kept in a Repo.
type Server struct {
	engine *autoformat.Engine
	repo   docstore.Repo
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu   sync.Mutex
	docs map[string]*openDoc
}

// Options configures a Server.
type Options struct {
	Logger *slog.Logger

	// AllowedOrigins lists the Origin header values accepted for websocket
	// upgrades; empty means same-origin only.
	AllowedOrigins []string
}

// openDoc is a document with at least one connected session.
type openDoc struct {
	id       string
	store    *blocks.MemStore
	sessions map[*session]struct{}
}

// NewServer creates a server running engine over documents from repo.
func NewServer(engine *autoformat.Engine, repo docstore.Repo, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{
		engine: engine,
		repo:   repo,
		logger: logger,
		docs:   make(map[string]*openDoc),
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(opts.AllowedOrigins) > 0 {
		allowed := make(map[string]bool, len(opts.AllowedOrigins))
		for _, origin := range opts.AllowedOrigins {
			allowed[origin] = true
		}
		srv.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed[r.Header.Get("Origin")]
		}
	}
	return srv
}

// Handler returns the server's HTTP routes.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{doc}", srv.serveWS)
	mux.HandleFunc("GET /documents", srv.serveList)
	if fr, ok := srv.repo.(FolderRepo); ok {
		srv.handleFolders(mux, fr)
	}
	return mux
}

func (srv *Server) serveList(w http.ResponseWriter, r *http.Request) {
	entries, err := srv.repo.List(r.Context())
	if err != nil {
		srv.logger.Error("list documents failed", "err", err)
		http.Error(w, "unable to list documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (srv *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("doc")
	if err := docstore.CheckID(id); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Debug("websocket upgrade failed", "err", err)
		return // upgrader already replied
	}

	sess := &session{
		srv:  srv,
		conn: conn,
		send: make(chan ServerMessage, sendBuffer),
	}
	od, err := srv.open(r.Context(), id, sess)
	if err != nil {
		srv.logger.Error("open document failed", "doc", id, "err", err)
		_ = conn.WriteJSON(ServerMessage{Type: MsgError, Error: "unable to open document"})
		_ = conn.Close()
		return
	}
	sess.doc = od
	srv.logger.Info("session opened", "doc", id, "remote", r.RemoteAddr)

	go sess.writeLoop()
	doc := od.store.Snapshot()
	sess.push(ServerMessage{Type: MsgDocument, Document: &doc})
	sess.readLoop(r.Context())
}

// open returns the shared open document for id, loading or creating it, and
// registers sess with it.
func (srv *Server) open(ctx context.Context, id string, sess *session) (*openDoc, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if od := srv.docs[id]; od != nil {
		od.sessions[sess] = struct{}{}
		return od, nil
	}

	doc, err := srv.repo.Load(ctx, id)
	if errors.Is(err, docstore.ErrNotExist) {
		doc = blocks.Document{
			Time:    time.Now().UnixMilli(),
			Blocks:  []blocks.Block{blocks.NewParagraph("initial", "")},
			Version: blocks.DefaultVersion,
		}
		err = srv.repo.Create(ctx, id, doc)
	}
	if err != nil {
		return nil, err
	}

	od := &openDoc{
		id:       id,
		store:    blocks.NewMemStore(doc),
		sessions: map[*session]struct{}{sess: {}},
	}
	srv.docs[id] = od
	return od, nil
}

func (srv *Server) close(sess *session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	od := sess.doc
	delete(od.sessions, sess)
	close(sess.send)
	if len(od.sessions) == 0 {
		delete(srv.docs, od.id)
	}
}

// broadcast sends msg to every session of od; sessions that cannot keep up
// are disconnected.
func (srv *Server) broadcast(od *openDoc, msg ServerMessage, except *session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for sess := range od.sessions {
		if sess == except {
			continue
		}
		select {
		case sess.send <- msg:
		default:
			srv.logger.Warn("session send buffer full, disconnecting", "doc", od.id)
			_ = sess.conn.Close()
		}
	}
}

// Reload refreshes an open document from the repo, e.g. after another
// process changed it, notifying its sessions if its content differs.
func (srv *Server) Reload(ctx context.Context, id string) error {
	srv.mu.Lock()
	od := srv.docs[id]
	srv.mu.Unlock()
	if od == nil {
		return nil
	}

	doc, err := srv.repo.Load(ctx, id)
	if err != nil {
		return err
	}
	have, err := od.store.Snapshot().Digest()
	if err != nil {
		return err
	}
	if sum, err := doc.Digest(); err != nil {
		return err
	} else if sum == have {
		return nil
	}
	od.store.Reset(doc)
	srv.logger.Info("reloaded document", "doc", id)
	snap := od.store.Snapshot()
	srv.broadcast(od, ServerMessage{Type: MsgDocument, Document: &snap}, nil)
	return nil
}

// persist saves od's current content.
func (srv *Server) persist(ctx context.Context, od *openDoc) (blocks.Document, error) {
	doc := od.store.Snapshot()
	if err := srv.repo.Save(ctx, od.id, doc); err != nil {
		return doc, fmt.Errorf("save %q: %w", od.id, err)
	}
	return doc, nil
}

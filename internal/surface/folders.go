package surface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jcorbin/autoblock/internal/docstore"
)

// FolderRepo is implemented by repos that organize documents into folders,
// as docstore.SQLiteRepo does. The folder routes are served only for them.
type FolderRepo interface {
	CreateFolder(ctx context.Context, name string, parent *int64) (int64, error)
	MoveDocument(ctx context.Context, id string, folder *int64) error
	Folders(ctx context.Context) ([]docstore.Folder, error)
}

// CreateFolderRequest is the body of POST /folders.
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// MoveDocumentRequest is the body of PUT /documents/{doc}/folder; a nil
// FolderID moves the document back to the top level.
type MoveDocumentRequest struct {
	FolderID *int64 `json:"folder_id"`
}

func (srv *Server) handleFolders(mux *http.ServeMux, fr FolderRepo) {
	mux.HandleFunc("GET /folders", func(w http.ResponseWriter, r *http.Request) {
		folders, err := fr.Folders(r.Context())
		if err != nil {
			srv.httpError(w, "list folders", err)
			return
		}
		if folders == nil {
			folders = []docstore.Folder{}
		}
		writeJSON(w, http.StatusOK, folders)
	})

	mux.HandleFunc("POST /folders", func(w http.ResponseWriter, r *http.Request) {
		var req CreateFolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid folder request", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "folder name required", http.StatusBadRequest)
			return
		}
		id, err := fr.CreateFolder(r.Context(), req.Name, req.ParentID)
		if err != nil {
			srv.httpError(w, "create folder", err)
			return
		}
		srv.logger.Info("created folder", "id", id, "name", req.Name)
		writeJSON(w, http.StatusCreated, docstore.Folder{ID: id, Name: req.Name, ParentID: req.ParentID, Documents: []string{}})
	})

	mux.HandleFunc("PUT /documents/{doc}/folder", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("doc")
		if err := docstore.CheckID(id); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req MoveDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid move request", http.StatusBadRequest)
			return
		}
		if err := fr.MoveDocument(r.Context(), id, req.FolderID); err != nil {
			srv.httpError(w, "move document", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// httpError replies with the status matching err's kind.
func (srv *Server) httpError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, docstore.ErrNotExist), errors.Is(err, docstore.ErrNoFolder):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, docstore.ErrInvalidID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		srv.logger.Error(what+" failed", "err", err)
		http.Error(w, "unable to "+what, http.StatusInternalServerError)
	}
}

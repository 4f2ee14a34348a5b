// Package surface connects editing surfaces to the autoformat engine over
// websockets.
//
// A surface opens /ws/{doc} and then sends a message for every content change
// of the block being edited:
//
//	{"type": "input", "index": 2, "content": "# Title&nbsp;"}
//
// and receives the resulting document, along with what the engine did:
//
//	{"type": "document", "document": {...}, "outcome": {"status": "transformed", ...}}
//
// Every session editing the same document receives its updates.
//
// GET /documents lists the stored documents. Repos with folders also serve
// GET /folders, POST /folders, and PUT /documents/{doc}/folder.
package surface

import (
	"fmt"

	"github.com/jcorbin/autoblock/internal/autoformat"
	"github.com/jcorbin/autoblock/internal/blocks"
)

// Client message types.
const (
	MsgInput = "input" // content of block Index changed to Content
	MsgFocus = "focus" // caret entered block Index
	MsgSave  = "save"  // surface saved Document wholesale
)

// Server message types.
const (
	MsgDocument = "document"
	MsgError    = "error"
)

// ClientMessage is sent by the editing surface.
type ClientMessage struct {
	Type     string           `json:"type"`
	Index    int              `json:"index"`
	Content  string           `json:"content,omitempty"`
	ReadOnly bool             `json:"readOnly,omitempty"`
	Document *blocks.Document `json:"document,omitempty"`
}

// ServerMessage is sent to editing surfaces.
type ServerMessage struct {
	Type     string           `json:"type"`
	Document *blocks.Document `json:"document,omitempty"`
	Outcome  *Outcome         `json:"outcome,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Outcome reports an engine outcome to the surface that caused it.
type Outcome struct {
	Status  autoformat.Status `json:"status"`
	Index   int               `json:"index"`
	Content string            `json:"content"`
	Match   string            `json:"match,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func makeOutcome(out autoformat.Outcome) *Outcome {
	msg := &Outcome{
		Status:  out.Status,
		Index:   out.Index,
		Content: out.Content,
	}
	if out.Match != nil {
		if s, ok := out.Match.(fmt.Stringer); ok {
			msg.Match = s.String()
		}
	}
	if out.Err != nil {
		msg.Error = out.Err.Error()
	}
	return msg
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ClassifyCmd prints what shorthand some content would become.
type ClassifyCmd struct {
	EngineFlags `embed:""`

	Content string `arg:"" help:"Span content, without the sentinel."`
}

type classification struct {
	Match string      `json:"match"`
	Type  string      `json:"type,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

func (c *ClassifyCmd) Run(e *env) error {
	eng, err := c.engine(e.logger)
	if err != nil {
		return err
	}
	m, err := eng.Recognize(e.ctx, c.Content)
	if err != nil {
		return err
	}

	var out classification
	out.Match = fmt.Sprint(m)
	out.Type, out.Data = m.Block()

	enc := json.NewEncoder(e.out)
	if f, ok := e.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

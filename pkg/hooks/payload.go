// Package hooks runs the coordination layer from agent host hooks. Each
// runner reads one JSON payload from stdin, does its work and always exits
// 0 unless a critical conflict must block an edit.
package hooks

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/grovetools/coord/errors"
)

// maxPayloadBytes bounds what is read from stdin.
const maxPayloadBytes = 4 << 20

// ToolInput is the subset of tool arguments the runners look at.
type ToolInput struct {
	FilePath     string `json:"file_path,omitempty"`
	Path         string `json:"path,omitempty"`
	NotebookPath string `json:"notebook_path,omitempty"`
	Command      string `json:"command,omitempty"`
	Content      string `json:"content,omitempty"`
	OldString    string `json:"old_string,omitempty"`
	NewString    string `json:"new_string,omitempty"`
}

// Payload is the JSON document a host writes to a hook's stdin.
type Payload struct {
	HookEventName  string    `json:"hook_event_name,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	Cwd            string    `json:"cwd,omitempty"`
	ToolName       string    `json:"tool_name,omitempty"`
	ToolInput      ToolInput `json:"tool_input"`
}

// TargetPath returns the file the tool call is about, or "".
func (p *Payload) TargetPath() string {
	switch {
	case p.ToolInput.FilePath != "":
		return p.ToolInput.FilePath
	case p.ToolInput.Path != "":
		return p.ToolInput.Path
	}
	return p.ToolInput.NotebookPath
}

// ReadPayload decodes a payload from r. Empty input yields an empty
// payload, which is what a manual run without stdin produces.
func ReadPayload(r io.Reader) (*Payload, error) {
	if r == nil {
		return &Payload{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "read hook payload")
	}
	if strings.TrimSpace(string(data)) == "" {
		return &Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "decode hook payload")
	}
	return &p, nil
}

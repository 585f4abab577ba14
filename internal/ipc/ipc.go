// Package ipc implements the daemon's local control API: an HTTP server
// listening on a Unix domain socket with three routes (GET /watch,
// POST /watch, POST /kill), and a matching client used by the CLI.
package ipc

import (
	"encoding/json"
	"fmt"
)

// envelope is the tagged success/failure response wrapper every route
// returns.
type envelope struct {
	Result  string          `json:"result"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

func successEnvelope(data any) envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		return envelope{Result: "failed", Message: err.Error()}
	}
	return envelope{Result: "success", Data: raw}
}

func failedEnvelope(err error) envelope {
	return envelope{Result: "failed", Message: err.Error()}
}

// watchListResponse is the data payload of a successful GET /watch.
type watchListResponse struct {
	Paths []string `json:"paths"`
}

// watchMutationRequest is the tagged body of POST /watch.
type watchMutationRequest struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Config json.RawMessage `json:"config,omitempty"`
}

// errNonSuccess is returned by client calls when the daemon's response
// envelope has result != "success".
type errNonSuccess struct {
	Message string
}

func (e *errNonSuccess) Error() string {
	return fmt.Sprintf("daemon request failed: %s", e.Message)
}

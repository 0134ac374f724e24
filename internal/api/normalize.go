package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cuzradio/storectl/internal/errs"
)

// serverMessage is the backend's error body: {"message": string | string[]}.
type serverMessage struct {
	parts []string
}

func (m *serverMessage) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		m.parts = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	m.parts = many
	return nil
}

// join collapses array messages into one user-facing string.
func (m serverMessage) join() string { return strings.Join(m.parts, ". ") }

// normalizeStatus maps a non-2xx response to the error taxonomy. Every
// command handler and fetch path goes through here; there is no per-call
// error mapping anywhere else.
func normalizeStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var payload struct {
		Message serverMessage `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		msg = payload.Message.join()
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if msg == "" {
			msg = "invalid or expired credential"
		}
		return fmt.Errorf("%w: %s", errs.ErrUnauthenticated, msg)
	}
	if msg == "" {
		// Non-2xx with an unrecognizable body is still a server verdict,
		// but we cannot say more than the status line.
		return fmt.Errorf("%w: %s", errs.ErrUnexpected, resp.Status)
	}
	return fmt.Errorf("%w: %s", errs.ErrRejected, msg)
}

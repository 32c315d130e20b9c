// Package wire holds the pipe-delimited text protocol spoken with the dash
// telemetry source. Every message is `key|value`; the value may be empty.
package wire

import (
	"errors"
	"fmt"
	"strings"
)

const Delimiter = "|"

// protocol tokens; byte-exact, the source matches on them literally
const (
	KeyHandshakeInit      = "echo"
	KeyPeerID             = "pid"
	KeyTemplateLoading    = "mainTemplateLoading"
	KeyRegisterComponents = "registerComponents"
	KeyTemplateLoaded     = "mainTemplateLoaded"

	InitialPeerID = "-1"

	//nolint:lll // fixed template resource path
	TemplatePath = "/Dashtemplates/RSC - Input Display - Analog/RSC - Input Display - Analog.djson"
)

var ErrMalformed = errors.New("malformed wire message")

// Encode renders a single protocol message.
func Encode(key, value string) string {
	return key + Delimiter + value
}

// HandshakeAck is the server's reply to the initiation message.
func HandshakeAck() string {
	return Encode(InitialPeerID, KeyHandshakeInit)
}

// Frame is one inbound steady-state message: a request id that must be
// acked with `pid|<id>` and the raw JSON payload.
type Frame struct {
	RequestID string
	Payload   string
}

// Decode splits an inbound message on the first delimiter. The payload is
// JSON and may itself contain the delimiter, so only the first one counts.
func Decode(msg string) (Frame, error) {
	idx := strings.Index(msg, Delimiter)
	if idx < 0 {
		return Frame{}, fmt.Errorf("%w: %q", ErrMalformed, abbrev(msg))
	}
	return Frame{RequestID: msg[:idx], Payload: msg[idx+1:]}, nil
}

func abbrev(msg string) string {
	if len(msg) > 40 {
		return msg[:40] + "..."
	}
	return msg
}

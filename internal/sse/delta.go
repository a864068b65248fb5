package sse

import (
	"encoding/json"
	"strings"
)

// DeltaKind discriminates the result of parsing one complete stream line.
type DeltaKind int

const (
	// DeltaContent carries an incremental fragment of assistant text. The
	// fragment may be empty when the payload decoded but held no content.
	DeltaContent DeltaKind = iota
	// DeltaComment covers blank separator lines and ':'-prefixed comments
	// (provider heartbeats). Callers skip these.
	DeltaComment
	// DeltaTerminal is the sentinel payload marking stream completion.
	DeltaTerminal
	// DeltaUnrecognized is anything that did not decode. Raw holds a bounded
	// excerpt for diagnostics; one bad line never fails the stream.
	DeltaUnrecognized
)

const (
	doneSentinel = "[DONE]"

	// maxDiagnosticLen bounds the raw payload kept on unrecognized lines so
	// a garbage line cannot blow up log output.
	maxDiagnosticLen = 160
)

// Delta is the parse result for one stream line.
type Delta struct {
	Kind    DeltaKind
	Content string
	Raw     string
}

// deltaPayload accepts both the bare {"content": ...} shape and the
// OpenAI-compatible choices/delta shape; providers differ.
type deltaPayload struct {
	Content string `json:"content"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseDelta interprets one complete line under the event-stream convention:
// "data: " carries a payload, blank lines separate events, ':' prefixes
// comments, and the [DONE] payload terminates the stream. It never returns
// an error; undecodable input degrades to DeltaUnrecognized.
func ParseDelta(line string) Delta {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ":") {
		return Delta{Kind: DeltaComment}
	}
	if !strings.HasPrefix(trimmed, "data:") {
		return Delta{Kind: DeltaUnrecognized, Raw: Truncate(trimmed)}
	}

	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, "data:"))
	if payload == doneSentinel {
		return Delta{Kind: DeltaTerminal}
	}

	var decoded deltaPayload
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return Delta{Kind: DeltaUnrecognized, Raw: Truncate(payload)}
	}

	content := decoded.Content
	if content == "" && len(decoded.Choices) > 0 {
		content = decoded.Choices[0].Delta.Content
	}
	// A payload missing the content path is an empty delta, not an error.
	return Delta{Kind: DeltaContent, Content: content}
}

// Truncate bounds a raw stream line for diagnostics so a garbage line
// cannot blow up log output.
func Truncate(s string) string {
	if len(s) <= maxDiagnosticLen {
		return s
	}
	return s[:maxDiagnosticLen] + "..."
}

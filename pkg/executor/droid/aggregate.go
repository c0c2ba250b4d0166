package droid

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

const (
	DefaultMaxAgentMessagesSize = 10 * 1024 * 1024
	DefaultMaxAllMessagesSize   = 50 * 1024 * 1024
	DefaultMaxStderrSize        = 100_000

	// TruncationMarker is appended once when the agent text buffer overflows.
	TruncationMarker = "\n[... Agent messages truncated due to size limit ...]"
)

// Limits caps the buffers accumulated during one run, in bytes.
type Limits struct {
	AgentMessages int
	AllMessages   int
	Stderr        int
}

// DefaultLimits returns the production buffer caps.
func DefaultLimits() Limits {
	return Limits{
		AgentMessages: DefaultMaxAgentMessagesSize,
		AllMessages:   DefaultMaxAllMessagesSize,
		Stderr:        DefaultMaxStderrSize,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.AgentMessages <= 0 {
		l.AgentMessages = def.AgentMessages
	}
	if l.AllMessages <= 0 {
		l.AllMessages = def.AllMessages
	}
	if l.Stderr <= 0 {
		l.Stderr = def.Stderr
	}
	return l
}

// aggregation is the mutable state of one stdout drain. It is owned by the
// draining goroutine and handed off once via result.
type aggregation struct {
	limits  Limits
	observe func(Event)

	success   bool
	sessionID string
	errMsg    string

	text          strings.Builder
	textTruncated bool

	archive          []map[string]any
	archiveSize      int
	archiveTruncated bool
}

func newAggregation(limits Limits, observe func(Event)) *aggregation {
	return &aggregation{
		limits:  limits.withDefaults(),
		observe: observe,
		success: true,
	}
}

// drain consumes r line by line until EOF. A read error stops parsing but the
// rest of the stream is still discarded so the child never blocks on a full pipe.
func (a *aggregation) drain(r io.Reader) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			a.consumeLine(line)
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			logger.Errorf("failed to read line: %v", err)
			_, _ = io.Copy(io.Discard, reader)
		}
		return
	}
}

func (a *aggregation) consumeLine(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	evt, err := DecodeEvent(line)
	if err != nil {
		logger.Warningf("failed to parse JSON line: %v", err)
		return
	}
	a.apply(evt)
}

func (a *aggregation) apply(evt Event) {
	if evt.SessionID != "" && a.sessionID == "" {
		a.sessionID = evt.SessionID
	}

	switch p := evt.Payload.(type) {
	case ErrorEvent:
		a.success = false
		if a.errMsg == "" {
			msg := p.Message
			if msg == "" {
				msg = "droid reported an error without a message"
			}
			a.errMsg = "droid error: " + msg
		}
	case CompletionEvent:
		a.appendText(p.Text)
	case AssistantMessage:
		a.appendText(p.Text)
	case SessionAnnounce, Unrecognized:
	}

	a.appendArchive(evt)

	if a.observe != nil {
		a.observe(evt)
	}
}

func (a *aggregation) appendText(text string) {
	if a.textTruncated {
		return
	}
	if a.text.Len()+len(text) > a.limits.AgentMessages {
		a.text.WriteString(TruncationMarker)
		a.textTruncated = true
		return
	}
	if a.text.Len() > 0 && text != "" {
		a.text.WriteByte('\n')
	}
	a.text.WriteString(text)
}

func (a *aggregation) appendArchive(evt Event) {
	if a.archiveTruncated {
		return
	}
	if a.archiveSize+evt.Size > a.limits.AllMessages {
		a.archiveTruncated = true
		return
	}
	a.archiveSize += evt.Size
	a.archive = append(a.archive, evt.Raw)
}

// result moves the accumulated state into a Result.
func (a *aggregation) result() *Result {
	res := &Result{
		Success:                a.success,
		SessionID:              a.sessionID,
		AgentMessages:          a.text.String(),
		AgentMessagesTruncated: a.textTruncated,
		AllMessages:            a.archive,
		AllMessagesTruncated:   a.archiveTruncated,
		Error:                  a.errMsg,
	}
	if res.AllMessages == nil {
		res.AllMessages = []map[string]any{}
	}
	a.archive = nil
	a.text.Reset()
	return res
}

// drainStderr captures up to limit bytes of whole stderr lines on its own
// goroutine. The returned channel yields the buffer exactly once.
func drainStderr(r io.Reader, limit int) <-chan string {
	out := make(chan string, 1)
	go func() {
		var buf strings.Builder
		defer func() { out <- buf.String() }()

		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 && buf.Len()+len(line) <= limit {
				buf.WriteString(line)
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					_, _ = io.Copy(io.Discard, reader)
				}
				return
			}
		}
	}()
	return out
}

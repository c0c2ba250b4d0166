package mcpserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errMissingContentLength = errors.New("missing Content-Length header")

// readMessage reads one JSON-RPC payload. Clients either send newline
// delimited JSON or LSP style Content-Length frames; lineJSON reports which
// one was seen so replies can use the same framing.
func readMessage(reader *bufio.Reader) (payload []byte, lineJSON bool, err error) {
	for {
		peeked, err := reader.Peek(1)
		if err != nil {
			return nil, false, err
		}
		switch peeked[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := reader.ReadByte(); err != nil {
				return nil, false, err
			}
			continue
		case '{', '[':
			line, err := reader.ReadBytes('\n')
			trimmed := bytes.TrimSpace(line)
			if err != nil {
				if err == io.EOF && len(trimmed) > 0 {
					return trimmed, true, nil
				}
				return nil, false, err
			}
			if len(trimmed) == 0 {
				continue
			}
			return trimmed, true, nil
		default:
			payload, err := readFramed(reader)
			return payload, false, err
		}
	}
}

func readFramed(reader *bufio.Reader) ([]byte, error) {
	contentLength := -1
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		name, value, ok := strings.Cut(trimmed, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "content-length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", value)
		}
		contentLength = n
	}
	if contentLength < 0 {
		return nil, errMissingContentLength
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(reader, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// writeMessage writes payload using the requested framing and flushes.
func writeMessage(writer *bufio.Writer, payload []byte, lineJSON bool) error {
	if lineJSON {
		if _, err := writer.Write(payload); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		return writer.Flush()
	}
	if _, err := fmt.Fprintf(writer, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	if _, err := writer.Write(payload); err != nil {
		return err
	}
	return writer.Flush()
}

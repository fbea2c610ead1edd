package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// MaxMessageSize bounds a single message body.
const MaxMessageSize = 64 << 20

// Message is any JSON-RPC 2.0 message: request, notification or response.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool {
	return m.Method != "" && len(m.ID) > 0
}

// IsNotification reports whether the message is a notification.
func (m *Message) IsNotification() bool {
	return m.Method != "" && len(m.ID) == 0
}

// Transport reads and writes LSP base protocol messages: a Content-Length
// header block followed by a JSON body.
//
// Reads must come from a single goroutine. Writes are serialized and may
// come from any goroutine.
type Transport struct {
	reader *bufio.Reader

	mu     sync.Mutex
	writer io.Writer
}

// NewTransport creates a transport over r and w, typically stdin and stdout.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
	}
}

// ReadMessage reads one message body. It returns io.EOF when the stream
// ends between messages.
func (t *Transport) ReadMessage() (json.RawMessage, error) {
	contentLength := -1
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && line != "" {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, line)
			}
			contentLength = n
		}
		// Ignore Content-Type and other headers
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing Content-Length", ErrInvalidHeader)
	}
	if contentLength > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, contentLength)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// WriteMessage writes msg with a Content-Length header.
func (t *Transport) WriteMessage(msg *Message) error {
	msg.JSONRPC = "2.0"
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := io.WriteString(t.writer, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// Reply writes the response to the request with the given id. A non-nil
// rpcErr takes precedence over result.
func (t *Transport) Reply(id json.RawMessage, result any, rpcErr *RPCError) error {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	resp := &Message{ID: id}
	if rpcErr != nil {
		resp.Error = rpcErr
		return t.WriteMessage(resp)
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = &RPCError{Code: CodeInternalError, Message: fmt.Sprintf("marshal result: %v", err)}
		return t.WriteMessage(resp)
	}
	resp.Result = data
	return t.WriteMessage(resp)
}

// Notify writes a notification.
func (t *Transport) Notify(method string, params any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	return t.WriteMessage(&Message{Method: method, Params: data})
}

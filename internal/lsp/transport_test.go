package lsp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewTransport(nil, &buf)

	require.NoError(t, w.Notify(MethodLogMessage, LogMessageParams{Type: MessageTypeInfo, Message: "héllo"}))
	require.NoError(t, w.Reply(json.RawMessage(`7`), []ColorInformation{}, nil))

	assert.True(t, strings.HasPrefix(buf.String(), "Content-Length: "))

	r := NewTransport(&buf, io.Discard)

	body, err := r.ReadMessage()
	require.NoError(t, err)
	var note Message
	require.NoError(t, json.Unmarshal(body, &note))
	assert.Equal(t, "2.0", note.JSONRPC)
	assert.Equal(t, MethodLogMessage, note.Method)
	assert.True(t, note.IsNotification())
	assert.JSONEq(t, `{"type":3,"message":"héllo"}`, string(note.Params))

	body, err = r.ReadMessage()
	require.NoError(t, err)
	var resp Message
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "7", string(resp.ID))
	assert.Equal(t, "[]", string(resp.Result))
	assert.Nil(t, resp.Error)

	_, err = r.ReadMessage()
	assert.Equal(t, io.EOF, err)
}

func TestTransport_Pipe(t *testing.T) {
	pr, pw := io.Pipe()
	writer := NewTransport(nil, pw)
	reader := NewTransport(pr, io.Discard)

	go func() {
		_ = writer.WriteMessage(&Message{ID: json.RawMessage(`"a"`), Method: MethodShutdown})
		_ = pw.Close()
	}()

	body, err := reader.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.True(t, msg.IsRequest())
	assert.Equal(t, `"a"`, string(msg.ID))

	_, err = reader.ReadMessage()
	assert.Equal(t, io.EOF, err)
}

func TestTransport_ExtraHeaders(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"initialized"}`
	in := fmt.Sprintf("Content-Type: application/vscode-jsonrpc; charset=utf-8\r\ncontent-length: %d\r\n\r\n%s", len(body), body)

	got, err := NewTransport(strings.NewReader(in), io.Discard).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestTransport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing length", "Content-Type: x\r\n\r\n{}", ErrInvalidHeader},
		{"bad length", "Content-Length: ten\r\n\r\n{}", ErrInvalidHeader},
		{"negative length", "Content-Length: -1\r\n\r\n{}", ErrInvalidHeader},
		{"no colon", "garbage\r\n\r\n", ErrInvalidHeader},
		{"too large", fmt.Sprintf("Content-Length: %d\r\n\r\n", MaxMessageSize+1), ErrMessageTooLarge},
		{"short body", "Content-Length: 10\r\n\r\n{}", io.ErrUnexpectedEOF},
		{"partial header", "Content-Len", io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransport(strings.NewReader(tt.input), io.Discard).ReadMessage()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTransport_ReplyError(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(nil, &buf)

	require.NoError(t, tr.Reply(nil, "ignored", &RPCError{Code: CodeParseError, Message: "bad"}))

	body, err := NewTransport(&buf, io.Discard).ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"bad"}}`, string(body))
}

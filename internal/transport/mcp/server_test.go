package mcptransport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-recognition-go/internal/domain/recognition"
)

type fakeRecognizer struct {
	reply string
	got   []recognition.Request
}

func (f *fakeRecognizer) RecognizeImage(ctx context.Context, req recognition.Request) string {
	f.got = append(f.got, req)
	return f.reply
}

func (f *fakeRecognizer) DefaultModel() string { return "gemini-1.5-flash" }

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolName
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content %T", res.Content[0])
	return text.Text
}

func TestNewServer_RequiresRecognizer(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestHandleRecognizeImage(t *testing.T) {
	rec := &fakeRecognizer{reply: "a lighthouse at dusk"}
	s, err := NewServer(Options{Recognizer: rec})
	require.NoError(t, err)

	res, err := s.handleRecognizeImage(context.Background(), callRequest(map[string]any{
		"image":  "https://example.com/lighthouse.png",
		"prompt": "Where is this?",
		"model":  "qwen-vl-max",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "a lighthouse at dusk", resultText(t, res))

	require.Len(t, rec.got, 1)
	assert.Equal(t, recognition.Request{
		Image:  "https://example.com/lighthouse.png",
		Prompt: "Where is this?",
		Model:  "qwen-vl-max",
	}, rec.got[0])
}

func TestHandleRecognizeImage_OptionalArgs(t *testing.T) {
	rec := &fakeRecognizer{reply: "ok"}
	s, err := NewServer(Options{Recognizer: rec})
	require.NoError(t, err)

	_, err = s.handleRecognizeImage(context.Background(), callRequest(map[string]any{
		"image": "AAAA",
		"model": 42,
	}))
	require.NoError(t, err)
	require.Len(t, rec.got, 1)
	assert.Equal(t, recognition.Request{Image: "AAAA"}, rec.got[0])
}

func TestHandleRecognizeImage_ErrorsStayText(t *testing.T) {
	rec := &fakeRecognizer{reply: "Error processing image: failed to decode image input (malformed): invalid base64 payload"}
	s, err := NewServer(Options{Recognizer: rec})
	require.NoError(t, err)

	res, err := s.handleRecognizeImage(context.Background(), callRequest(map[string]any{"image": "!!"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "Error processing image")
}

func TestHandleRecognizeImage_MissingImage(t *testing.T) {
	rec := &fakeRecognizer{}
	s, err := NewServer(Options{Recognizer: rec})
	require.NoError(t, err)

	res, err := s.handleRecognizeImage(context.Background(), callRequest(map[string]any{"prompt": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "image is required", resultText(t, res))
	assert.Empty(t, rec.got)
}

func TestToolsListAdvertisesRecognizeImage(t *testing.T) {
	s, err := NewServer(Options{Recognizer: &fakeRecognizer{}})
	require.NoError(t, err)

	ctx := context.Background()
	s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`))
	resp := s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"recognize_image"`)
	assert.Contains(t, string(raw), `"image"`)
	assert.Contains(t, string(raw), `"required":["image"]`)
}

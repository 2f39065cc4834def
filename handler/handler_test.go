package handler_test

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"net"
	nethttp "net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/freekieb7/docserve/filesystem"
	"github.com/freekieb7/docserve/handler"
	"github.com/freekieb7/docserve/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordConn struct {
	out    bytes.Buffer
	closed bool
}

func (c *recordConn) Read(p []byte) (int, error)         { return 0, io.EOF }
func (c *recordConn) Write(p []byte) (int, error)        { return c.out.Write(p) }
func (c *recordConn) Close() error                       { c.closed = true; return nil }
func (c *recordConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *recordConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (c *recordConn) SetDeadline(t time.Time) error      { return nil }
func (c *recordConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *recordConn) SetWriteDeadline(t time.Time) error { return nil }

type result struct {
	status      int
	contentType string
	body        string
}

func setup(t *testing.T) (string, *http.Router) {
	t.Helper()

	root := t.TempDir()
	router := http.NewRouter()
	handler.New(root, filesystem.NewLocalFileSystem()).Register(&router)
	return root, &router
}

func do(t *testing.T, router *http.Router, method, path, body string) result {
	t.Helper()

	h, ok := router.Lookup(method)
	require.True(t, ok, "no handler for %s", method)

	conn := &recordConn{}
	ctx := &http.RequestCtx{
		Conn:    conn,
		Request: http.Request{Method: method, Target: path, Version: "HTTP/1.1"},
		Path:    path,
		Body:    body,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h(ctx)

	require.True(t, ctx.Responded())
	require.True(t, conn.closed)

	res, err := nethttp.ReadResponse(bufio.NewReader(&conn.out), nil)
	require.NoError(t, err)
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return result{
		status:      res.StatusCode,
		contentType: res.Header.Get("Content-Type"),
		body:        string(payload),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestGet(t *testing.T) {
	root, router := setup(t)
	writeFile(t, filepath.Join(root, "index.html"), "<h1>home</h1>")
	writeFile(t, filepath.Join(root, "guide.json"), `{"a":1}`)
	writeFile(t, filepath.Join(root, "docs", "notes.txt"), "notes")
	writeFile(t, filepath.Join(root, "blob.unknownext"), "\x00\x01")

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
		body        string
	}{
		{"index", "/", 200, "text/html; charset=utf-8", "<h1>home</h1>"},
		{"guide", "/guide", 200, "application/json", `{"a":1}`},
		{"nested", "/docs/notes.txt", 200, "text/plain; charset=utf-8", "notes"},
		{"unknown extension", "/blob.unknownext", 200, "application/octet-stream", "\x00\x01"},
		{"missing", "/nope.txt", 404, "text/plain; charset=utf-8", "Not Found"},
		{"directory", "/docs", 404, "text/plain; charset=utf-8", "Not Found"},
		{"traversal", "/../secret", 403, "text/plain; charset=utf-8", "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, router, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, res.status)
			assert.Equal(t, tt.contentType, res.contentType)
			assert.Equal(t, tt.body, res.body)
		})
	}
}

func TestPost(t *testing.T) {
	_, router := setup(t)

	res := do(t, router, http.MethodPost, "/contact", "name=Ada&email=ada%40example.com&message=hello+there")

	assert.Equal(t, 200, res.status)
	assert.Equal(t,
		"Hello, Ada!\nThanks for reaching out.\nWe received your message:\n\"hello there\"\nWe'll contact you at: ada@example.com",
		res.body,
	)
}

func TestPostMissingFields(t *testing.T) {
	_, router := setup(t)

	res := do(t, router, http.MethodPost, "/", "")

	assert.Equal(t, 200, res.status)
	assert.Contains(t, res.body, "Hello, !")
}

func TestPut(t *testing.T) {
	root, router := setup(t)

	res := do(t, router, http.MethodPut, "/new/dir/file.txt", "fresh content")
	assert.Equal(t, 201, res.status)
	assert.Equal(t, "File updated successfully", res.body)
	assert.Equal(t, "fresh content", readFile(t, filepath.Join(root, "new", "dir", "file.txt")))

	res = do(t, router, http.MethodPut, "/new/dir/file.txt", "short")
	assert.Equal(t, 201, res.status)
	assert.Equal(t, "short", readFile(t, filepath.Join(root, "new", "dir", "file.txt")))
}

func TestPutOutsideRoot(t *testing.T) {
	_, router := setup(t)

	res := do(t, router, http.MethodPut, "/../escape.txt", "x")
	assert.Equal(t, 403, res.status)
	assert.Equal(t, "Forbidden", res.body)
}

func TestPutOntoDirectory(t *testing.T) {
	root, router := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir"), 0o755))

	res := do(t, router, http.MethodPut, "/dir", "x")
	assert.Equal(t, 500, res.status)
	assert.Contains(t, res.body, "Error: ")
}

func TestPatchList(t *testing.T) {
	root, router := setup(t)
	file := filepath.Join(root, "items.json")
	writeFile(t, file, `[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}]`)

	res := do(t, router, http.MethodPatch, "/items.json", `{"id": 2, "name": "c", "tag": "<x>"}`)
	assert.Equal(t, 200, res.status)
	assert.Equal(t, "File patched successfully", res.body)

	want := "[\n" +
		"    {\n" +
		"        \"id\": 1,\n" +
		"        \"name\": \"a\"\n" +
		"    },\n" +
		"    {\n" +
		"        \"id\": 2,\n" +
		"        \"name\": \"c\",\n" +
		"        \"tag\": \"<x>\"\n" +
		"    }\n" +
		"]"
	assert.Equal(t, want, readFile(t, file))
}

func TestPatchObject(t *testing.T) {
	root, router := setup(t)
	file := filepath.Join(root, "conf.json")
	writeFile(t, file, `{"a": 1, "b": 2}`)

	res := do(t, router, http.MethodPatch, "/conf.json", `{"b": 3, "c": true}`)
	assert.Equal(t, 200, res.status)
	assert.Equal(t, "{\n    \"a\": 1,\n    \"b\": 3,\n    \"c\": true\n}", readFile(t, file))
}

func TestPatchEscapesNonASCII(t *testing.T) {
	root, router := setup(t)
	file := filepath.Join(root, "names.json")
	writeFile(t, file, `{"city": "Zürich"}`)

	res := do(t, router, http.MethodPatch, "/names.json", `{"mood": "😀"}`)
	assert.Equal(t, 200, res.status)
	assert.Equal(t,
		"{\n    \"city\": \"Z\\u00fcrich\",\n    \"mood\": \"\\ud83d\\ude00\"\n}",
		readFile(t, file),
	)
}

func TestPatchFailures(t *testing.T) {
	root, router := setup(t)
	writeFile(t, filepath.Join(root, "items.json"), `[{"id": 1}]`)
	writeFile(t, filepath.Join(root, "conf.json"), `{"a": 1}`)
	writeFile(t, filepath.Join(root, "broken.json"), `{nope`)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		text   string
	}{
		{"missing file", "/none.json", `{}`, 404, "File not found"},
		{"unknown id", "/items.json", `{"id": 9}`, 404, "Item with given id not found"},
		{"list without id", "/items.json", `{"name": "x"}`, 400, "Invalid patch format"},
		{"array patch", "/conf.json", `[1, 2]`, 400, "Invalid patch format"},
		{"outside root", "/../x.json", `{}`, 403, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := do(t, router, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.status, res.status)
			assert.Equal(t, tt.text, res.body)
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		res := do(t, router, http.MethodPatch, "/broken.json", `{}`)
		assert.Equal(t, 500, res.status)
		assert.Contains(t, res.body, "Error: ")
	})

	assert.Equal(t, `[{"id": 1}]`, readFile(t, filepath.Join(root, "items.json")))
}

func TestDelete(t *testing.T) {
	root, router := setup(t)
	file := filepath.Join(root, "old.txt")
	writeFile(t, file, "bye")

	res := do(t, router, http.MethodDelete, "/old.txt", "")
	assert.Equal(t, 200, res.status)
	assert.Equal(t, "File deleted successfully", res.body)
	assert.NoFileExists(t, file)

	res = do(t, router, http.MethodDelete, "/old.txt", "")
	assert.Equal(t, 404, res.status)
	assert.Equal(t, "File not found", res.body)
}

func TestGetMimeType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", handler.GetMimeType("a/index.html"))
	assert.Equal(t, "application/octet-stream", handler.GetMimeType("Makefile"))
}

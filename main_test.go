package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// run executes the CLI against dataRoot and returns stdout.
func run(t *testing.T, dataRoot, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data-root", dataRoot, "--backend", "json"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIRecordLifecycle(t *testing.T) {
	root := t.TempDir()

	out, err := run(t, root, "", "exists", "DummyObject", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	_, err = run(t, root, `{"name":"david","value":31}`, "put", "DummyObject", "abc123")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "PersistentData", "DummyObject-abc123.json"))

	out, err = run(t, root, "", "get", "DummyObject", "abc123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"david","value":31}`, out)

	out, err = run(t, root, "", "exists", "DummyObject")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	out, err = run(t, root, "", "rm", "DummyObject", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	_, err = run(t, root, "", "get", "DummyObject", "abc123")
	assert.ErrorContains(t, err, "not found")
}

func TestCLIPutFromFileWithNewUID(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"level":3}`), 0o644))

	out, err := run(t, root, "", "put", "SaveSlot", "--new-uid", "--file", doc)
	require.NoError(t, err)
	uid := strings.TrimSpace(out)
	_, err = uuid.Parse(uid)
	require.NoError(t, err)

	_, err = run(t, root, `{"level":1}`, "put", "SaveSlot")
	require.NoError(t, err)

	out, err = run(t, root, "", "ls", "SaveSlot")
	require.NoError(t, err)
	assert.Equal(t, "(default)\n"+uid+"\n", out)

	_, err = run(t, root, "", "put", "SaveSlot", "x", "--new-uid")
	assert.Error(t, err)
}

func TestCLIPutRejectsNull(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, root, "null", "put", "DummyObject")
	assert.ErrorContains(t, err, "invalid argument")

	out, err := run(t, root, "", "exists", "DummyObject")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestCLIUnknownBackend(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--data-root", t.TempDir(), "--backend", "etcd", "ls", "X"})
	assert.Error(t, cmd.Execute())
}

func TestCorsMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("wildcard", func(t *testing.T) {
		w := httptest.NewRecorder()
		corsMiddleware(next, []string{"*"}).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("listed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://b.example")
		w := httptest.NewRecorder()
		corsMiddleware(next, []string{"https://a.example", " https://b.example"}).ServeHTTP(w, req)
		assert.Equal(t, "https://b.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		corsMiddleware(next, []string{"*"}).ServeHTTP(w, httptest.NewRequest("OPTIONS", "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestCLIKeepsLargeIntegersExact(t *testing.T) {
	root := t.TempDir()

	_, err := run(t, root, `{"id":9007199254740993}`, "put", "Ledger", "a")
	require.NoError(t, err)

	out, err := run(t, root, "", "get", "Ledger", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "9007199254740993")

	data, err := os.ReadFile(filepath.Join(root, "PersistentData", "Ledger-a.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"id":9007199254740993}`, string(data))
}

func TestCLIPutRejectsTrailingData(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, root, `{"a":1} junk`, "put", "Doc")
	assert.ErrorContains(t, err, "invalid JSON input")

	out, err := run(t, root, "", "exists", "Doc")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger("loud", false)
	assert.Error(t, err)

	l, err := newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

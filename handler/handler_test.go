package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/stevemurr/persistent-data-store/handler"
	"github.com/stevemurr/persistent-data-store/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T) *handler.Handler {
	t.Helper()
	s := store.NewStore(store.NewFileBackend(t.TempDir()))
	return handler.New(s, zaptest.NewLogger(t))
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := setup(t)
	w := do(h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, w)["status"])
}

func TestRecordLifecycle(t *testing.T) {
	h := setup(t)

	w := do(h, "GET", "/records/DummyObject/abc123", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(h, "PUT", "/records/DummyObject/abc123", `{"name":"david","value":31}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, map[string]string{"type": "DummyObject", "uid": "abc123"}, decode[map[string]string](t, w))

	w = do(h, "GET", "/records/DummyObject/abc123", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"david","value":31}`, w.Body.String())

	w = do(h, "HEAD", "/records/DummyObject/abc123", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(h, "HEAD", "/records/DummyObject", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(h, "HEAD", "/records/DummyObject/456xyz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(h, "DELETE", "/records/DummyObject/abc123", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(h, "DELETE", "/records/DummyObject/abc123", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDefaultRecord(t *testing.T) {
	h := setup(t)

	w := do(h, "PUT", "/records/Settings", `{"volume":7}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(h, "GET", "/records/Settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"volume":7}`, w.Body.String())

	w = do(h, "DELETE", "/records/Settings", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPutRejectsNullAndBadJSON(t *testing.T) {
	h := setup(t)

	w := do(h, "PUT", "/records/DummyObject", `null`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, "PUT", "/records/DummyObject", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, "GET", "/records/DummyObject", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidType(t *testing.T) {
	h := setup(t)

	w := do(h, "PUT", "/records/Bad-Type/x", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, "DELETE", "/records/.hidden", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUIDs(t *testing.T) {
	h := setup(t)

	w := do(h, "GET", "/types/Profile/uids", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]string](t, w))

	for _, uid := range []string{"b", "a"} {
		require.Equal(t, http.StatusOK, do(h, "PUT", "/records/Profile/"+uid, `{}`).Code)
	}
	require.Equal(t, http.StatusOK, do(h, "PUT", "/records/Profile", `{}`).Code)

	w = do(h, "GET", "/types/Profile/uids", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"", "a", "b"}, decode[[]string](t, w))
}

func TestPutKeepsLargeIntegersExact(t *testing.T) {
	h := setup(t)

	w := do(h, "PUT", "/records/Ledger/a", `{"id":9007199254740993,"amounts":[18446744073709551615]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(h, "GET", "/records/Ledger/a", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "9007199254740993")
	assert.Contains(t, w.Body.String(), "18446744073709551615")
}

func TestPutRejectsTrailingData(t *testing.T) {
	h := setup(t)

	for _, body := range []string{`{"a":1} junk`, `{"a":1} {"b":2}`} {
		w := do(h, "PUT", "/records/Doc", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	w := do(h, "GET", "/records/Doc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(h, "PUT", "/records/Doc", "{\"a\":1}\n")
	assert.Equal(t, http.StatusOK, w.Code, "trailing whitespace is fine")
}

func TestPutRejectsOversizedBody(t *testing.T) {
	h := setup(t)

	body := `{"blob":"` + strings.Repeat("x", 9<<20) + `"}`
	w := do(h, "PUT", "/records/Doc", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(h, "GET", "/records/Doc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

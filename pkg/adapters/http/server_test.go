package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	ws      *arbor.Workspace
	store   *memory.Store
	streams *StreamManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStoreFromDocuments(map[string]*domain.Document{
		"main.json": {
			Name: "main",
			Root: &domain.Node{Name: "Sequence", Children: []*domain.Node{
				{Name: "Log", Args: map[string]any{"message": "hi"}},
				{Name: "Calculate", Args: map[string]any{"value": "hp * 2"}, Output: []string{"dmg"}},
				{Name: "Wait"},
			}},
		},
	})
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	streams := NewStreamManager(nil)

	ws, err := arbor.New("", arbor.WithStore(store), arbor.WithHooks(streams.Hooks()), arbor.WithHooks(metrics.Hooks()))
	require.NoError(t, err)

	return &fixture{
		handler: NewHandler(ws, WithStreams(streams), WithGatherer(reg)),
		ws:      ws,
		store:   store,
		streams: streams,
	}
}

func (f *fixture) do(t *testing.T, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) dto.DocumentView {
	t.Helper()
	var v dto.DocumentView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestServer_Info(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w = f.do(t, "GET", "/info", nil)
	assert.Contains(t, w.Body.String(), arbor.Version)

	w = f.do(t, "GET", "/catalog", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Sequence"`)

	w = f.do(t, "OPTIONS", "/ops/insert", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_EditFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/documents/open", OpRequest{Path: "main.json"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.Equal(t, "main", v.Name)
	require.Len(t, v.Root.Children, 3)

	w = f.do(t, "POST", "/ops/delete", OpRequest{Path: "main.json", ID: "3"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v = decodeView(t, w)
	assert.Len(t, v.Root.Children, 2)
	assert.True(t, v.Dirty)
	assert.True(t, v.CanUndo)

	w = f.do(t, "POST", "/ops/undo", OpRequest{Path: "main.json"})
	require.Equal(t, http.StatusOK, w.Code)
	v = decodeView(t, w)
	assert.Len(t, v.Root.Children, 3)
	assert.Equal(t, "Calculate", v.Root.Children[1].Name)
	assert.False(t, v.Dirty)

	w = f.do(t, "POST", "/ops/insert", OpRequest{Path: "main.json", Target: "1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"5"}`, w.Body.String())

	name := "Log"
	w = f.do(t, "POST", "/ops/update", OpRequest{Path: "main.json", ID: "5", Node: &dto.NodePatch{Name: &name}})
	require.Equal(t, http.StatusOK, w.Code)
	v = decodeView(t, w)
	assert.Equal(t, "Log", v.Root.Children[3].Name)

	w = f.do(t, "POST", "/ops/move", OpRequest{Path: "main.json", Src: "5", Dst: "2", Zone: "before"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v = decodeView(t, w)
	assert.Equal(t, "2", v.Selected)

	w = f.do(t, "POST", "/documents/save", OpRequest{Path: "main.json"})
	require.Equal(t, http.StatusNoContent, w.Code)
	stored, err := f.store.Read(context.Background(), "main.json")
	require.NoError(t, err)
	assert.Len(t, stored.Root.Children, 4)

	w = f.do(t, "GET", "/metrics", nil)
	assert.Contains(t, w.Body.String(), `arbor_operations_total{op="delete",result="ok"} 1`)
	assert.Contains(t, w.Body.String(), "arbor_open_documents 1")
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/documents/open", OpRequest{Path: "main.json"})

	tests := []struct {
		name   string
		method string
		url    string
		body   any
		status int
	}{
		{"bad body", "POST", "/ops/delete", "nope", http.StatusBadRequest},
		{"missing path", "POST", "/ops/delete", OpRequest{ID: "2"}, http.StatusBadRequest},
		{"not open", "POST", "/ops/delete", OpRequest{Path: "other.json", ID: "2"}, http.StatusNotFound},
		{"unknown node", "POST", "/ops/delete", OpRequest{Path: "main.json", ID: "99"}, http.StatusNotFound},
		{"delete root", "POST", "/ops/delete", OpRequest{Path: "main.json", ID: "1"}, http.StatusConflict},
		{"move into self", "POST", "/ops/move", OpRequest{Path: "main.json", Src: "1", Dst: "2", Zone: "child"}, http.StatusConflict},
		{"bad zone", "POST", "/ops/move", OpRequest{Path: "main.json", Src: "2", Dst: "3", Zone: "sideways"}, http.StatusBadRequest},
		{"nothing to redo", "POST", "/ops/redo", OpRequest{Path: "main.json"}, http.StatusConflict},
		{"paste empty clipboard", "POST", "/ops/paste", OpRequest{Path: "main.json", Target: "1"}, http.StatusUnprocessableEntity},
		{"create existing", "POST", "/documents", OpRequest{Path: "main.json"}, http.StatusConflict},
		{"open missing", "POST", "/documents/open", OpRequest{Path: "missing.json"}, http.StatusNotFound},
		{"tree without path", "GET", "/documents/tree", nil, http.StatusBadRequest},
		{"reload bad body", "POST", "/documents/reload", "nope", http.StatusBadRequest},
		{"reload without body", "POST", "/documents/reload", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestServer_Drop(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/documents/open", OpRequest{Path: "main.json"})

	w := f.do(t, "POST", "/ops/drop", OpRequest{
		Path: "main.json", Src: "4", Dst: "2",
		Box: Box{X: 0, Y: 0, Width: 100, Height: 40},
		X:   10, Y: 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"zone":"before","selected":"2"}`, w.Body.String())

	w = f.do(t, "GET", "/documents/tree?path=main.json", nil)
	v := decodeView(t, w)
	assert.Equal(t, "Wait", v.Root.Children[0].Name)
}

func TestServer_SearchAndVars(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/documents/open", OpRequest{Path: "main.json"})

	w := f.do(t, "POST", "/search", map[string]any{"path": "main.json", "query": map[string]any{"text": "a", "focus": true}})
	require.Equal(t, http.StatusOK, w.Code)
	var found map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&found))
	assert.NotEmpty(t, found["ids"])

	w = f.do(t, "POST", "/search/next", OpRequest{Path: "main.json"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "POST", "/vars", OpRequest{Path: "main.json", Names: []string{"hp"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access":"read"`)

	w = f.do(t, "GET", "/vars?path=main.json", nil)
	assert.JSONEq(t, `{"variables":["dmg","hp"]}`, w.Body.String())

	w = f.do(t, "DELETE", "/vars?path=main.json", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, "POST", "/search", OpRequest{Path: "main.json"})
	assert.JSONEq(t, `{"ids":[]}`, w.Body.String())
	w = f.do(t, "POST", "/search/prev", OpRequest{Path: "main.json"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Validate(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "GET", "/documents/validate?path=main.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"problems"`)

	w = f.do(t, "GET", "/documents/validate?path=gone.json", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, Status(&domain.OpError{Op: "delete", ID: "9", Err: domain.ErrNodeNotFound}))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("disk on fire")))
}

func TestSubscribeEvents_Document(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/documents/open", OpRequest{Path: "main.json"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events?path=main.json", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.handler.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	w := f.do(t, "POST", "/ops/insert", OpRequest{Path: "main.json", Target: "1"})
	require.Equal(t, http.StatusOK, w.Code)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.True(t, strings.Contains(output, "event: ping"), "Expected initial ping")
	assert.Contains(t, output, `"op":"insert"`)
	assert.Contains(t, output, `"document":"main.json"`)
}

func TestStreamManager_Broadcast(t *testing.T) {
	sm := NewStreamManager(nil)
	docCh, cancelDoc := sm.Subscribe("a.json")
	allCh, cancelAll := sm.Subscribe("")
	defer cancelAll()

	sm.Broadcast("a.json", "x")
	assert.Equal(t, "x", <-docCh)
	assert.Equal(t, "x", <-allCh)

	cancelDoc()
	_, open := <-docCh
	assert.False(t, open)

	sm.Broadcast("b.json", "y")
	assert.Equal(t, "y", <-allCh)
}

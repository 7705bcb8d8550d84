// Package http exposes an arbor workspace over a JSON API built on chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/edit"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/xref"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Workspace defines the operations the API needs from arbor.Workspace.
type Workspace interface {
	Open(ctx context.Context, path string) (*editor.Editor, error)
	Create(ctx context.Context, path, name string) (*editor.Editor, error)
	Editor(path string) (*editor.Editor, error)
	Save(ctx context.Context, path string) error
	Close(ctx context.Context, path string) error
	Documents(ctx context.Context) ([]string, error)
	OpenDocuments() []string
	Validate(ctx context.Context, path string) ([]tree.Problem, error)
	ReloadStale(ctx context.Context) ([]string, error)
	Catalog() ports.Catalog
}

var _ Workspace = (*arbor.Workspace)(nil)

// Server holds the handler dependencies.
type Server struct {
	Workspace Workspace
	Streams   *StreamManager
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager whose Hooks are installed on the workspace.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the workspace.
func NewHandler(ws Workspace, opts ...Option) http.Handler {
	s := &Server{
		Workspace: ws,
		gatherer:  prometheus.DefaultGatherer,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/catalog", s.GetCatalog)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Post("/", s.CreateDocument)
		r.Get("/tree", s.GetTree)
		r.Get("/problems", s.GetProblems)
		r.Get("/validate", s.ValidateDocument)
		r.Get("/stale", s.GetStale)
		r.Post("/open", s.OpenDocument)
		r.Post("/close", s.CloseDocument)
		r.Post("/save", s.SaveDocument)
		r.Post("/reload", s.Reload)
		r.Patch("/", s.UpdateDocument)
	})

	r.Route("/ops", func(r chi.Router) {
		r.Post("/insert", s.Insert)
		r.Post("/delete", s.Delete)
		r.Post("/copy", s.Copy)
		r.Post("/paste", s.Paste)
		r.Post("/replace", s.Replace)
		r.Post("/move", s.Move)
		r.Post("/drop", s.Drop)
		r.Post("/update", s.UpdateNode)
		r.Post("/select", s.Select)
		r.Post("/undo", s.Undo)
		r.Post("/redo", s.Redo)
	})

	r.Post("/search", s.Search)
	r.Post("/search/next", s.SearchNext)
	r.Post("/search/prev", s.SearchPrev)
	r.Post("/vars", s.HighlightVariables)
	r.Delete("/vars", s.ClearHighlights)
	r.Get("/vars", s.UsedVariables)

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Requests --

// Box is a node's bounding box in view coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// OpRequest is the body shared by document and edit endpoints.
type OpRequest struct {
	Path   string             `json:"path"`
	Name   string             `json:"name,omitempty"`
	ID     string             `json:"id,omitempty"`
	Target string             `json:"target,omitempty"`
	Src    string             `json:"src,omitempty"`
	Dst    string             `json:"dst,omitempty"`
	Zone   string             `json:"zone,omitempty"`
	Box    Box                `json:"box,omitzero"`
	X      float64            `json:"x,omitempty"`
	Y      float64            `json:"y,omitempty"`
	Node   *dto.NodePatch     `json:"node,omitempty"`
	Doc    *dto.DocumentPatch `json:"document,omitempty"`
	Names  []string           `json:"names,omitempty"`
	Query  *xref.Query        `json:"query,omitempty"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*OpRequest, bool) {
	var body OpRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "route", r.URL.Path, "err", err)
		return nil, false
	}
	if body.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return nil, false
	}
	return &body, true
}

// editor decodes the body and resolves its open document.
func (s *Server) editor(w http.ResponseWriter, r *http.Request) (*editor.Editor, *OpRequest, bool) {
	body, ok := s.decode(w, r)
	if !ok {
		return nil, nil, false
	}
	e, err := s.Workspace.Editor(body.Path)
	if err != nil {
		s.fail(w, r, err)
		return nil, nil, false
	}
	return e, body, true
}

func (s *Server) editorFromQuery(w http.ResponseWriter, r *http.Request) (*editor.Editor, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return nil, false
	}
	e, err := s.Workspace.Editor(path)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return e, true
}

// -- Responses --

func (s *Server) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// Status maps a domain error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrDocumentNotOpen):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDocumentExists),
		errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrCycleDetected),
		errors.Is(err, domain.ErrNothingToUndo),
		errors.Is(err, domain.ErrNothingToRedo):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSerialization):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "route", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request rejected", "route", r.URL.Path, "status", status, "err", err)
	}
	s.reply(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) view(w http.ResponseWriter, e *editor.Editor) {
	s.reply(w, http.StatusOK, dto.ViewEditor(e, s.Workspace.Catalog()))
}

// -- Info --

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.reply(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.reply(w, http.StatusOK, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// GetCatalog handles the GET /catalog request.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := s.Workspace.Catalog()
	names := catalog.Names()
	defs := make([]domain.Definition, 0, len(names))
	for _, n := range names {
		defs = append(defs, catalog.Lookup(n))
	}
	s.reply(w, http.StatusOK, defs)
}

// -- Documents --

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Workspace.Documents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, map[string][]string{
		"documents": docs,
		"open":      s.Workspace.OpenDocuments(),
	})
}

// CreateDocument handles the POST /documents request.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	e, err := s.Workspace.Create(r.Context(), body.Path, body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusCreated, dto.ViewEditor(e, s.Workspace.Catalog()))
}

// OpenDocument handles the POST /documents/open request.
func (s *Server) OpenDocument(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	e, err := s.Workspace.Open(r.Context(), body.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// CloseDocument handles the POST /documents/close request.
func (s *Server) CloseDocument(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.Workspace.Close(r.Context(), body.Path); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDocument handles the POST /documents/save request.
func (s *Server) SaveDocument(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.Workspace.Save(r.Context(), body.Path); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDocument handles the PATCH /documents request.
func (s *Server) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	if body.Doc == nil {
		http.Error(w, "document patch is required", http.StatusBadRequest)
		return
	}
	if err := e.UpdateDocument(r.Context(), body.Doc.Apply); err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// GetTree handles the GET /documents/tree request.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editorFromQuery(w, r)
	if !ok {
		return
	}
	s.view(w, e)
}

// GetProblems handles the GET /documents/problems request.
func (s *Server) GetProblems(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editorFromQuery(w, r)
	if !ok {
		return
	}
	resp := map[string]any{"problems": e.Problems()}
	if err := e.Resolution(); err != nil {
		resp["resolution"] = err.Error()
	}
	s.reply(w, http.StatusOK, resp)
}

// ValidateDocument handles the GET /documents/validate request. The document
// does not need to be open.
func (s *Server) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	problems, err := s.Workspace.Validate(r.Context(), path)
	if problems == nil && err != nil {
		s.fail(w, r, err)
		return
	}
	resp := map[string]any{"problems": problems}
	if err != nil {
		resp["resolution"] = err.Error()
	}
	s.reply(w, http.StatusOK, resp)
}

// GetStale handles the GET /documents/stale request.
func (s *Server) GetStale(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editorFromQuery(w, r)
	if !ok {
		return
	}
	s.reply(w, http.StatusOK, map[string]any{
		"stale":    e.IsStale(r.Context()),
		"subtrees": e.SubtreePaths(),
	})
}

// Reload handles the POST /documents/reload request. Without a path every
// stale open document is reloaded.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	var body OpRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Path == "" {
		reloaded, err := s.Workspace.ReloadStale(r.Context())
		resp := map[string]any{"reloaded": reloaded}
		if err != nil {
			resp["resolution"] = err.Error()
		}
		s.reply(w, http.StatusOK, resp)
		return
	}
	e, err := s.Workspace.Editor(body.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := e.Reload(r.Context()); err != nil {
		s.logger.Warn("Reload left unresolved subtrees", "document", body.Path, "err", err)
	}
	s.view(w, e)
}

// -- Edit operations --

// Insert handles the POST /ops/insert request.
func (s *Server) Insert(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	id, err := e.Insert(r.Context(), body.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]string{"id": id})
}

// Delete handles the POST /ops/delete request.
func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	if err := e.Delete(r.Context(), body.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// Copy handles the POST /ops/copy request.
func (s *Server) Copy(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	if err := e.Copy(r.Context(), body.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Paste handles the POST /ops/paste request.
func (s *Server) Paste(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	id, err := e.Paste(r.Context(), body.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]string{"id": id})
}

// Replace handles the POST /ops/replace request.
func (s *Server) Replace(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	if err := e.Replace(r.Context(), body.Target); err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// Move handles the POST /ops/move request.
func (s *Server) Move(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	zone, err := edit.ParseZone(body.Zone)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid zone: %v", err), http.StatusBadRequest)
		return
	}
	if err := e.Move(r.Context(), body.Src, body.Dst, zone); err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// Drop handles the POST /ops/drop request.
func (s *Server) Drop(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	box := edit.Rect{X: body.Box.X, Y: body.Box.Y, Width: body.Box.Width, Height: body.Box.Height}
	zone, err := e.Drop(r.Context(), body.Src, body.Dst, box, body.X, body.Y)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]string{"zone": zone.String(), "selected": e.Selected()})
}

// UpdateNode handles the POST /ops/update request.
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	if body.Node == nil {
		http.Error(w, "node patch is required", http.StatusBadRequest)
		return
	}
	if err := e.UpdateNode(r.Context(), body.ID, body.Node.Apply); err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// Select handles the POST /ops/select request.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	if err := e.Select(body.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, map[string]string{"selected": e.Selected()})
}

// Undo handles the POST /ops/undo request.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.editor(w, r)
	if !ok {
		return
	}
	if err := e.Undo(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// Redo handles the POST /ops/redo request.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.editor(w, r)
	if !ok {
		return
	}
	if err := e.Redo(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.view(w, e)
}

// -- Cross references --

// Search handles the POST /search request. An empty query clears the search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	var q xref.Query
	if body.Query != nil {
		q = *body.Query
	}
	ids := e.Search(q)
	if ids == nil {
		ids = []string{}
	}
	s.reply(w, http.StatusOK, map[string][]string{"ids": ids})
}

// SearchNext handles the POST /search/next request.
func (s *Server) SearchNext(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*editor.Editor).Next)
}

// SearchPrev handles the POST /search/prev request.
func (s *Server) SearchPrev(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, (*editor.Editor).Prev)
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, step func(*editor.Editor) (string, bool)) {
	e, _, ok := s.editor(w, r)
	if !ok {
		return
	}
	id, found := step(e)
	if !found {
		s.reply(w, http.StatusNotFound, map[string]string{"error": "no search matches"})
		return
	}
	s.reply(w, http.StatusOK, map[string]string{"id": id})
}

// HighlightVariables handles the POST /vars request.
func (s *Server) HighlightVariables(w http.ResponseWriter, r *http.Request) {
	e, body, ok := s.editor(w, r)
	if !ok {
		return
	}
	refs := e.HighlightVariables(body.Names)
	if refs == nil {
		refs = []xref.Ref{}
	}
	s.reply(w, http.StatusOK, map[string][]xref.Ref{"refs": refs})
}

// ClearHighlights handles the DELETE /vars request.
func (s *Server) ClearHighlights(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editorFromQuery(w, r)
	if !ok {
		return
	}
	e.ClearHighlights()
	w.WriteHeader(http.StatusNoContent)
}

// UsedVariables handles the GET /vars request.
func (s *Server) UsedVariables(w http.ResponseWriter, r *http.Request) {
	e, ok := s.editorFromQuery(w, r)
	if !ok {
		return
	}
	s.reply(w, http.StatusOK, map[string][]string{"variables": e.UsedVariables()})
}

// -- Events --

// SubscribeEvents handles the GET /events request (SSE). With a path query
// parameter only the events of that document are streamed.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	path := r.URL.Query().Get("path")
	s.logger.Info("SSE: Subscribing to document events", "document", path)
	ch, cancel := s.Streams.Subscribe(path)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

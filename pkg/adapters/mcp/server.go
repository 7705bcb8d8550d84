package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/xref"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DocumentsURI is the resource listing the workspace documents.
const DocumentsURI = "arbor://documents"

// Workspace defines the operations the MCP server needs from arbor.Workspace.
type Workspace interface {
	Open(ctx context.Context, path string) (*editor.Editor, error)
	Documents(ctx context.Context) ([]string, error)
	OpenDocuments() []string
	Validate(ctx context.Context, path string) ([]tree.Problem, error)
	Catalog() ports.Catalog
}

var _ Workspace = (*arbor.Workspace)(nil)

// SearchResponse is the structured result of search_nodes.
type SearchResponse struct {
	IDs []string `json:"ids" jsonschema_description:"Matching node ids in traversal order"`
}

// VariablesResponse is the structured result of variable_refs.
type VariablesResponse struct {
	Refs []xref.Ref `json:"refs" jsonschema_description:"Nodes reading or writing the variables"`
	Used []string   `json:"used" jsonschema_description:"Every variable referenced in the document"`
}

// StaleResponse is the structured result of check_stale.
type StaleResponse struct {
	Stale    bool     `json:"stale" jsonschema_description:"True when a transcluded document changed since expansion"`
	Subtrees []string `json:"subtrees" jsonschema_description:"Documents transcluded by this one"`
}

// Server wraps an arbor workspace and exposes it as an MCP Server.
type Server struct {
	ws        Workspace
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(ws Workspace, opts ...Option) *Server {
	s := &Server{
		ws:     ws,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version),
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, true),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mainly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents of the workspace and which ones are open."),
	), s.handleListDocuments)

	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Open a document and return its expanded tree, including transcluded subtrees and diagnostics."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path relative to the workspace")),
	), s.handleGetTree)

	s.mcpServer.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Search the nodes of a document by text or id. An empty text clears the search."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("text", mcp.Description("Text to look for")),
		mcp.WithString("mode", mcp.Description("Either 'text' (default) or 'id'"), mcp.Enum(string(xref.ModeText), string(xref.ModeID))),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case exactly")),
		mcp.WithOutputSchema[SearchResponse](),
	), mcp.NewStructuredToolHandler(s.handleSearch))

	s.mcpServer.AddTool(mcp.NewTool("variable_refs",
		mcp.WithDescription("Report which nodes read or write the given variables."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithArray("names", mcp.Description("Variable names"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithOutputSchema[VariablesResponse](),
	), mcp.NewStructuredToolHandler(s.handleVariables))

	s.mcpServer.AddTool(mcp.NewTool("check_stale",
		mcp.WithDescription("Report whether any document transcluded by this one changed since it was expanded."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithOutputSchema[StaleResponse](),
	), mcp.NewStructuredToolHandler(s.handleStale))

	s.mcpServer.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Validate a document against the node catalog without opening it for editing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
	), s.handleValidate)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.ws.Documents(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(map[string][]string{"documents": docs, "open": s.ws.OpenDocuments()})
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.ws.Open(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open failed: %v", err)), nil
	}
	return jsonResult(dto.ViewEditor(e, s.ws.Catalog()))
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	problems, err := s.ws.Validate(ctx, path)
	if problems == nil && err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validate failed: %v", err)), nil
	}
	resp := map[string]any{"problems": problems}
	if err != nil {
		resp["resolution"] = err.Error()
	}
	return jsonResult(resp)
}

func (s *Server) open(ctx context.Context, args map[string]any) (*editor.Editor, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, errors.New("path is required")
	}
	return s.ws.Open(ctx, path)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SearchResponse, error) {
	e, err := s.open(ctx, args)
	if err != nil {
		return SearchResponse{}, err
	}
	q := xref.Query{}
	q.Text, _ = args["text"].(string)
	if mode, ok := args["mode"].(string); ok {
		q.Mode = xref.Mode(mode)
	}
	q.CaseSensitive, _ = args["case_sensitive"].(bool)

	ids := e.Search(q)
	if ids == nil {
		ids = []string{}
	}
	return SearchResponse{IDs: ids}, nil
}

func (s *Server) handleVariables(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (VariablesResponse, error) {
	e, err := s.open(ctx, args)
	if err != nil {
		return VariablesResponse{}, err
	}
	var names []string
	if raw, ok := args["names"].([]any); ok {
		for _, v := range raw {
			if name, ok := v.(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	refs := e.HighlightVariables(names)
	if refs == nil {
		refs = []xref.Ref{}
	}
	return VariablesResponse{Refs: refs, Used: e.UsedVariables()}, nil
}

func (s *Server) handleStale(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (StaleResponse, error) {
	e, err := s.open(ctx, args)
	if err != nil {
		return StaleResponse{}, err
	}
	subtrees := e.SubtreePaths()
	if subtrees == nil {
		subtrees = []string{}
	}
	return StaleResponse{Stale: e.IsStale(ctx), Subtrees: subtrees}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DocumentsURI, "Workspace Documents",
		mcp.WithResourceDescription("Paths of every document in the workspace"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs, err := s.ws.Documents(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		jsonBytes, _ := json.Marshal(docs)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      DocumentsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

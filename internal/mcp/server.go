package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vadimtrunov/marquee/internal/browse"
	"github.com/vadimtrunov/marquee/internal/catalog"
	"github.com/vadimtrunov/marquee/internal/core"
	"github.com/vadimtrunov/marquee/internal/trailer"
)

// Deps holds the dependencies for MCP tool handlers.
type Deps struct {
	Catalog   core.CatalogLoader
	Trailers  core.TrailerResolver
	Favorites core.FavoritesStore
}

// Server wraps an MCP SDK server with Marquee tool handlers.
type Server struct {
	server *mcpsdk.Server
	deps   Deps
	logger *slog.Logger
}

// NewServer creates an MCP server with all Marquee tools registered.
func NewServer(deps Deps, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "marquee",
			Version: version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{server: s, deps: deps, logger: logger}
	srv.registerTools()
	return srv
}

// ServeStdio runs the MCP server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// MCPServer returns the underlying MCP SDK server (for testing).
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.server
}

func (s *Server) registerTools() {
	s.server.AddTool(popularMoviesTool(), s.handlePopularMovies)
	s.server.AddTool(searchMoviesTool(), s.handleSearchMovies)
	s.server.AddTool(movieTrailerTool(), s.handleMovieTrailer)
	s.server.AddTool(listFavoritesTool(), s.handleListFavorites)
	s.server.AddTool(addFavoriteTool(), s.handleAddFavorite)
	s.server.AddTool(removeFavoriteTool(), s.handleRemoveFavorite)
}

func popularMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name: "popular_movies",
		Description: "List the first page of currently popular movies. Each movie carries its TMDb id, " +
			"title, overview, release date, rating and trailer_key (null when there is no trailer).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"favorites_only": favoritesOnlyProperty(),
			},
		},
	}
}

func searchMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "search_movies",
		Description: "Search movies by title. Returns the first page of matches with their trailer keys.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The movie title to search for",
				},
				"favorites_only": favoritesOnlyProperty(),
			},
			"required": []any{"query"},
		},
	}
}

func movieTrailerTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "movie_trailer",
		Description: "Find the YouTube trailer of a movie by its TMDb id. Returns the video key and embed/watch URLs.",
		InputSchema: tmdbIDSchema("The TMDb ID of the movie"),
	}
}

func listFavoritesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "list_favorites",
		Description: "List the TMDb ids of the user's favorite movies in the order they were added.",
		InputSchema: map[string]any{"type": "object"},
	}
}

func addFavoriteTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "add_favorite",
		Description: "Mark a movie as favorite. Adding an existing favorite is a no-op.",
		InputSchema: tmdbIDSchema("The TMDb ID of the movie to mark"),
	}
}

func removeFavoriteTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "remove_favorite",
		Description: "Remove a movie from the favorites. Removing a non-favorite is a no-op.",
		InputSchema: tmdbIDSchema("The TMDb ID of the movie to unmark"),
	}
}

func tmdbIDSchema(desc string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tmdb_id": map[string]any{
				"type":        "integer",
				"description": desc,
			},
		},
		"required": []any{"tmdb_id"},
	}
}

func favoritesOnlyProperty() map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": "Only return movies marked as favorite",
	}
}

// listingArgs are the arguments shared by the listing tools.
type listingArgs struct {
	Query         string `json:"query"`
	FavoritesOnly bool   `json:"favorites_only"`
}

func (s *Server) handlePopularMovies(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Catalog == nil {
		return toolError("catalog not configured"), nil
	}
	args, err := parseListingArgs(req.Params.Arguments)
	if err != nil {
		return toolError(err.Error()), nil
	}

	page, err := s.deps.Catalog.LoadPopular(ctx)
	if err != nil {
		s.logger.Warn("popular_movies failed", slog.String("error", err.Error()))
		return toolError(fmt.Sprintf("could not load popular movies: %v", err)), nil
	}
	return toolJSON(s.filter(page, args.FavoritesOnly))
}

func (s *Server) handleSearchMovies(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Catalog == nil {
		return toolError("catalog not configured"), nil
	}
	args, err := parseListingArgs(req.Params.Arguments)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return toolError("search_movies requires a non-blank 'query' string argument"), nil
	}

	page, err := s.deps.Catalog.SearchByTitle(ctx, args.Query)
	if errors.Is(err, catalog.ErrEmptyQuery) {
		return toolError("search_movies requires a non-blank 'query' string argument"), nil
	}
	if err != nil {
		s.logger.Warn("search_movies failed", slog.String("query", args.Query), slog.String("error", err.Error()))
		return toolError(fmt.Sprintf("could not search movies: %v", err)), nil
	}
	return toolJSON(s.filter(page, args.FavoritesOnly))
}

func (s *Server) handleMovieTrailer(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Trailers == nil {
		return toolError("trailer resolver not configured"), nil
	}
	id, err := extractMovieID(req.Params.Arguments)
	if err != nil {
		return toolError(err.Error()), nil
	}

	res := s.deps.Trailers.Resolve(ctx, id)
	switch res.Status {
	case trailer.StatusFound:
		return toolJSON(map[string]any{
			"tmdb_id":     id,
			"status":      res.Status.String(),
			"trailer_key": res.Key,
			"embed_url":   trailer.EmbedURL(res.Key),
			"watch_url":   trailer.WatchURL(res.Key),
		})
	case trailer.StatusNotFound:
		return toolJSON(map[string]any{
			"tmdb_id":     id,
			"status":      res.Status.String(),
			"trailer_key": nil,
		})
	default:
		return toolError(fmt.Sprintf("trailer lookup failed: %v", res.Err)), nil
	}
}

func (s *Server) handleListFavorites(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if s.deps.Favorites == nil {
		return toolError("favorites not configured"), nil
	}
	ids := s.deps.Favorites.IDs()
	if ids == nil {
		ids = []int{}
	}
	return toolJSON(map[string]any{"ids": ids})
}

func (s *Server) handleAddFavorite(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return s.setFavorite(ctx, req, true)
}

func (s *Server) handleRemoveFavorite(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return s.setFavorite(ctx, req, false)
}

func (s *Server) setFavorite(ctx context.Context, req *mcpsdk.CallToolRequest, favorite bool) (*mcpsdk.CallToolResult, error) {
	if s.deps.Favorites == nil {
		return toolError("favorites not configured"), nil
	}
	id, err := extractMovieID(req.Params.Arguments)
	if err != nil {
		return toolError(err.Error()), nil
	}

	if favorite {
		err = s.deps.Favorites.Add(ctx, id)
	} else {
		err = s.deps.Favorites.Remove(ctx, id)
	}
	if err != nil {
		return toolError(fmt.Sprintf("could not save favorites: %v", err)), nil
	}
	return toolJSON(map[string]any{
		"tmdb_id":  id,
		"favorite": favorite,
	})
}

// filter applies the favorites-only view to page.
func (s *Server) filter(page *catalog.Page, favoritesOnly bool) *catalog.Page {
	if !favoritesOnly || s.deps.Favorites == nil {
		return page
	}
	state := browse.New(s.deps.Favorites)
	state.Apply(page)
	state.SetFavoritesOnly(true)

	out := *page
	out.Movies = state.Visible()
	return &out
}

// Helper functions.

// toolJSON marshals v to JSON and returns it as text content.
func toolJSON(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

// toolError returns a tool result indicating an error.
func toolError(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
		IsError: true,
	}
}

func parseListingArgs(raw json.RawMessage) (listingArgs, error) {
	var args listingArgs
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

// extractMovieID extracts a positive tmdb_id argument from raw JSON arguments.
func extractMovieID(raw json.RawMessage) (int, error) {
	const key = "tmdb_id"

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return 0, fmt.Errorf("invalid arguments: %w", err)
	}

	val, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}

	var id int
	switch v := val.(type) {
	case float64:
		id = int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number: %w", key, err)
		}
		id = n
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, val)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return id, nil
}

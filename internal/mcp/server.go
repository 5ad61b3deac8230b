package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/arbor-db/arbor/internal/config"
	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/scope"
	"github.com/arbor-db/arbor/internal/tree"
	"github.com/arbor-db/arbor/internal/usecase"
)

// Server wraps the MCP server with arbor-specific functionality
type Server struct {
	server   *mcp.Server
	dbCtx    *database.Context
	nodes    *usecase.Node
	settings config.Settings
	log      zerolog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(ctx context.Context, settings config.Settings, version string, log zerolog.Logger) (*Server, error) {
	dbCtx, err := database.Open(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	engine, err := usecase.NewEngine(dbCtx, settings, log)
	if err != nil {
		_ = database.CloseDatabase(dbCtx)
		return nil, err
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "arbor",
			Version: version,
		}, nil),
		dbCtx:    dbCtx,
		nodes:    usecase.NewNode(dbCtx, engine),
		settings: settings,
		log:      log,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		_ = database.CloseDatabase(s.dbCtx)
	}()
	s.log.Info().Str("driver", s.settings.Driver).Str("strategy", s.settings.Strategy).Msg("mcp server started")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tree_add",
		Description: "Create a named node, as a root or under a parent, at an optional 1-based position",
	}, s.handleAdd)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tree_move",
		Description: "Move a node under a parent, to the roots, or next to a sibling",
	}, s.handleMove)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tree_delete",
		Description: "Delete a node together with its whole subtree",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tree_show",
		Description: "List a tree, or the subtree under a node, in display order",
	}, s.handleShow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tree_descendants",
		Description: "List the ancestors or the descendants of a node",
	}, s.handleRelatives)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "tree_check",
		Description: "Check a tree for position gaps, stale depth or child count caches, and broken parents",
	}, s.handleCheck)
}

// Input/Output types for each tool

type AddInput struct {
	Name     string  `json:"name" jsonschema:"required,description=Name of the new node"`
	Parent   *string `json:"parent,omitempty" jsonschema:"description=Parent node id or name (root when omitted)"`
	Position *int64  `json:"position,omitempty" jsonschema:"description=1-based position among siblings (appends when omitted)"`
	Tree     *string `json:"tree,omitempty" jsonschema:"description=Tree name"`
}

type NodeOutput struct {
	Node usecase.NodeView `json:"node"`
}

type MoveInput struct {
	Node     string  `json:"node" jsonschema:"required,description=Node id or name to move"`
	Parent   *string `json:"parent,omitempty" jsonschema:"description=New parent id or name"`
	Root     *bool   `json:"root,omitempty" jsonschema:"description=Move to the roots of the tree"`
	Before   *string `json:"before,omitempty" jsonschema:"description=Place directly before this sibling"`
	After    *string `json:"after,omitempty" jsonschema:"description=Place directly after this sibling"`
	Position *int64  `json:"position,omitempty" jsonschema:"description=1-based position with parent or root"`
	Tree     *string `json:"tree,omitempty" jsonschema:"description=Tree name"`
}

type NodeRefInput struct {
	Node string  `json:"node" jsonschema:"required,description=Node id or name"`
	Tree *string `json:"tree,omitempty" jsonschema:"description=Tree name"`
}

type DeleteOutput struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

type ShowInput struct {
	Node *string `json:"node,omitempty" jsonschema:"description=Subtree root id or name (whole tree when omitted)"`
	Tree *string `json:"tree,omitempty" jsonschema:"description=Tree name"`
}

type NodesOutput struct {
	Nodes []usecase.NodeView `json:"nodes"`
}

type RelativesInput struct {
	Node      string  `json:"node" jsonschema:"required,description=Node id or name"`
	Ancestors *bool   `json:"ancestors,omitempty" jsonschema:"description=Return ancestors (root first) instead of descendants"`
	Tree      *string `json:"tree,omitempty" jsonschema:"description=Tree name"`
}

type CheckInput struct {
	Tree *string `json:"tree,omitempty" jsonschema:"description=Tree name"`
}

type CheckOutput struct {
	OK       bool           `json:"ok"`
	Nodes    int            `json:"nodes"`
	Problems []tree.Problem `json:"problems,omitempty"`
}

// treeName resolves the tree a tool call targets, falling back to the
// configured default.
func (s *Server) treeName(input *string) (string, error) {
	opts := scope.ScopeOptions{DefaultTree: s.settings.Tree}
	if input != nil {
		opts.Tree = *input
	}
	sc, err := scope.ResolveScope(opts)
	if err != nil {
		return "", err
	}
	return sc.Tree(), nil
}

// Tool handlers

func (s *Server) handleAdd(ctx context.Context, req *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, NodeOutput, error) {
	treeID, err := s.treeName(input.Tree)
	if err != nil {
		return nil, NodeOutput{}, fmt.Errorf("failed to resolve tree: %w", err)
	}

	in := usecase.AddInput{Tree: treeID, Name: input.Name}
	if input.Parent != nil {
		in.Parent = *input.Parent
	}
	if input.Position != nil {
		in.Position = *input.Position
	}

	node, err := s.nodes.Add(ctx, in)
	if err != nil {
		return nil, NodeOutput{}, fmt.Errorf("failed to add node: %w", err)
	}
	return nil, NodeOutput{Node: *node}, nil
}

func (s *Server) handleMove(ctx context.Context, req *mcp.CallToolRequest, input MoveInput) (*mcp.CallToolResult, usecase.MoveResult, error) {
	treeID, err := s.treeName(input.Tree)
	if err != nil {
		return nil, usecase.MoveResult{}, fmt.Errorf("failed to resolve tree: %w", err)
	}

	in := usecase.MoveInput{Tree: treeID, Node: input.Node}
	if input.Parent != nil {
		in.Parent = *input.Parent
	}
	if input.Before != nil {
		in.Before = *input.Before
	}
	if input.After != nil {
		in.After = *input.After
	}
	if input.Root != nil {
		in.Root = *input.Root
	}
	if input.Position != nil {
		in.Position = *input.Position
	}

	result, err := s.nodes.Move(ctx, in)
	if err != nil {
		return nil, usecase.MoveResult{}, fmt.Errorf("failed to move node: %w", err)
	}
	return nil, *result, nil
}

func (s *Server) handleDelete(ctx context.Context, req *mcp.CallToolRequest, input NodeRefInput) (*mcp.CallToolResult, DeleteOutput, error) {
	treeID, err := s.treeName(input.Tree)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to resolve tree: %w", err)
	}

	removed, err := s.nodes.Delete(ctx, treeID, input.Node)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete node: %w", err)
	}
	return nil, DeleteOutput{
		Message: fmt.Sprintf("Deleted '%s' and %d descendant(s)", input.Node, removed-1),
		Removed: removed,
	}, nil
}

func (s *Server) handleShow(ctx context.Context, req *mcp.CallToolRequest, input ShowInput) (*mcp.CallToolResult, NodesOutput, error) {
	treeID, err := s.treeName(input.Tree)
	if err != nil {
		return nil, NodesOutput{}, fmt.Errorf("failed to resolve tree: %w", err)
	}

	ref := ""
	if input.Node != nil {
		ref = *input.Node
	}
	nodes, err := s.nodes.Show(ctx, treeID, ref)
	if err != nil {
		return nil, NodesOutput{}, fmt.Errorf("failed to show tree: %w", err)
	}
	return nil, NodesOutput{Nodes: nodes}, nil
}

func (s *Server) handleRelatives(ctx context.Context, req *mcp.CallToolRequest, input RelativesInput) (*mcp.CallToolResult, NodesOutput, error) {
	treeID, err := s.treeName(input.Tree)
	if err != nil {
		return nil, NodesOutput{}, fmt.Errorf("failed to resolve tree: %w", err)
	}

	var nodes []usecase.NodeView
	if input.Ancestors != nil && *input.Ancestors {
		nodes, err = s.nodes.Ancestors(ctx, treeID, input.Node)
	} else {
		nodes, err = s.nodes.Descendants(ctx, treeID, input.Node)
	}
	if err != nil {
		return nil, NodesOutput{}, fmt.Errorf("failed to list relatives: %w", err)
	}
	return nil, NodesOutput{Nodes: nodes}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, CheckOutput, error) {
	treeID, err := s.treeName(input.Tree)
	if err != nil {
		return nil, CheckOutput{}, fmt.Errorf("failed to resolve tree: %w", err)
	}

	report, err := s.nodes.Check(ctx, treeID)
	if err != nil {
		return nil, CheckOutput{}, fmt.Errorf("failed to check tree: %w", err)
	}
	return nil, CheckOutput{
		OK:       report.OK(),
		Nodes:    report.Nodes,
		Problems: report.Problems,
	}, nil
}

// Package mcpapi provides a stateless MCP streamable-HTTP adapter for the board.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/ranka/internal/app"
	"github.com/hylla/ranka/internal/domain"
	"github.com/hylla/ranka/internal/ordering"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Service is the app surface exposed over MCP tools.
type Service interface {
	Board(context.Context, bool) (app.BoardSnapshot, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	MoveTask(context.Context, string, string, int) (domain.Task, error)
	RebalanceColumn(context.Context, string) error
	ListLabels(context.Context) ([]domain.Label, error)
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing board tools.
func NewHandler(cfg Config, svc Service) (*Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerListTasksTool(mcpSrv, svc)
	registerCreateTaskTool(mcpSrv, svc)
	registerMoveTaskTool(mcpSrv, svc)
	registerRebalanceColumnTool(mcpSrv, svc)
	registerListLabelsTool(mcpSrv, svc)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "ranka"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// taskPayload is the tool-facing shape of one task.
type taskPayload struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Position    int32    `json:"position"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	Archived    bool     `json:"archived"`
}

func taskPayloadFrom(t domain.Task) taskPayload {
	return taskPayload{
		ID:          t.ID,
		Status:      t.Status,
		Position:    t.Position,
		Title:       t.Title,
		Description: t.Description,
		Labels:      t.Labels,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339Nano),
		Archived:    t.ArchivedAt != nil,
	}
}

// registerListTasksTool registers the `ranka.list_tasks` tool.
func registerListTasksTool(srv *mcpserver.MCPServer, svc Service) {
	srv.AddTool(
		mcp.NewTool(
			"ranka.list_tasks",
			mcp.WithDescription("List board tasks grouped by column, in board order."),
			mcp.WithString("status", mcp.Description("Restrict the listing to one column")),
			mcp.WithBoolean("include_archived", mcp.Description("Include archived tasks")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			board, err := svc.Board(ctx, req.GetBool("include_archived", false))
			if err != nil {
				return toolResultFromError(err), nil
			}
			statusFilter := strings.TrimSpace(req.GetString("status", ""))
			columns := map[string][]taskPayload{}
			for _, st := range board.Statuses {
				if statusFilter != "" && st.ID != statusFilter {
					continue
				}
				tasks := make([]taskPayload, 0, len(board.Columns[st.ID]))
				for _, t := range board.Columns[st.ID] {
					tasks = append(tasks, taskPayloadFrom(t))
				}
				columns[st.ID] = tasks
			}
			if statusFilter != "" && len(columns) == 0 {
				return mcp.NewToolResultError("invalid_request: unknown status " + statusFilter), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"columns": columns})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)
}

// registerCreateTaskTool registers the `ranka.create_task` tool.
func registerCreateTaskTool(srv *mcpserver.MCPServer, svc Service) {
	srv.AddTool(
		mcp.NewTool(
			"ranka.create_task",
			mcp.WithDescription("Create a task at the end of one column."),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target column identifier")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Markdown description")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := svc.CreateTask(ctx, app.CreateTaskInput{
				Status:      status,
				Title:       title,
				Description: req.GetString("description", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(taskPayloadFrom(task))
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)
}

// registerMoveTaskTool registers the `ranka.move_task` tool.
func registerMoveTaskTool(srv *mcpserver.MCPServer, svc Service) {
	srv.AddTool(
		mcp.NewTool(
			"ranka.move_task",
			mcp.WithDescription("Move a task to a column index. Omit index to append."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target column identifier")),
			mcp.WithNumber("index", mcp.Description("Zero-based drop index; omitted or negative appends")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := svc.MoveTask(ctx, taskID, status, req.GetInt("index", -1))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(taskPayloadFrom(task))
			if err != nil {
				return nil, fmt.Errorf("encode move_task result: %w", err)
			}
			return result, nil
		},
	)
}

// registerRebalanceColumnTool registers the `ranka.rebalance_column` tool.
func registerRebalanceColumnTool(srv *mcpserver.MCPServer, svc Service) {
	srv.AddTool(
		mcp.NewTool(
			"ranka.rebalance_column",
			mcp.WithDescription("Redistribute one column's ordering keys across the full key space."),
			mcp.WithString("status", mcp.Required(), mcp.Description("Column identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := svc.RebalanceColumn(ctx, status); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"status": status, "rebalanced": true})
			if err != nil {
				return nil, fmt.Errorf("encode rebalance_column result: %w", err)
			}
			return result, nil
		},
	)
}

// registerListLabelsTool registers the `ranka.list_labels` tool.
func registerListLabelsTool(srv *mcpserver.MCPServer, svc Service) {
	srv.AddTool(
		mcp.NewTool(
			"ranka.list_labels",
			mcp.WithDescription("List the label catalog."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			labels, err := svc.ListLabels(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			out := make([]map[string]any, 0, len(labels))
			for _, l := range labels {
				out = append(out, map[string]any{"id": l.ID, "name": l.Name, "color": l.Color})
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"labels": out})
			if err != nil {
				return nil, fmt.Errorf("encode list_labels result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, app.ErrNotFound), errors.Is(err, ordering.ErrUnknownItem):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, app.ErrUnknownStatus),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidStatus):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

// Package remote adapts tools served by UTCP providers (HTTP, CLI, MCP, ...)
// into tool.Tool so they can be registered next to local functions.
//
// Provider connection and authentication are configured in the UTCP
// providers file; this package only discovers tools and forwards calls.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"
	"github.com/universal-tool-calling-protocol/go-utcp/src/tools"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/tool"
)

// Client is the part of the UTCP client used here. utcp.UtcpClientInterface
// satisfies it.
type Client interface {
	CallTool(ctx context.Context, toolName string, args map[string]any) (any, error)
	SearchTools(query string, limit int) ([]tools.Tool, error)
}

// NewClient creates a UTCP client from a providers file. An empty path
// yields a client without providers.
func NewClient(ctx context.Context, providersFile string) (Client, error) {
	cfg := &utcp.UtcpClientConfig{ProvidersFilePath: providersFile}
	client, err := utcp.NewUTCPClient(ctx, cfg, nil, nil)
	if err != nil {
		return nil, &core.ConfigurationError{Field: "utcp", Message: err.Error()}
	}
	return client, nil
}

// Tool forwards calls to one remote tool.
type Tool struct {
	client      Client
	remoteName  string
	name        string
	description string
	params      map[string]any
}

// NewTool adapts def. The local name is def.Name mapped onto the function
// name alphabet, e.g. "weather.get_forecast" becomes "weather_get_forecast".
func NewTool(client Client, def tools.Tool) *Tool {
	return &Tool{
		client:      client,
		remoteName:  def.Name,
		name:        tool.SanitizeName(def.Name),
		description: def.Description,
		params:      parameters(def.Inputs),
	}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return t.name }

// RemoteName returns the name the provider knows the tool by.
func (t *Tool) RemoteName() string { return t.remoteName }

// Description implements tool.Tool.
func (t *Tool) Description() string { return t.description }

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any { return t.params }

// Call implements tool.Tool. Provider failures become EXECUTION_ERROR tool
// errors; results are rendered as text.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	out, err := t.client.CallTool(ctx, t.remoteName, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, core.NewCancelledError(ctxErr)
		}
		return nil, &tool.ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    tool.CodeExecutionError,
			Err:     fmt.Errorf("%w: %w", core.ErrToolExecution, err),
		}
	}
	return render(out), nil
}

// Discover searches the client and adapts every match. Names that collide
// after sanitizing get a numeric suffix.
func Discover(client Client, query string, limit int) ([]*Tool, error) {
	defs, err := client.SearchTools(query, limit)
	if err != nil {
		return nil, fmt.Errorf("utcp search %q: %w", query, err)
	}

	taken := make(map[string]bool, len(defs))
	out := make([]*Tool, 0, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			continue
		}
		t := NewTool(client, def)
		t.name = uniqueName(t.name, taken)
		taken[t.name] = true
		out = append(out, t)
	}
	return out, nil
}

// uniqueName returns name, or name with the smallest free "_N" suffix
// (N >= 2). The base is shortened so the result fits tool.MaxNameLength.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 2; ; n++ {
		suffix := "_" + strconv.Itoa(n)
		base := name
		if len(base)+len(suffix) > tool.MaxNameLength {
			base = base[:tool.MaxNameLength-len(suffix)]
		}
		if candidate := base + suffix; !taken[candidate] {
			return candidate
		}
	}
}

// Registrar is implemented by *agent.Agent.
type Registrar interface {
	RegisterTool(t tool.Tool) error
}

// RegisterAll discovers tools matching query and registers them on r. It
// returns the registered local names.
func RegisterAll(r Registrar, client Client, query string, limit int) ([]string, error) {
	found, err := Discover(client, query, limit)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(found))
	for _, t := range found {
		if err := r.RegisterTool(t); err != nil {
			return names, err
		}
		names = append(names, t.Name())
	}
	return names, nil
}

func parameters(in tools.ToolInputOutputSchema) map[string]any {
	typ := in.Type
	if typ == "" {
		typ = "object"
	}
	props := in.Properties
	if props == nil {
		props = map[string]any{}
	}
	out := map[string]any{
		"type":       typ,
		"properties": props,
	}
	if len(in.Required) > 0 {
		out["required"] = append([]string(nil), in.Required...)
	}
	return out
}

func render(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case []byte:
		return string(r)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

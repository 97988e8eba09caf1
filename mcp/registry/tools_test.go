package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontext/mcp-go/mcp"
)

func TestToolRegistry_RegisterAndCall(t *testing.T) {
	t.Parallel()

	reg := NewToolRegistry()
	err := reg.Register(mcp.Tool{Name: "hello"}, func(ctx context.Context, args map[string]any) (*mcp.ToolCallResult, error) {
		name, _ := args["name"].(string)
		return &mcp.ToolCallResult{Content: []mcp.ToolContent{mcp.TextContent("Hello, " + name + "!")}}, nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, handler, err := reg.Get("hello")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	result, err := handler(context.Background(), map[string]any{"name": "MCP User"})
	if err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	want := "Hello, MCP User!"
	if len(result.Content) != 1 || result.Content[0].Text != want {
		t.Errorf("Content = %+v, want text %q", result.Content, want)
	}
}

func TestToolRegistry_GetUnknownToolReturnsErrToolNotFound(t *testing.T) {
	t.Parallel()

	reg := NewToolRegistry()
	_, _, err := reg.Get("missing")
	if !errors.Is(err, mcp.ErrToolNotFound) {
		t.Errorf("Get() error = %v, want wrapping ErrToolNotFound", err)
	}
}

func TestToolRegistry_ReplaceFiresChanged(t *testing.T) {
	t.Parallel()

	reg := NewToolRegistry()
	_ = reg.Register(mcp.Tool{Name: "t"}, noopToolHandler)
	drain(t, reg.Changed())

	_ = reg.Register(mcp.Tool{Name: "t", Description: "v2"}, noopToolHandler)
	drain(t, reg.Changed())

	def, _, err := reg.Get("t")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if def.Description != "v2" {
		t.Errorf("Description = %q, want %q", def.Description, "v2")
	}
}

func drain(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	default:
		t.Fatal("expected a pending changed signal")
	}
}

// Package client assembles the client-role MCP peer (spec.md §2):
// lifecycle, pending table, dispatcher, and a sampling callback bridge
// wired over one transport, plus the Call entry point every client
// request (tools/list, tools/call, resources/*, prompts/*,
// completion/complete) funnels through.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/config"
	"github.com/modelcontext/mcp-go/mcp/dispatch"
	"github.com/modelcontext/mcp-go/mcp/lifecycle"
	"github.com/modelcontext/mcp-go/mcp/pending"
	"github.com/modelcontext/mcp-go/mcp/sampling"
	"github.com/modelcontext/mcp-go/mcp/transport"
)

// Options configures a new Client.
type Options struct {
	// Info identifies this client in the initialize handshake.
	Info mcp.Implementation
	// Capabilities is advertised verbatim in the initialize request. Set
	// Capabilities.Sampling to &struct{}{} to offer a sampling callback.
	Capabilities mcp.ClientCapabilities
	// Config supplies runtime knobs; Load's defaults are used if nil.
	Config *config.Config
	// Logger receives dispatch and lifecycle diagnostics; slog.Default()
	// is used if nil.
	Logger *slog.Logger
}

// Client is one client-role MCP peer bound to a single transport.
// Construct with New, optionally SetSamplingCallback, call Initialize,
// then issue requests with Call.
type Client struct {
	info         mcp.Implementation
	capabilities mcp.ClientCapabilities
	cfg          *config.Config
	logger       *slog.Logger

	machine   *lifecycle.Machine
	pendingTb *pending.Table
	idAlloc   *pending.IDAllocator
	transport transport.Transport
	routes    *dispatch.Table
	disp      *dispatch.Dispatcher
	bridge    *sampling.Bridge

	capMu              sync.RWMutex
	serverCapabilities mcp.ServerCapabilities
}

// New builds a Client over tr. The transport's read loop is not started
// until Run is called.
func New(tr transport.Transport, opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("client: load config: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		info:         opts.Info,
		capabilities: opts.Capabilities,
		cfg:          cfg,
		logger:       logger,
		machine:      lifecycle.New(),
		pendingTb:    pending.New(),
		idAlloc:      &pending.IDAllocator{},
		transport:    tr,
		routes:       dispatch.NewTable(),
		bridge:       sampling.New(),
	}
	c.disp = dispatch.New(c.machine, lifecycle.DirectionClientInbound, c.pendingTb, tr, c.routes, logger)
	c.wireRoutes()
	return c, nil
}

func (c *Client) wireRoutes() {
	c.routes.HandleRequest(mcp.MethodSamplingCreateMessage, c.handleSamplingCreateMessage)
}

// SetSamplingCallback registers the callback invoked for inbound
// sampling/createMessage requests. Call before Run.
func (c *Client) SetSamplingCallback(cb sampling.Callback) {
	c.bridge.SetCallback(cb)
}

// Run starts the transport's read loop and dispatches every inbound
// message until the transport stops. It does not perform the initialize
// handshake; call Initialize separately (typically from another
// goroutine, once Run is underway) since Run blocks for the connection's
// lifetime.
func (c *Client) Run(ctx context.Context) error {
	startErr := c.transport.Start(ctx, c.disp.Dispatch)

	c.machine.ForceShutdown()
	c.pendingTb.CancelAll(mcp.ErrShuttingDown)
	c.disp.Wait()

	return startErr
}

// Shutdown forces the peer into ShuttingDown and closes the transport,
// unblocking a concurrent Run.
func (c *Client) Shutdown() error {
	c.machine.ForceShutdown()
	return c.transport.Close()
}

// Initialize performs the MCP handshake: send `initialize`, wait for the
// server's response, then send `notifications/initialized` and move to
// Ready (spec.md §4.4).
func (c *Client) Initialize(ctx context.Context, protocolVersion string) (*mcp.InitializeResult, error) {
	if !c.machine.TransitionTo(lifecycle.Created, lifecycle.Initializing) {
		return nil, fmt.Errorf("mcp: client already initializing or initialized")
	}

	var result mcp.InitializeResult
	if err := c.Call(ctx, mcp.MethodInitialize, mcp.InitializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    c.capabilities,
		ClientInfo:      c.info,
	}, &result); err != nil {
		return nil, err
	}

	c.capMu.Lock()
	c.serverCapabilities = result.Capabilities
	c.capMu.Unlock()

	if err := c.transport.Send(ctx, &mcp.Notification{
		JSONRPC: mcp.JSONRPCVersion,
		Method:  mcp.NotificationInitialized,
	}); err != nil {
		return nil, fmt.Errorf("client: send notifications/initialized: %w", err)
	}

	if !c.machine.TransitionTo(lifecycle.Initializing, lifecycle.Ready) {
		return nil, fmt.Errorf("mcp: client shut down during initialize")
	}
	return &result, nil
}

// Call issues one client-originated request and decodes its result into
// v (pass nil to discard the result). Used directly for tools/list,
// tools/call, resources/*, prompts/*, and completion/complete.
func (c *Client) Call(ctx context.Context, method string, params any, v any) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	id := c.idAlloc.Next()
	idKey := fmt.Sprintf("%d", id)
	awaiter := c.pendingTb.Register(idKey)

	var paramsRaw json.RawMessage
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			c.pendingTb.Cancel(idKey, err)
			return fmt.Errorf("client: marshal params for %s: %w", method, err)
		}
		paramsRaw = raw
	}

	req := &mcp.Request{JSONRPC: mcp.JSONRPCVersion, ID: float64(id), Method: method, Params: paramsRaw}
	if err := c.transport.Send(ctx, req); err != nil {
		c.pendingTb.Cancel(idKey, err)
		return fmt.Errorf("client: send %s: %w", method, err)
	}

	resp, err := awaiter.Wait(ctx)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return resp.Error
	}
	if v == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, v); err != nil {
		return fmt.Errorf("client: decode result for %s: %w", method, err)
	}
	return nil
}

func (c *Client) handleSamplingCreateMessage(ctx context.Context, raw json.RawMessage) (any, error) {
	if c.capabilities.Sampling == nil {
		return nil, mcp.ErrSamplingNotEnabled
	}
	if !c.bridge.HasCallback() {
		return nil, mcp.ErrNoSamplingCallback
	}

	var params mcp.CreateMessageParams
	if err := dispatch.DecodeParams(mcp.MethodSamplingCreateMessage, raw, &params); err != nil {
		return nil, err
	}

	result, err := c.bridge.Invoke(ctx, &params)
	if err != nil {
		return nil, &dispatch.WireError{Code: mcp.CodeSamplingError, Err: err}
	}
	return result, nil
}

// Package server assembles the server-role MCP peer (spec.md §2):
// lifecycle, registries, dispatcher, and one transport wired together
// behind a small registration API, the way the teacher's
// mcp.NewMCPServices wires a handler plus its registries for cmd/server
// to drive.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/config"
	"github.com/modelcontext/mcp-go/mcp/dispatch"
	"github.com/modelcontext/mcp-go/mcp/lifecycle"
	"github.com/modelcontext/mcp-go/mcp/pending"
	"github.com/modelcontext/mcp-go/mcp/registry"
	"github.com/modelcontext/mcp-go/mcp/transport"
)

// Options configures a new Server.
type Options struct {
	// Info identifies this server in the initialize handshake.
	Info mcp.Implementation
	// Instructions is optional free-text guidance returned to the client
	// alongside InitializeResult.
	Instructions string
	// Config supplies runtime knobs; Load's defaults are used if nil.
	Config *config.Config
	// Logger receives dispatch and lifecycle diagnostics; slog.Default()
	// is used if nil.
	Logger *slog.Logger
}

// Server is one server-role MCP peer bound to a single transport.
// Construct with New, register capabilities, then call Run.
type Server struct {
	info         mcp.Implementation
	instructions string
	sessionID    string
	cfg          *config.Config
	logger       *slog.Logger

	machine   *lifecycle.Machine
	pendingTb *pending.Table
	idAlloc   *pending.IDAllocator
	transport transport.Transport
	routes    *dispatch.Table
	disp      *dispatch.Dispatcher

	tools     *registry.ToolRegistry
	resources *registry.ResourceRegistry
	templates *registry.TemplateRegistry
	prompts   *registry.PromptRegistry

	capMu               sync.RWMutex
	clientCapabilities  mcp.ClientCapabilities
	clientCapabilitySet bool
}

// New builds a Server over tr. Register tools/resources/prompts before
// calling Run; registrations after Run are safe too (spec.md §9,
// "Handler registration under concurrent callers") but won't be visible
// to a tools/list the client already issued.
func New(tr transport.Transport, opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return nil, fmt.Errorf("server: load config: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := uuid.New().String()
	logger = logger.With("session_id", sessionID)

	s := &Server{
		info:         opts.Info,
		instructions: opts.Instructions,
		sessionID:    sessionID,
		cfg:          cfg,
		logger:       logger,
		machine:      lifecycle.New(),
		pendingTb:    pending.New(),
		idAlloc:      &pending.IDAllocator{},
		transport:    tr,
		routes:       dispatch.NewTable(),
		tools:        registry.NewToolRegistry(),
		resources:    registry.NewResourceRegistry(),
		templates:    registry.NewTemplateRegistry(),
		prompts:      registry.NewPromptRegistry(),
	}
	s.disp = dispatch.New(s.machine, lifecycle.DirectionServerInbound, s.pendingTb, tr, s.routes, logger)
	s.wireRoutes()
	return s, nil
}

func (s *Server) wireRoutes() {
	s.routes.HandleRequest(mcp.MethodInitialize, s.handleInitialize)
	s.routes.HandleRequest(mcp.MethodToolsList, s.handleToolsList)
	s.routes.HandleRequest(mcp.MethodToolsCall, s.handleToolsCall)
	s.routes.HandleRequest(mcp.MethodResourcesList, s.handleResourcesList)
	s.routes.HandleRequest(mcp.MethodResourcesRead, s.handleResourcesRead)
	s.routes.HandleRequest(mcp.MethodResourcesSubscribe, s.handleResourcesSubscribe)
	s.routes.HandleRequest(mcp.MethodResourcesUnsubscribe, s.handleResourcesUnsubscribe)
	s.routes.HandleRequest(mcp.MethodResourcesTemplatesList, s.handleResourcesTemplatesList)
	s.routes.HandleRequest(mcp.MethodPromptsList, s.handlePromptsList)
	s.routes.HandleRequest(mcp.MethodPromptsGet, s.handlePromptsGet)
	s.routes.HandleRequest(mcp.MethodCompletionComplete, s.handleCompletionComplete)

	s.routes.HandleNotification(mcp.NotificationInitialized, func(ctx context.Context, raw json.RawMessage) {
		if !s.machine.TransitionTo(lifecycle.Initializing, lifecycle.Ready) {
			s.logger.Warn("dispatch: notifications/initialized received outside Initializing state",
				"state", s.machine.Current().String())
		}
	})
}

// RegisterTool registers or replaces a tool.
func (s *Server) RegisterTool(def mcp.Tool, handler mcp.ToolHandler) error {
	return s.tools.Register(def, handler)
}

// RegisterResource registers or replaces a resource.
func (s *Server) RegisterResource(def mcp.Resource, provider mcp.ResourceContentProvider) error {
	return s.resources.Register(def, provider)
}

// UpdateResource replaces a resource's content provider and notifies its
// subscribers.
func (s *Server) UpdateResource(uri string, provider mcp.ResourceContentProvider) error {
	return s.resources.UpdateResource(uri, provider)
}

// RegisterResourceTemplate registers or replaces a resource template.
func (s *Server) RegisterResourceTemplate(def mcp.ResourceTemplate, expander mcp.ResourceTemplateExpander) error {
	return s.templates.Register(def, expander)
}

// RegisterResourceTemplateCompletion attaches a completion provider to a
// resource template's parameter.
func (s *Server) RegisterResourceTemplateCompletion(templateURI string, provider mcp.ResourceTemplateCompletionProvider) {
	s.templates.RegisterCompletionProvider(templateURI, provider)
}

// RegisterPrompt registers or replaces a prompt.
func (s *Server) RegisterPrompt(def mcp.Prompt, handler mcp.PromptHandler) error {
	return s.prompts.Register(def, handler)
}

// RegisterPromptCompletion attaches a completion provider to a prompt's
// argument.
func (s *Server) RegisterPromptCompletion(promptName, argName string, provider mcp.PromptArgumentCompletionProvider) {
	s.prompts.RegisterCompletionProvider(promptName, argName, provider)
}

// Run drives the server: it starts the transport's read loop, dispatches
// every inbound message, runs the change-notification sender, and blocks
// until the transport stops (peer disconnect, ctx cancellation, or an
// unrecoverable transport error). On return the peer is in ShuttingDown
// and every outstanding sampling awaiter has been cancelled.
func (s *Server) Run(ctx context.Context) error {
	notifyCtx, cancelNotify := context.WithCancel(ctx)
	notifyDone := make(chan struct{})
	go func() {
		defer close(notifyDone)
		s.runNotifier(notifyCtx)
	}()

	startErr := s.transport.Start(ctx, s.disp.Dispatch)

	s.machine.ForceShutdown()
	s.pendingTb.CancelAll(mcp.ErrShuttingDown)
	s.disp.Wait()
	cancelNotify()
	<-notifyDone

	return startErr
}

// Shutdown forces the peer into ShuttingDown and closes the transport,
// unblocking a concurrent Run.
func (s *Server) Shutdown() error {
	s.machine.ForceShutdown()
	return s.transport.Close()
}

func (s *Server) runNotifier(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.tools.Changed():
			s.notify(ctx, mcp.NotificationToolsListChanged, nil)
		case <-s.resources.Changed():
			s.notify(ctx, mcp.NotificationResourcesListChanged, nil)
		case <-s.templates.Changed():
			s.notify(ctx, mcp.NotificationResourcesListChanged, nil)
		case <-s.prompts.Changed():
			s.notify(ctx, mcp.NotificationPromptsListChanged, nil)
		case uri := <-s.resources.Updated():
			s.notify(ctx, mcp.NotificationResourcesUpdated, mcp.ResourcesUpdatedParams{URI: uri})
		}
	}
}

// notify sends a fire-and-forget notification, but only once the peer
// has reached Ready (spec.md §4.5, "if the peer has reached Ready").
func (s *Server) notify(ctx context.Context, method string, params any) {
	if s.machine.Current() != lifecycle.Ready {
		return
	}

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			s.logger.Error("server: marshal notification params", "method", method, "error", err)
			return
		}
		raw = data
	}

	n := &mcp.Notification{JSONRPC: mcp.JSONRPCVersion, Method: method, Params: raw}
	if err := s.transport.Send(ctx, n); err != nil {
		s.logger.Error("server: send notification failed", "method", method, "error", err)
	}
}

// Log sends a `notifications/log` message to the connected client
// (spec.md §4.1).
func (s *Server) Log(ctx context.Context, level mcp.LogLevel, logger string, data any) {
	s.notify(ctx, mcp.NotificationLog, mcp.LogParams{Level: level, Logger: logger, Data: data})
}

// CreateMessage issues a server-initiated `sampling/createMessage`
// request to the client and blocks for its result (spec.md §4.7). The
// client capability advertised during initialize is checked before
// sending, the same way the client itself would reject an inbound
// request for a capability it never advertised.
func (s *Server) CreateMessage(ctx context.Context, params *mcp.CreateMessageParams) (*mcp.CreateMessageResult, error) {
	s.capMu.RLock()
	hasSampling := s.clientCapabilitySet && s.clientCapabilities.Sampling != nil
	s.capMu.RUnlock()
	if !hasSampling {
		return nil, mcp.ErrSamplingNotEnabled
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	id := s.idAlloc.Next()
	idKey := fmt.Sprintf("%d", id)
	awaiter := s.pendingTb.Register(idKey)

	paramsRaw, err := json.Marshal(params)
	if err != nil {
		s.pendingTb.Cancel(idKey, err)
		return nil, fmt.Errorf("server: marshal sampling params: %w", err)
	}

	req := &mcp.Request{JSONRPC: mcp.JSONRPCVersion, ID: float64(id), Method: mcp.MethodSamplingCreateMessage, Params: paramsRaw}
	if err := s.transport.Send(ctx, req); err != nil {
		s.pendingTb.Cancel(idKey, err)
		return nil, fmt.Errorf("server: send sampling request: %w", err)
	}

	resp, err := awaiter.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, resp.Error
	}

	var result mcp.CreateMessageResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("server: decode sampling result: %w", err)
	}
	return &result, nil
}

func (s *Server) capabilities() mcp.ServerCapabilities {
	return mcp.ServerCapabilities{
		Logging:   &struct{}{},
		Prompts:   &mcp.PromptsCapability{ListChanged: true},
		Resources: &mcp.ResourcesCapability{Subscribe: true, ListChanged: true},
		Tools:     &mcp.ToolsCapability{ListChanged: true},
	}
}

func (s *Server) handleInitialize(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.InitializeParams
	if err := dispatch.DecodeParams(mcp.MethodInitialize, raw, &params); err != nil {
		return nil, err
	}

	version, ok := mcp.NegotiateVersion(params.ProtocolVersion)
	if !ok {
		return nil, &dispatch.WireError{
			Code: mcp.CodeInvalidParams,
			Data: mcp.UnsupportedVersionData{Supported: mcp.SupportedVersions, Requested: params.ProtocolVersion},
			Err:  fmt.Errorf("unsupported protocol version %q", params.ProtocolVersion),
		}
	}

	if !s.machine.TransitionTo(lifecycle.Created, lifecycle.Initializing) {
		// spec.md §8: initializing twice replies -32600/-32003; reuse the
		// server-not-initialized sentinel so mapError surfaces -32003.
		return nil, fmt.Errorf("mcp: server already initialized: %w", mcp.ErrServerNotInitialized)
	}

	s.capMu.Lock()
	s.clientCapabilities = params.Capabilities
	s.clientCapabilitySet = true
	s.capMu.Unlock()

	return mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    s.capabilities(),
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) handleToolsList(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.ToolsListParams
	if err := dispatch.DecodeParams(mcp.MethodToolsList, raw, &params); err != nil {
		return nil, err
	}
	tools, next := s.tools.List(params.Cursor)
	return mcp.ToolsListResult{Tools: tools, NextCursor: next}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.ToolsCallParams
	if err := dispatch.DecodeParams(mcp.MethodToolsCall, raw, &params); err != nil {
		return nil, err
	}
	_, handler, err := s.tools.Get(params.Name)
	if err != nil {
		return nil, err
	}
	return handler(ctx, params.Arguments)
}

func (s *Server) handleResourcesList(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.ResourcesListParams
	if err := dispatch.DecodeParams(mcp.MethodResourcesList, raw, &params); err != nil {
		return nil, err
	}
	resources, next := s.resources.List(params.Cursor)
	return mcp.ResourcesListResult{Resources: resources, NextCursor: next}, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.ResourcesReadParams
	if err := dispatch.DecodeParams(mcp.MethodResourcesRead, raw, &params); err != nil {
		return nil, err
	}
	_, contents, err := s.resources.Get(ctx, params.URI)
	if err != nil {
		return nil, err
	}
	return mcp.ResourcesReadResult{Contents: contents}, nil
}

func (s *Server) handleResourcesSubscribe(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.ResourcesSubscribeParams
	if err := dispatch.DecodeParams(mcp.MethodResourcesSubscribe, raw, &params); err != nil {
		return nil, err
	}
	if err := s.resources.Subscribe(params.URI, s.sessionID); err != nil {
		return nil, err
	}
	return mcp.SubscribeResult{Success: true}, nil
}

func (s *Server) handleResourcesUnsubscribe(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.ResourcesSubscribeParams
	if err := dispatch.DecodeParams(mcp.MethodResourcesUnsubscribe, raw, &params); err != nil {
		return nil, err
	}
	if err := s.resources.Unsubscribe(params.URI, s.sessionID); err != nil {
		return nil, err
	}
	return mcp.SubscribeResult{Success: true}, nil
}

func (s *Server) handleResourcesTemplatesList(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.ResourcesTemplatesListParams
	if err := dispatch.DecodeParams(mcp.MethodResourcesTemplatesList, raw, &params); err != nil {
		return nil, err
	}
	templates, next := s.templates.List(params.Cursor)
	return mcp.ResourcesTemplatesListResult{ResourceTemplates: templates, NextCursor: next}, nil
}

func (s *Server) handlePromptsList(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.PromptsListParams
	if err := dispatch.DecodeParams(mcp.MethodPromptsList, raw, &params); err != nil {
		return nil, err
	}
	prompts, next := s.prompts.List(params.Cursor)
	return mcp.PromptsListResult{Prompts: prompts, NextCursor: next}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.PromptsGetParams
	if err := dispatch.DecodeParams(mcp.MethodPromptsGet, raw, &params); err != nil {
		return nil, err
	}
	def, messages, err := s.prompts.Get(ctx, params.Name, params.Arguments)
	if err != nil {
		return nil, err
	}
	return mcp.PromptsGetResult{Description: def.Description, Messages: messages}, nil
}

func (s *Server) handleCompletionComplete(ctx context.Context, raw json.RawMessage) (any, error) {
	var params mcp.CompletionCompleteParams
	if err := dispatch.DecodeParams(mcp.MethodCompletionComplete, raw, &params); err != nil {
		return nil, err
	}

	switch params.Ref.Type {
	case mcp.RefResource:
		completion, err := s.templates.Complete(params.Ref.URI, params.Argument.Name, params.Argument.Value)
		if err != nil {
			return nil, err
		}
		return mcp.CompletionCompleteResult{Completion: completion}, nil
	case mcp.RefPrompt:
		completion, err := s.prompts.Complete(params.Ref.Name, params.Argument.Name, params.Argument.Value)
		if err != nil {
			return nil, err
		}
		return mcp.CompletionCompleteResult{Completion: completion}, nil
	default:
		return nil, fmt.Errorf("%w: unknown completion ref type %q", mcp.ErrInvalidParams, params.Ref.Type)
	}
}

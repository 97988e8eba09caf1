package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/modelcontext/mcp-go/mcp"
	"github.com/modelcontext/mcp-go/mcp/lifecycle"
	"github.com/modelcontext/mcp-go/mcp/pending"
	"github.com/modelcontext/mcp-go/mcp/transport"
)

// Dispatcher is the single owner of one peer's inbound message stream
// (spec.md §4.6). It is constructed once per peer (server or client) and
// fed every decoded message via Dispatch, which the owning transport's
// Sink calls in arrival order.
type Dispatcher struct {
	machine   *lifecycle.Machine
	direction lifecycle.Direction
	pendingTb *pending.Table
	transport transport.Transport
	routes    *Table
	logger    *slog.Logger

	group *errgroup.Group
}

// New builds a Dispatcher. dir selects which lifecycle gating table
// governs inbound requests for this peer (spec.md §4.4): server peers
// pass DirectionServerInbound, client peers DirectionClientInbound.
func New(machine *lifecycle.Machine, dir lifecycle.Direction, pendingTb *pending.Table, tr transport.Transport, routes *Table, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		machine:   machine,
		direction: dir,
		pendingTb: pendingTb,
		transport: tr,
		routes:    routes,
		logger:    logger,
		group:     &errgroup.Group{},
	}
}

// Dispatch classifies msg and routes it (spec.md §4.6 steps 1-3).
// Responses and notifications are handled inline, before Dispatch
// returns; requests are handled on a spawned task so one slow request
// handler cannot stall delivery of the next inbound
// message (spec.md §4.6, "long-running handlers... run on spawned tasks
// so the dispatcher remains responsive").
func (d *Dispatcher) Dispatch(msg *mcp.Message) {
	switch msg.Kind {
	case mcp.KindResponse:
		d.dispatchResponse(msg.Response)
	case mcp.KindNotification:
		d.dispatchNotification(msg.Notification)
	case mcp.KindRequest:
		req := msg.Request
		d.group.Go(func() error {
			d.handleRequest(context.Background(), req)
			return nil
		})
	}
}

// Wait blocks until every request handler spawned by Dispatch has
// returned. Call after the transport's Start has returned, as part of
// peer shutdown.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}

func (d *Dispatcher) dispatchResponse(resp *mcp.Response) {
	id := mcp.StringifyID(resp.ID)
	if !d.pendingTb.Resolve(id, resp) {
		d.logger.Warn("dispatch: orphan response", "id", id)
	}
}

func (d *Dispatcher) dispatchNotification(n *mcp.Notification) {
	handler, ok := d.routes.notification(n.Method)
	if !ok {
		d.logger.Debug("dispatch: no handler for notification", "method", n.Method)
		return
	}
	handler(context.Background(), n.Params)
}

func (d *Dispatcher) handleRequest(ctx context.Context, req *mcp.Request) {
	defer func() {
		if r := recover(); r != nil {
			d.reply(ctx, req.ID, nil, fmt.Errorf("mcp: handler panic: %v", r))
		}
	}()

	if !d.machine.AllowRequest(d.direction, req.Method) {
		d.replyWithCode(ctx, req.ID, mcp.CodeServerNotInitialized,
			fmt.Sprintf("method %q not allowed in current state", req.Method), nil)
		return
	}

	handler, ok := d.routes.request(req.Method)
	if !ok {
		d.replyWithCode(ctx, req.ID, mcp.CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
		return
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		d.reply(ctx, req.ID, nil, err)
		return
	}
	d.reply(ctx, req.ID, result, nil)
}

func (d *Dispatcher) reply(ctx context.Context, id any, result any, err error) {
	if err != nil {
		code, data := mapError(err)
		d.replyWithCode(ctx, id, code, err.Error(), data)
		return
	}

	raw, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		d.replyWithCode(ctx, id, mcp.CodeInternalError, fmt.Sprintf("marshal result: %v", marshalErr), nil)
		return
	}

	resp := &mcp.Response{JSONRPC: mcp.JSONRPCVersion, ID: id, Result: raw}
	if sendErr := d.transport.Send(ctx, resp); sendErr != nil {
		d.logger.Error("dispatch: send response failed", "id", mcp.StringifyID(id), "error", sendErr)
	}
}

func (d *Dispatcher) replyWithCode(ctx context.Context, id any, code int32, message string, data any) {
	resp := &mcp.Response{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      id,
		Error:   &mcp.Error{Code: code, Message: message, Data: data},
	}
	if sendErr := d.transport.Send(ctx, resp); sendErr != nil {
		d.logger.Error("dispatch: send error response failed", "id", mcp.StringifyID(id), "error", sendErr)
	}
}

// WireError lets a route handler force a specific JSON-RPC error code
// and data payload, for failures the sentinel-based mapping in mapError
// can't express — e.g. the unsupported-protocol-version response, which
// carries a structured UnsupportedVersionData even though its code
// (-32602) is the same one ErrInvalidParams maps to.
type WireError struct {
	Code int32
	Data any
	Err  error
}

func (e *WireError) Error() string { return e.Err.Error() }
func (e *WireError) Unwrap() error { return e.Err }

// mapError translates a handler error to a JSON-RPC error code (spec.md
// §7 taxonomy). Errors that carry no recognizable sentinel map to
// CodeInternalError, the handler-internal default.
func mapError(err error) (code int32, data any) {
	var wireErr *WireError
	if errors.As(err, &wireErr) {
		return wireErr.Code, wireErr.Data
	}

	switch {
	case errors.Is(err, mcp.ErrResourceNotFound):
		return mcp.CodeResourceNotFound, nil
	case errors.Is(err, mcp.ErrServerNotInitialized):
		return mcp.CodeServerNotInitialized, nil
	case errors.Is(err, mcp.ErrSamplingNotEnabled):
		return mcp.CodeSamplingNotEnabled, nil
	case errors.Is(err, mcp.ErrNoSamplingCallback):
		return mcp.CodeNoSamplingCallback, nil
	case errors.Is(err, mcp.ErrPromptArgumentMissing),
		errors.Is(err, mcp.ErrPromptArgumentUnknown),
		errors.Is(err, mcp.ErrInvalidParams):
		return mcp.CodeInvalidParams, nil
	default:
		// Unknown tool/prompt/template names have no dedicated wire code
		// (spec.md §7); original_source's handle_tools_call replies with
		// INTERNAL_ERROR for "Tool not found" the same way, so
		// ErrToolNotFound/ErrTemplateNotFound/ErrPromptNotFound fall
		// through to here rather than -32602.
		return mcp.CodeInternalError, nil
	}
}

// DecodeParams unmarshals raw into v, wrapping any error as an
// invalid-params failure mcp/dispatch maps to -32602. Route handlers in
// mcp/server and mcp/client call this as their first step.
func DecodeParams(method string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", mcp.ErrInvalidParams, method, err)
	}
	return nil
}

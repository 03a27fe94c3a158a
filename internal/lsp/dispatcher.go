package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LSP error codes of requests that were not run to completion.
const (
	CodeRequestCancelled = -32800
	CodeContentModified  = -32801
)

// errContentModified cancels a request whose documents were edited while
// it ran.
var errContentModified = errors.New("content modified")

// supersede lists the requests that are cancelled when a newer request of
// the same method arrives.
var supersede = map[string]bool{
	protocol.MethodTextDocumentCompletion: true,
	protocol.MethodTextDocumentReferences: true,
	protocol.MethodTextDocumentRename:     true,
	protocol.MethodWorkspaceSymbol:        true,
}

// inline lists the requests handled on the message loop. Nothing else may
// run before initialize has been answered.
var inline = map[string]bool{
	protocol.MethodInitialize: true,
	protocol.MethodShutdown:   true,
}

// emptyResults holds the answer to a request whose params cannot be
// decoded. Rename and prepareRename are absent: for them an error differs
// from an empty edit.
var emptyResults = map[string]any{
	protocol.MethodTextDocumentCompletion:     &protocol.CompletionList{Items: []protocol.CompletionItem{}},
	protocol.MethodTextDocumentDefinition:     []protocol.Location{},
	protocol.MethodTextDocumentReferences:     []protocol.Location{},
	protocol.MethodTextDocumentHover:          nil,
	protocol.MethodTextDocumentDocumentSymbol: []protocol.DocumentSymbol{},
	protocol.MethodTextDocumentCodeAction:     []protocol.CodeAction{},
	protocol.MethodWorkspaceSymbol:            []protocol.SymbolInformation{},
}

// mutating lists the notifications that take the workspace write section.
// They cancel the superseded kinds of request first, so that a long scan
// holding the read section cannot stall the message loop.
var mutating = map[string]bool{
	protocol.MethodTextDocumentDidOpen:                true,
	protocol.MethodTextDocumentDidChange:              true,
	protocol.MethodTextDocumentDidClose:               true,
	protocol.MethodWorkspaceDidChangeConfiguration:    true,
	protocol.MethodWorkspaceDidChangeWorkspaceFolders: true,
}

type inflight struct {
	method string
	cancel context.CancelCauseFunc
}

// Dispatcher connects a glsp handler table to a JSON-RPC connection.
// Notifications run in order on the message loop. Requests run on a
// bounded pool of workers, each with a context that $/cancelRequest or a
// newer request of the same kind cancels.
type Dispatcher struct {
	handler glsp.Handler
	slots   chan struct{}

	mu       sync.Mutex
	requests map[jsonrpc2.ID]*inflight
	latest   map[string]jsonrpc2.ID
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher running at most workers requests at
// the same time.
func NewDispatcher(handler glsp.Handler, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}

	return &Dispatcher{
		handler:  handler,
		slots:    make(chan struct{}, workers),
		requests: make(map[jsonrpc2.ID]*inflight),
		latest:   make(map[string]jsonrpc2.ID),
	}
}

// Handle implements jsonrpc2.Handler.
func (d *Dispatcher) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch {
	case req.Method == protocol.MethodCancelRequest:
		d.cancelRequest(req)
		return

	case req.Notif:
		if mutating[req.Method] {
			d.cancelReaders()
		}

		if _, err := d.call(ctx, conn, req); err != nil {
			log.Warningf("%s: %s", req.Method, err)
		}

		if req.Method == protocol.MethodExit {
			if err := conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
				log.Warningf("closing connection: %s", err)
			}
		}

		return

	case inline[req.Method]:
		d.reply(ctx, conn, req, nil)
		return
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	d.register(req, cancel)

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		defer d.unregister(req.ID)
		defer cancel(nil)

		select {
		case d.slots <- struct{}{}:
		case <-reqCtx.Done():
			d.reply(ctx, conn, req, reqCtx)
			return
		}

		defer func() { <-d.slots }()

		d.reply(ctx, conn, req, reqCtx)
	}()
}

// Wait blocks until every dispatched request has been answered.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) register(req *jsonrpc2.Request, cancel context.CancelCauseFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if supersede[req.Method] {
		if prev, ok := d.latest[req.Method]; ok {
			if r, ok := d.requests[prev]; ok {
				log.Debugf("%s #%s superseded by #%s", req.Method, prev, req.ID)
				r.cancel(errCancelled)
			}
		}

		d.latest[req.Method] = req.ID
	}

	d.requests[req.ID] = &inflight{method: req.Method, cancel: cancel}
}

func (d *Dispatcher) unregister(id jsonrpc2.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.requests[id]; ok {
		if d.latest[r.method] == id {
			delete(d.latest, r.method)
		}

		delete(d.requests, id)
	}
}

func (d *Dispatcher) cancelRequest(req *jsonrpc2.Request) {
	if req.Params == nil {
		return
	}

	var params struct {
		ID jsonrpc2.ID `json:"id"`
	}

	if err := json.Unmarshal(*req.Params, &params); err != nil {
		log.Warningf("malformed $/cancelRequest: %s", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.requests[params.ID]; ok {
		log.Debugf("cancelling %s #%s", r.method, params.ID)
		r.cancel(errCancelled)
	}
}

// cancelReaders cancels every in-flight request of a superseded kind.
func (d *Dispatcher) cancelReaders() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, r := range d.requests {
		if supersede[r.method] {
			log.Debugf("cancelling %s #%s: content modified", r.method, id)
			r.cancel(errContentModified)
		}
	}
}

// reply runs the request and sends its response. A nil reqCtx runs the
// request without cancellation.
func (d *Dispatcher) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, reqCtx context.Context) {
	var (
		result any
		err    error
	)

	if reqCtx != nil && reqCtx.Err() != nil {
		err = context.Cause(reqCtx)
	} else {
		if reqCtx == nil {
			reqCtx = ctx
		}

		result, err = d.call(reqCtx, conn, req)
		if reqCtx.Err() != nil {
			err = context.Cause(reqCtx)
		}
	}

	if err != nil {
		if sendErr := conn.ReplyWithError(ctx, req.ID, responseError(err)); sendErr != nil {
			log.Errorf("replying to %s: %s", req.Method, sendErr)
		}

		return
	}

	if sendErr := conn.Reply(ctx, req.ID, result); sendErr != nil {
		log.Errorf("replying to %s: %s", req.Method, sendErr)
	}
}

// call runs the glsp handler for req. Handler panics are turned into
// errors.
func (d *Dispatcher) call(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	gctx := &glsp.Context{
		Method: req.Method,
		Notify: func(method string, params any) {
			if err := conn.Notify(ctx, method, params); err != nil {
				log.Errorf("%s", err)
			}
		},
		Call: func(method string, params any, result any) {
			if err := conn.Call(ctx, method, params, result); err != nil {
				log.Errorf("%s", err)
			}
		},
	}

	if req.Params != nil {
		gctx.Params = *req.Params
	}

	defer bindContext(gctx, ctx)()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic in %s: %v\n%s", req.Method, r, debug.Stack())
			err = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	r, validMethod, validParams, err := d.handler.Handle(gctx)

	switch {
	case !validMethod:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not supported: " + req.Method}
	case !validParams:
		msg := "invalid params"
		if err != nil {
			msg = err.Error()
		}

		if empty, ok := emptyResults[req.Method]; ok && !req.Notif {
			log.Warningf("malformed %s: %s", req.Method, msg)
			return empty, nil
		}

		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: msg}
	}

	return r, err
}

// responseError maps a handler error to its JSON-RPC form.
func responseError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error

	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, errContentModified):
		return &jsonrpc2.Error{Code: CodeContentModified, Message: "content modified"}
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled):
		return &jsonrpc2.Error{Code: CodeRequestCancelled, Message: "request cancelled"}
	}

	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: err.Error()}
}

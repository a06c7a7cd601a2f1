package apiserver

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/quillhub/scribe/internal/auth"
	"github.com/quillhub/scribe/ot/common"
)

// TargetMethod is one whitelisted operation a dispatcher can invoke on
// a resolved target. Decoding args and encoding the result is the
// method's own responsibility, since each method's argument shapes
// differ (§4.6: "verify that methodName is a whitelisted capability of
// the target's class, invoke it, encode the result").
type TargetMethod func(ctx context.Context, target auth.Target, rawArgs []json.RawMessage) (interface{}, error)

// MethodTable maps a method name to its handler, scoped to one target
// class (Session, AuthorAccess, RootAccess, ...).
type MethodTable map[string]TargetMethod

// Dispatcher resolves a Request's targetId via a Context, verifies
// methodName against the whitelist registered for that target's
// dynamic type, and invokes it.
type Dispatcher struct {
	ctx     *auth.Context
	tables  map[string]MethodTable // keyed by a caller-chosen "class name"
	classOf func(auth.Target) (string, bool)
	log     *zap.Logger
}

// NewDispatcher builds a Dispatcher over ctx's live targets. classOf
// maps a resolved target to the class name used to select its
// MethodTable (a small type switch in the apiserver wiring layer,
// since Go has no runtime class registry to consult).
func NewDispatcher(ctx *auth.Context, tables map[string]MethodTable, classOf func(auth.Target) (string, bool), log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{ctx: ctx, tables: tables, classOf: classOf, log: log}
}

// Dispatch resolves and invokes req against d's context, returning a
// fully-formed Response (never an error — all failure modes are
// encoded into Response.Error per the wire contract).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	resp := Response{ReqId: req.ReqId}

	target, ok := d.ctx.Lookup(req.TargetId)
	if !ok {
		resp.Error = &WireError{Kind: string(common.KindBadId), Message: "unknown target"}
		return resp
	}

	class, ok := d.classOf(target)
	if !ok {
		resp.Error = &WireError{Kind: string(common.KindBadUse), Message: "target has no recognized class"}
		return resp
	}

	table, ok := d.tables[class]
	if !ok {
		resp.Error = &WireError{Kind: string(common.KindBadUse), Message: "no methods registered for target class"}
		return resp
	}

	method, ok := table[req.MethodName]
	if !ok {
		resp.Error = &WireError{Kind: string(common.KindBadUse), Message: "method not whitelisted for this target"}
		return resp
	}

	result, err := method(ctx, target, req.Args)
	if err != nil {
		resp.Error = wireErrorFrom(err)
		return resp
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		d.log.Error("dispatch: failed to encode result", zap.Error(err))
		resp.Error = &WireError{Kind: string(common.KindBadValue), Message: "failed to encode result"}
		return resp
	}
	resp.Result = encoded
	return resp
}

func wireErrorFrom(err error) *WireError {
	if otErr, ok := err.(*common.Error); ok {
		return &WireError{Kind: string(otErr.Kind), Message: otErr.Message}
	}
	return &WireError{Kind: string(common.KindBadValue), Message: err.Error()}
}

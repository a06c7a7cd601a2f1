package apiserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/quillhub/scribe/internal/auth"
	"github.com/quillhub/scribe/internal/session"
	"github.com/quillhub/scribe/ot/body"
	"github.com/quillhub/scribe/ot/caret"
	"github.com/quillhub/scribe/ot/common"
)

// Class names used to key MethodTables; classOf (below) is the only
// place that needs to know the concrete Target types a Context ever
// holds (§4.5's capability chain: RootAccess/AuthorAccess/Session).
const (
	ClassSession      = "session"
	ClassAuthorAccess = "authorAccess"
	ClassRootAccess   = "rootAccess"
)

// ClassOf maps a resolved Target to the class name selecting its
// MethodTable. Go has no runtime class registry, so this is a plain
// type switch over the concrete capability types the auth package hands
// out.
func ClassOf(t auth.Target) (string, bool) {
	switch t.(type) {
	case *session.Session:
		return ClassSession, true
	case *session.AuthorAccess:
		return ClassAuthorAccess, true
	case *auth.RootAccess:
		return ClassRootAccess, true
	default:
		return "", false
	}
}

func decodeArg(raw []json.RawMessage, i int, v interface{}) error {
	if i >= len(raw) {
		return common.BadValue("missing argument %d", i)
	}
	return json.Unmarshal(raw[i], v)
}

// SessionMethods is the whitelisted capability surface of a *session.Session
// (§4.4's update/snapshot/deltaAfter operations on both OT flavors, plus
// session_end).
func SessionMethods() MethodTable {
	return MethodTable{
		"body_update": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			s := target.(*session.Session)
			var req struct {
				BaseRevNum common.RevisionNumber `json:"baseRevNum"`
				Delta      body.Delta            `json:"delta"`
			}
			if err := decodeArg(args, 0, &req); err != nil {
				return nil, common.BadValue("body_update: %v", err)
			}
			return s.BodyUpdate(ctx, req.BaseRevNum, req.Delta)
		},
		"body_snapshot": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			s := target.(*session.Session)
			var revNum *common.RevisionNumber
			if len(args) > 0 {
				if err := decodeArg(args, 0, &revNum); err != nil {
					return nil, common.BadValue("body_snapshot: %v", err)
				}
			}
			return s.BodySnapshot(ctx, revNum)
		},
		"body_deltaAfter": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			s := target.(*session.Session)
			var req struct {
				RevNum     common.RevisionNumber `json:"revNum"`
				TimeoutSec *float64              `json:"timeoutSec"`
			}
			if err := decodeArg(args, 0, &req); err != nil {
				return nil, common.BadValue("body_deltaAfter: %v", err)
			}
			return s.BodyDeltaAfter(ctx, req.RevNum, toDuration(req.TimeoutSec))
		},
		"caret_update": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			s := target.(*session.Session)
			var delta caret.Delta
			if err := decodeArg(args, 0, &delta); err != nil {
				return nil, common.BadValue("caret_update: %v", err)
			}
			return s.CaretUpdate(ctx, delta)
		},
		"caret_snapshot": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			s := target.(*session.Session)
			var revNum *common.RevisionNumber
			if len(args) > 0 {
				if err := decodeArg(args, 0, &revNum); err != nil {
					return nil, common.BadValue("caret_snapshot: %v", err)
				}
			}
			return s.CaretSnapshot(ctx, revNum)
		},
		"caret_deltaAfter": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			s := target.(*session.Session)
			var req struct {
				RevNum     common.RevisionNumber `json:"revNum"`
				TimeoutSec *float64              `json:"timeoutSec"`
			}
			if err := decodeArg(args, 0, &req); err != nil {
				return nil, common.BadValue("caret_deltaAfter: %v", err)
			}
			return s.CaretDeltaAfter(ctx, req.RevNum, toDuration(req.TimeoutSec))
		},
		"session_end": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			s := target.(*session.Session)
			return nil, s.End(ctx)
		},
	}
}

func toDuration(secs *float64) *time.Duration {
	if secs == nil {
		return nil
	}
	d := time.Duration(*secs * float64(time.Second))
	return &d
}

// AuthorAccessMethods is the whitelisted capability surface of a
// *session.AuthorAccess: minting and rebinding sessions (§4.4). Minting
// requires a CoordinatorPair, which the apiserver wiring layer supplies
// via a lookup-by-documentId closure rather than baking document
// resolution into the session package.
func AuthorAccessMethods(ctxRegistry *auth.Context, lookupCoords func(common.DocumentId) (session.CoordinatorPair, error), newCaretId func() common.CaretId) MethodTable {
	return MethodTable{
		"mint": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			a := target.(*session.AuthorAccess)
			var req struct {
				DocumentId common.DocumentId `json:"documentId"`
			}
			if err := decodeArg(args, 0, &req); err != nil {
				return nil, common.BadValue("mint: %v", err)
			}
			coords, err := lookupCoords(req.DocumentId)
			if err != nil {
				return nil, err
			}
			caretId := newCaretId()
			s := a.Mint(req.DocumentId, caretId, coords)
			return map[string]string{"sessionTargetId": ctxRegistry.Attach(s), "caretId": string(caretId)}, nil
		},
		"rebind": func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			a := target.(*session.AuthorAccess)
			var req struct {
				DocumentId common.DocumentId `json:"documentId"`
				CaretId    common.CaretId    `json:"caretId"`
			}
			if err := decodeArg(args, 0, &req); err != nil {
				return nil, common.BadValue("rebind: %v", err)
			}
			s, ok := a.Rebind(req.DocumentId, req.CaretId)
			if !ok {
				return map[string]interface{}{"sessionTargetId": nil}, nil
			}
			return map[string]interface{}{"sessionTargetId": ctxRegistry.Attach(s)}, nil
		},
	}
}

// RootAccessMethodTable adapts a *auth.RootAccess's fused dispatch table
// into a MethodTable covering every name in names (the caller's list of
// root method names),
// decoding each method's args generically as []interface{} before
// handing them to RootAccess.Invoke (root capabilities are ad-hoc and
// untyped by design — §9).
func RootAccessMethodTable(names []string) MethodTable {
	table := make(MethodTable, len(names))
	for _, name := range names {
		name := name
		table[name] = func(ctx context.Context, target auth.Target, args []json.RawMessage) (interface{}, error) {
			r := target.(*auth.RootAccess)
			decoded := make([]interface{}, len(args))
			for i, raw := range args {
				if err := json.Unmarshal(raw, &decoded[i]); err != nil {
					return nil, common.BadValue("%s: arg %d: %v", name, i, err)
				}
			}
			result, ok, err := r.Invoke(name, decoded)
			if !ok {
				return nil, common.BadUse("%s: not a recognized root method", name)
			}
			return result, err
		}
	}
	return table
}

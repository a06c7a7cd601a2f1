package app

import (
	"context"

	"github.com/quillhub/scribe/internal/auth"
	"github.com/quillhub/scribe/internal/session"
	"github.com/quillhub/scribe/ot/common"
)

// rootMethodNames lists every name RootAccessMethodTable must route,
// across every RootGrant shape (dev and non-dev): the fixed root-owned
// methods plus the dev-only granted ones. A non-dev RootAccess simply
// has no handler fused for the granted names, so Invoke reports them as
// unrecognized per-call rather than at table-construction time.
func (a *App) rootMethodNames() []string {
	return []string{"issueAuthorToken", "mintSessionInfo", "useToken", "addRootToken", "mint", "rebind"}
}

// newRootAccess builds the *auth.RootAccess for one freshly verified
// Root token: its own admin capabilities, fused with the AuthorAccess-
// shaped "granted" capability a dev-mode root also carries (§4.5).
func (a *App) newRootAccess(grant auth.RootGrant) *auth.RootAccess {
	return auth.NewRootAccess(a.rootOwnMethods(), a.grantedMethods(grant))
}

func (a *App) rootOwnMethods() auth.MethodProvider {
	return auth.MethodSet{
		"issueAuthorToken": func(args []interface{}) (interface{}, error) {
			authorId, err := stringArg(args, 0, "authorId")
			if err != nil {
				return nil, err
			}
			return a.authority.IssueAuthorToken(context.Background(), common.AuthorId(authorId))
		},
		"mintSessionInfo": func(args []interface{}) (interface{}, error) {
			authorId, err := stringArg(args, 0, "authorId")
			if err != nil {
				return nil, err
			}
			documentId, err := stringArg(args, 1, "documentId")
			if err != nil {
				return nil, err
			}
			token, err := a.authority.IssueAuthorToken(context.Background(), common.AuthorId(authorId))
			if err != nil {
				return nil, err
			}
			return auth.SessionInfo{
				AuthorId:   common.AuthorId(authorId),
				DocumentId: common.DocumentId(documentId),
				Token:      token,
			}, nil
		},
		"useToken": func(args []interface{}) (interface{}, error) {
			authorId, err := stringArg(args, 0, "authorId")
			if err != nil {
				return nil, err
			}
			token, err := stringArg(args, 1, "token")
			if err != nil {
				return nil, err
			}
			return nil, a.authority.UseToken(context.Background(), common.AuthorId(authorId), token)
		},
		"addRootToken": func(args []interface{}) (interface{}, error) {
			secret, err := stringArg(args, 0, "secret")
			if err != nil {
				return nil, err
			}
			return nil, a.addRootToken(context.Background(), secret)
		},
	}
}

// grantedMethods is the dev-mode convenience capability: mint/rebind a
// session for any author without a separate author-token exchange,
// mirroring useToken's dev-only override of normal auth (§4.5). Outside
// dev mode it is an empty provider, so those method names simply never
// resolve for this RootAccess.
func (a *App) grantedMethods(grant auth.RootGrant) auth.MethodProvider {
	if !grant.DevMode {
		return auth.MethodSet{}
	}
	return auth.MethodSet{
		"mint": func(args []interface{}) (interface{}, error) {
			authorId, err := stringArg(args, 0, "authorId")
			if err != nil {
				return nil, err
			}
			documentId, err := stringArg(args, 1, "documentId")
			if err != nil {
				return nil, err
			}
			coords, err := a.coordinatorsFor(common.DocumentId(documentId))
			if err != nil {
				return nil, err
			}
			access := session.NewAuthorAccess(common.AuthorId(authorId), a.registry)
			caretId := newCaretId()
			s := access.Mint(common.DocumentId(documentId), caretId, coords)
			return map[string]string{"sessionTargetId": a.apiCtx.Attach(s), "caretId": string(caretId)}, nil
		},
		"rebind": func(args []interface{}) (interface{}, error) {
			authorId, err := stringArg(args, 0, "authorId")
			if err != nil {
				return nil, err
			}
			documentId, err := stringArg(args, 1, "documentId")
			if err != nil {
				return nil, err
			}
			caretId, err := stringArg(args, 2, "caretId")
			if err != nil {
				return nil, err
			}
			access := session.NewAuthorAccess(common.AuthorId(authorId), a.registry)
			s, ok := access.Rebind(common.DocumentId(documentId), common.CaretId(caretId))
			if !ok {
				return map[string]interface{}{"sessionTargetId": nil}, nil
			}
			return map[string]interface{}{"sessionTargetId": a.apiCtx.Attach(s)}, nil
		},
	}
}

func stringArg(args []interface{}, i int, name string) (string, error) {
	if i >= len(args) {
		return "", common.BadValue("missing argument %q", name)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", common.BadValue("argument %q must be a string", name)
	}
	return s, nil
}

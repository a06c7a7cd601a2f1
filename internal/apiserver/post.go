package apiserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// PostConnection serves one request/response pair per HTTP POST (§4.6).
// Grounded on internal/delivery/http/handler.go's
// decode-body/call-usecase/encode-response shape, generalized from a
// fixed set of per-endpoint handlers to the generic wire envelope.
type PostConnection struct {
	dispatch *Dispatcher
	log      *zap.Logger
}

// NewPostConnection builds an http.Handler serving wire-envelope
// request/response pairs over plain POST.
func NewPostConnection(dispatch *Dispatcher, log *zap.Logger) *PostConnection {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostConnection{dispatch: dispatch, log: log}
}

func (p *PostConnection) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request envelope", http.StatusBadRequest)
		return
	}

	resp := p.dispatch.Dispatch(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		requestLogger(r.Context()).Error("post: failed to encode response", zap.Error(err))
	}
}

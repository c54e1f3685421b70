package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"toolfeed/internal/domain"
	"toolfeed/internal/usecase/feed"
)

// Snapshotter exposes the current feed state.
type Snapshotter interface {
	Snapshot() feed.Snapshot
}

// Document renders the feed as markup.
type Document interface {
	WriteTo(w io.Writer) (int64, error)
}

// HandlerDeps holds dependencies needed by RPC handlers and HTTP routes.
type HandlerDeps struct {
	Feed     Snapshotter
	Content  domain.ContentStore
	Document Document // can be nil; /feed is not registered then
	// Wrap is applied to every HTTP route (security headers, rate limiting).
	Wrap func(http.Handler) http.Handler
}

// ContentRequest is the payload of the content.get RPC.
type ContentRequest struct {
	Index int `json:"index"`
}

// ContentResponse is the result of the content.get RPC.
type ContentResponse struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Busy          bool     `json:"busy"`
	Active        []string `json:"active"`
	Containers    int      `json:"containers"`
	ContentItems  int      `json:"content_items"`
	Ingested      int64    `json:"ingested"`
	Rejected      int64    `json:"rejected"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

// RegisterDefaultHandlers registers the feed RPC methods.
func RegisterDefaultHandlers(s *Server, deps HandlerDeps) {
	s.RegisterHandler("feed.snapshot", snapshotHandler(deps))
	s.RegisterHandler("content.get", contentGetHandler(deps))
}

// RegisterRESTHandlers registers the plain HTTP routes. Must be called
// before Start.
func RegisterRESTHandlers(s *Server, deps HandlerDeps) {
	wrap := deps.Wrap
	if wrap == nil {
		wrap = func(h http.Handler) http.Handler { return h }
	}
	started := time.Now()

	if deps.Document != nil {
		s.RegisterHTTPRoute("GET /feed", wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = deps.Document.WriteTo(w)
		})))
	}

	s.RegisterHTTPRoute("GET /content/{index}", wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			http.Error(w, "bad index", http.StatusBadRequest)
			return
		}
		content, err := deps.Content.Get(idx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, content)
	})))

	s.RegisterHTTPRoute("GET /status", wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Feed.Snapshot()
		ingested, rejected := s.Counters()
		resp := StatusResponse{
			Busy:          snap.Busy,
			Active:        snap.Active,
			Containers:    len(snap.Containers),
			ContentItems:  deps.Content.Len(),
			Ingested:      ingested,
			Rejected:      rejected,
			UptimeSeconds: int64(time.Since(started).Seconds()),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})))
}

func snapshotHandler(deps HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		if !client.Has(RoleViewer) {
			return nil, domain.NewDomainError("feed.snapshot", domain.ErrAuthInvalid, "client may not view the feed")
		}
		return json.Marshal(deps.Feed.Snapshot())
	}
}

func contentGetHandler(deps HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		if !client.Has(RoleViewer) {
			return nil, domain.NewDomainError("content.get", domain.ErrAuthInvalid, "client may not view the feed")
		}
		var req ContentRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.NewDomainError("content.get", domain.ErrRPCInvalidPayload, err.Error())
		}
		content, err := deps.Content.Get(req.Index)
		if err != nil {
			if errors.Is(err, domain.ErrContentNotFound) {
				return nil, err
			}
			return nil, domain.WrapOp("content.get", err)
		}
		return json.Marshal(ContentResponse{Index: req.Index, Content: content})
	}
}

package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/web/middleware"
)

// withRequestMetadata adds the client address, user agent and how the
// editor authenticated to ctx for the audit journal.
func (s *Server) withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, middleware.ClientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	if m := s.auth.Method(r); m != "" {
		ctx = core.ContextWithActor(ctx, m)
	}
	return ctx
}

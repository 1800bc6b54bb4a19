package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rhuss/keygate/pkg/api"
	"github.com/rhuss/keygate/pkg/auth"
	"github.com/rhuss/keygate/pkg/transport"
)

// ProjectHeader carries the resolved provider project to the upstream.
const ProjectHeader = "X-Goog-User-Project"

// NewUpstreamProxy returns a reverse proxy forwarding authenticated
// requests to rawURL. The inbound Authorization header is never forwarded.
// When the request environment carries a project id it is sent in
// ProjectHeader. Responses are flushed immediately so streamed completions
// reach the client as they arrive.
func NewUpstreamProxy(rawURL string, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("upstream URL %q must use http or https", rawURL)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("upstream URL %q has no host", rawURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del(ProjectHeader)

			if env, ok := auth.EnvironmentFromContext(pr.In.Context()); ok && env.ProjectID != "" {
				pr.Out.Header.Set(ProjectHeader, env.ProjectID)
			}
		},
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "upstream request failed",
				"path", r.URL.Path,
				"request_id", transport.RequestIDFromContext(r.Context()),
				"error", err,
			)
			transport.WriteAPIError(w, api.NewBadGatewayError("upstream request failed"))
		},
	}, nil
}

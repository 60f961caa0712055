package authclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// RequestInterceptor mutates an outbound request before it is sent. The
// bearer attachment is the built-in first interceptor; callers can append
// their own (tracing headers, API versioning) via WithInterceptor.
type RequestInterceptor func(req *http.Request) error

// Gateway wraps every protected outbound call. It attaches the bearer token,
// detects expiry-driven 401s, repairs them through the RefreshCoordinator,
// and resubmits the original request exactly once. Any other failure
// propagates unmodified, so genuine authorization errors are never masked by
// blanket retries.
//
// The login and refresh endpoints do not go through the Gateway; they belong
// to the APIClient.
type Gateway struct {
	transport    *http.Client
	session      *SessionStore
	refresher    *RefreshCoordinator
	interceptors []RequestInterceptor
	logger       Logger
}

func NewGateway(transport *http.Client, session *SessionStore, refresher *RefreshCoordinator) *Gateway {
	if transport == nil {
		transport = http.DefaultClient
	}
	return &Gateway{
		transport: transport,
		session:   session,
		refresher: refresher,
		logger:    defLogger{},
	}
}

func (g *Gateway) WithLogger(logger Logger) *Gateway {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// WithInterceptor appends a request interceptor to the pipeline. Interceptors
// run in registration order, after the bearer attachment.
func (g *Gateway) WithInterceptor(interceptor RequestInterceptor) *Gateway {
	if interceptor != nil {
		g.interceptors = append(g.interceptors, interceptor)
	}
	return g
}

// Do dispatches the request with the session's bearer token. A 401 carrying
// the expiry code triggers one refresh and one resubmission; a second fault
// on the retried request, or a failed refresh, tears the session down and
// propagates the failure.
func (g *Gateway) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := g.send(ctx, req, g.session.Token())
	if err != nil {
		// Transport failures are surfaced as-is: no retry, no lockout.
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	wireErr := unauthorizedOutcome(resp)
	if !IsTokenExpiredError(wireErr) {
		g.logger.Warn("request rejected with non-expiry 401, forcing logout")
		g.session.Logout(ctx)
		return nil, wireErr
	}

	g.logger.Debug("request to %s faulted on expired token, refreshing", req.URL.Path)

	token, err := g.refresher.Refresh(ctx)
	if err != nil {
		// The coordinator already tore the session down.
		return nil, err
	}

	retry, err := cloneRequest(ctx, req)
	if err != nil {
		g.session.Logout(ctx)
		return nil, err
	}

	resp, err = g.send(ctx, retry, token)
	if err != nil {
		g.session.Logout(ctx)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The single permitted retry also faulted; never retry again.
		wireErr := unauthorizedOutcome(resp)
		g.logger.Warn("retried request still unauthorized, forcing logout")
		g.session.Logout(ctx)
		return nil, wireErr
	}

	return resp, nil
}

func (g *Gateway) send(ctx context.Context, req *http.Request, token string) (*http.Response, error) {
	req = req.WithContext(ctx)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	for _, interceptor := range g.interceptors {
		if err := interceptor(req); err != nil {
			return nil, err
		}
	}

	return g.transport.Do(req)
}

// cloneRequest rebuilds a request for the single retry, rewinding the body
// through GetBody when one is present.
func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

// unauthorizedOutcome consumes a 401 response body and maps its error
// envelope onto the client taxonomy. The response is spent afterwards.
func unauthorizedOutcome(resp *http.Response) error {
	defer resp.Body.Close()

	envelope := &errorEnvelope{}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(raw) > 0 {
		// A body that does not decode is treated as a plain 401.
		_ = json.Unmarshal(raw, envelope)
	}

	return mapWireError(http.StatusUnauthorized, envelope)
}

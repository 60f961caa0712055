package authclient

import (
	"context"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger shared by every component.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTokenStorage overrides the durable token store.
func WithTokenStorage(storage TokenStorage) Option {
	return func(c *Client) {
		if storage != nil {
			c.storage = storage
		}
	}
}

// WithHTTPClient overrides the transport used for both the API endpoints and
// the gateway. The client must carry a cookie jar for the refresh channel.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBackendAPI swaps the backend implementation; tests substitute a mock.
func WithBackendAPI(api BackendAPI) Option {
	return func(c *Client) {
		if api != nil {
			c.api = api
		}
	}
}

// WithOnChange registers the session change hook.
func WithOnChange(fn func(SessionSnapshot)) Option {
	return func(c *Client) {
		c.onChange = fn
	}
}

// WithLockoutTickInterval overrides the countdown resolution.
func WithLockoutTickInterval(tick time.Duration) Option {
	return func(c *Client) {
		c.lockoutTick = tick
	}
}

// Client wires the session core together: session store, refresh
// coordinator, request gateway, lockout manager, and the reset flow factory.
// One Client exists per authenticated context.
type Client struct {
	cfg         Config
	logger      Logger
	clock       func() time.Time
	storage     TokenStorage
	httpClient  *http.Client
	api         BackendAPI
	session     *SessionStore
	refresher   *RefreshCoordinator
	gateway     *Gateway
	lockouts    *LockoutManager
	onChange    func(SessionSnapshot)
	lockoutTick time.Duration
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:         cfg,
		logger:      defLogger{},
		clock:       time.Now,
		storage:     NewMemoryTokenStorage(),
		lockoutTick: time.Second,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.session = NewSessionStore(c.storage).
		WithLogger(c.logger).
		WithOnChange(c.onChange)

	if c.api == nil {
		apiClient := NewAPIClient(cfg).
			WithLogger(c.logger).
			WithTokenSource(c.session.Token)
		if c.httpClient != nil {
			apiClient.WithHTTPClient(c.httpClient)
		} else {
			c.httpClient = apiClient.HTTPClient()
		}
		c.api = apiClient
	}

	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}

	c.refresher = NewRefreshCoordinator(c.api, c.session).WithLogger(c.logger)
	c.gateway = NewGateway(c.httpClient, c.session, c.refresher).WithLogger(c.logger)
	c.lockouts = NewLockoutManager(
		WithLockoutClock(c.clock),
		WithLockoutTick(c.lockoutTick),
		WithLockoutLogger(c.logger),
	)

	return c
}

// Start attempts silent reauthentication. No stored token means the session
// starts unauthenticated with no network call; a live token is adopted
// directly; a stale one triggers one refresh attempt before any protected
// call would be issued. A failed refresh leaves the session unauthenticated
// without failing startup.
func (c *Client) Start(ctx context.Context) error {
	token, err := c.storage.Load(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read stored session")
	}

	if token == "" {
		c.logger.Debug("no stored session, starting unauthenticated")
		return nil
	}

	if !TokenExpired(token, c.clock()) {
		c.logger.Info("reattaching stored session")
		return c.session.Adopt(token)
	}

	c.logger.Info("stored session is stale, attempting refresh")
	if _, err := c.refresher.Refresh(ctx); err != nil {
		c.logger.Warn("silent reauthentication failed: %v", err)
	}
	return nil
}

// Login authenticates with the backend and installs the issued token. While
// a login lockout is active the call is rejected locally without touching
// the network; a fresh 429 installs (or overwrites) the lockout window.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	if remaining := c.lockouts.Remaining(LockoutLogin); remaining > 0 {
		return ErrRateLimited.Clone().WithMetadata(map[string]any{
			metaLockoutKind: string(LockoutLogin),
			"remaining":     remaining.String(),
		})
	}

	token, err := c.api.Login(ctx, identifier, password)
	if err != nil {
		c.lockouts.RecordFromError(LockoutLogin, err)
		return err
	}

	return c.session.Login(ctx, token)
}

// Logout tears the session down: best-effort backend call, then local state,
// durable storage, and lockout windows. Safe to call repeatedly.
func (c *Client) Logout(ctx context.Context) {
	if c.session.IsAuthenticated() {
		if err := c.api.Logout(ctx); err != nil {
			c.logger.Warn("backend logout failed: %v", err)
		}
	}

	c.session.Logout(ctx)
	c.lockouts.Clear(LockoutLogin)
	c.lockouts.Clear(LockoutReset)
}

// Do dispatches a protected request through the gateway.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.gateway.Do(ctx, req)
}

// Session exposes the session store.
func (c *Client) Session() *SessionStore { return c.session }

// Lockouts exposes the lockout manager so the UI can observe countdowns.
func (c *Client) Lockouts() *LockoutManager { return c.lockouts }

// Gateway exposes the request gateway for interceptor registration.
func (c *Client) Gateway() *Gateway { return c.gateway }

// NewResetFlow starts a fresh password reset flow.
func (c *Client) NewResetFlow() *ResetFlow {
	return NewResetFlow(c.api, c.lockouts,
		WithResetLogger(c.logger),
		WithResetPhoneRegion(c.cfg.GetPhoneRegion()),
	)
}

// Close releases background tasks. The session itself is left untouched.
func (c *Client) Close() {
	c.lockouts.Close()
}

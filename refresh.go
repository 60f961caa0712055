package authclient

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// RefreshCoordinator performs single-flight token refresh. Every caller that
// arrives while a refresh is in flight is parked on the same operation and
// observes the same outcome: the same new token, or the same rejection. A
// refresh always settles, so no waiter is left pending.
type RefreshCoordinator struct {
	api     BackendAPI
	session *SessionStore
	logger  Logger
	group   singleflight.Group
}

func NewRefreshCoordinator(api BackendAPI, session *SessionStore) *RefreshCoordinator {
	return &RefreshCoordinator{
		api:     api,
		session: session,
		logger:  defLogger{},
	}
}

func (rc *RefreshCoordinator) WithLogger(logger Logger) *RefreshCoordinator {
	if logger != nil {
		rc.logger = logger
	}
	return rc
}

// Refresh obtains a fresh access token, collapsing concurrent callers onto a
// single network call. Success installs the token in the session store;
// failure tears the session down (idempotent) before the shared rejection is
// handed to every waiter.
func (rc *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	result, err, shared := rc.group.Do("refresh", func() (any, error) {
		// the outcome is shared by every queued waiter, so the shared call
		// must not die with whichever caller happened to start it
		detached := context.WithoutCancel(ctx)

		token, err := rc.api.Refresh(detached)
		if err != nil {
			rc.logger.Warn("token refresh failed: %v", err)
			rc.session.Logout(detached)
			return nil, err
		}

		if err := rc.session.Login(detached, token); err != nil {
			rc.logger.Error("refresh produced an undecodable token: %v", err)
			rc.session.Logout(detached)
			return nil, err
		}

		return token, nil
	})
	if err != nil {
		return "", err
	}

	if shared {
		rc.logger.Debug("token refresh outcome shared with queued waiters")
	}

	return result.(string), nil
}

package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// APIClient talks to the IAM backend endpoints the session core depends on.
// The refresh endpoint authenticates through the cookie jar, not the bearer
// token, which is why it lives outside the Gateway pipeline.
type APIClient struct {
	baseURL     string
	http        *http.Client
	cfg         Config
	logger      Logger
	tokenSource func() string
}

var _ BackendAPI = (*APIClient)(nil)

func NewAPIClient(cfg Config) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		baseURL: cfg.GetBaseURL(),
		cfg:     cfg,
		logger:  defLogger{},
		http: &http.Client{
			Timeout: cfg.GetHTTPTimeout(),
			Jar:     jar,
		},
	}
}

func (a *APIClient) WithLogger(logger Logger) *APIClient {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *APIClient) WithHTTPClient(client *http.Client) *APIClient {
	if client != nil {
		a.http = client
	}
	return a
}

// WithTokenSource sets the provider for the bearer token attached to
// authenticated endpoints (logout). Login and refresh never carry it.
func (a *APIClient) WithTokenSource(fn func() string) *APIClient {
	a.tokenSource = fn
	return a
}

// HTTPClient exposes the underlying transport so the Gateway can share the
// cookie jar with the refresh channel.
func (a *APIClient) HTTPClient() *http.Client {
	return a.http
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type errorEnvelope struct {
	Message string       `json:"message"`
	Data    envelopeData `json:"data"`
}

type envelopeData struct {
	Code     string `json:"code"`
	BanUntil int64  `json:"banUntil"`
}

func (a *APIClient) Login(ctx context.Context, identifier, password string) (string, error) {
	payload := map[string]string{
		"identifier": identifier,
		"password":   password,
	}
	out := &tokenResponse{}
	if err := a.do(ctx, http.MethodPost, a.cfg.GetLoginPath(), payload, out, false); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (a *APIClient) Refresh(ctx context.Context) (string, error) {
	out := &tokenResponse{}
	if err := a.do(ctx, http.MethodPost, a.cfg.GetRefreshPath(), nil, out, false); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func (a *APIClient) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodDelete, a.cfg.GetLogoutPath(), nil, nil, true)
}

func (a *APIClient) LookupSubject(ctx context.Context, contact string) (*SubjectRef, error) {
	payload := map[string]string{"contact": contact}
	out := &SubjectRef{}
	if err := a.do(ctx, http.MethodPost, a.cfg.GetLookupPath(), payload, out, false); err != nil {
		// only the lookup endpoint treats 404 as a subject miss
		if IsNotFoundError(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return out, nil
}

func (a *APIClient) SendOtp(ctx context.Context, subjectID string) error {
	payload := map[string]string{"subjectId": subjectID}
	return a.do(ctx, http.MethodPost, a.cfg.GetOtpSendPath(), payload, nil, false)
}

func (a *APIClient) VerifyOtp(ctx context.Context, subjectID, code string) error {
	payload := map[string]string{
		"subjectId": subjectID,
		"code":      code,
	}
	return a.do(ctx, http.MethodPost, a.cfg.GetOtpVerifyPath(), payload, nil, false)
}

func (a *APIClient) ResetPassword(ctx context.Context, subjectID, newPassword string) error {
	payload := map[string]string{
		"subjectId": subjectID,
		"password":  newPassword,
	}
	return a.do(ctx, http.MethodPut, a.cfg.GetPasswordResetPath(), payload, nil, false)
}

func (a *APIClient) do(ctx context.Context, method, path string, payload, out any, authed bool) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request payload")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authed && a.tokenSource != nil {
		if token := a.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "request transport failure")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return a.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode response payload")
	}
	return nil
}

// decodeError maps the backend error envelope {message, data} onto the
// client error taxonomy.
func (a *APIClient) decodeError(resp *http.Response) error {
	envelope := &errorEnvelope{}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if readErr == nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, envelope); err != nil {
			a.logger.Debug("api error envelope did not decode: %s", string(raw))
		}
	}

	err := mapWireError(resp.StatusCode, envelope)

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && len(rich.Metadata) > 0 {
		a.logger.Debug("api error %d: %s", resp.StatusCode,
			print.MaybePrettyJSON(rich.Metadata))
	}

	return err
}

func mapWireError(status int, envelope *errorEnvelope) error {
	switch status {
	case http.StatusUnauthorized:
		if envelope.Data.Code == TextCodeTokenExpired {
			return ErrTokenExpired
		}
		if envelope.Data.Code == TextCodeInvalidOtp {
			return ErrInvalidOtp
		}
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		var banUntil time.Time
		if envelope.Data.BanUntil > 0 {
			banUntil = time.Unix(envelope.Data.BanUntil, 0)
		}
		return rateLimitError(envelope.Message, banUntil)
	case http.StatusNotFound:
		if envelope.Data.Code == TextCodeSubjectNotFound {
			return ErrSubjectNotFound
		}
		message := envelope.Message
		if message == "" {
			message = "resource not found"
		}
		return goerrors.New(message, goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}

	switch envelope.Data.Code {
	case TextCodeInvalidOtp:
		return ErrInvalidOtp
	case TextCodeSubjectNotFound:
		return ErrSubjectNotFound
	}

	message := envelope.Message
	if message == "" {
		message = "backend request failed"
	}
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(status)
}

package authclient

import (
	"context"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// ResetStage identifies where a password reset flow currently stands. Stages
// only advance; the whole flow is discarded to start over.
type ResetStage string

const (
	// StageLookup is the initial stage: resolve a subject from a contact.
	StageLookup ResetStage = "lookup"
	// StageOtpPending means an OTP was dispatched and awaits verification.
	StageOtpPending ResetStage = "otp-pending"
	// StageOtpVerified allows the actual password reset call.
	StageOtpVerified ResetStage = "otp-verified"
)

// resetTransitions is the forward-only stage graph.
var resetTransitions = map[ResetStage]ResetStage{
	StageLookup:     StageOtpPending,
	StageOtpPending: StageOtpVerified,
}

// ResetFlowOption customizes a flow.
type ResetFlowOption func(*ResetFlow)

// WithResetLogger overrides the flow logger.
func WithResetLogger(logger Logger) ResetFlowOption {
	return func(f *ResetFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithResetPhoneRegion sets the default region for bare national phone
// numbers entered as the contact.
func WithResetPhoneRegion(region string) ResetFlowOption {
	return func(f *ResetFlow) {
		if region != "" {
			f.region = region
		}
	}
}

// ResetFlow drives the 3-stage OTP-gated password reset protocol:
// Lookup -> VerifyOtp -> Reset. Calling an operation from the wrong stage
// fails with ErrInvalidStage and produces no network call and no state
// change. Rate limit responses are delegated to the LockoutManager under the
// reset kind; the stage is kept so the user can retry once the window
// clears.
type ResetFlow struct {
	id       uuid.UUID
	stage    ResetStage
	subject  string
	contact  string
	api      BackendAPI
	lockouts *LockoutManager
	logger   Logger
	region   string
}

func NewResetFlow(api BackendAPI, lockouts *LockoutManager, opts ...ResetFlowOption) *ResetFlow {
	f := &ResetFlow{
		id:       uuid.New(),
		stage:    StageLookup,
		api:      api,
		lockouts: lockouts,
		logger:   defLogger{},
		region:   "US",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// Stage returns the current stage.
func (f *ResetFlow) Stage() ResetStage { return f.stage }

// ID identifies the flow in logs. After a successful lookup it is derived
// from the normalized contact, so retries for one account share an id.
func (f *ResetFlow) ID() uuid.UUID { return f.id }

// SubjectID returns the resolved subject, empty before a successful lookup.
func (f *ResetFlow) SubjectID() string { return f.subject }

// ContactEmail returns the registered email the OTP was dispatched to.
func (f *ResetFlow) ContactEmail() string { return f.contact }

// Lookup resolves a subject from an email or phone contact and dispatches an
// OTP to the registered email. A lookup miss keeps the stage so the user can
// correct the contact.
func (f *ResetFlow) Lookup(ctx context.Context, contact string) error {
	if err := f.guard("lookup", StageLookup); err != nil {
		return err
	}

	normalized, err := normalizeContact(contact, f.region)
	if err != nil {
		return err
	}

	// key the flow by contact so retries for the same account correlate
	if id, err := hashid.NewUUID(normalized); err == nil {
		f.id = id
	}

	ref, err := f.api.LookupSubject(ctx, normalized)
	if err != nil {
		f.lockouts.RecordFromError(LockoutReset, err)
		return err
	}

	if err := f.api.SendOtp(ctx, ref.SubjectID); err != nil {
		f.lockouts.RecordFromError(LockoutReset, err)
		return err
	}

	f.subject = ref.SubjectID
	f.contact = ref.Email
	f.advance()

	f.logger.Info("reset flow %s dispatched otp to subject %s", f.id, f.subject)
	return nil
}

// VerifyOtp submits the code the user received. An invalid code keeps the
// stage for retry; a rate limit records a reset lockout.
func (f *ResetFlow) VerifyOtp(ctx context.Context, code string) error {
	if err := f.guard("verify-otp", StageOtpPending); err != nil {
		return err
	}

	if err := f.blockedByLockout(); err != nil {
		return err
	}

	if err := validateOtpCode(code); err != nil {
		return err
	}

	if err := f.api.VerifyOtp(ctx, f.subject, code); err != nil {
		f.lockouts.RecordFromError(LockoutReset, err)
		return err
	}

	f.advance()
	f.logger.Info("reset flow %s verified otp", f.id)
	return nil
}

// Reset submits the new password. The local precondition (confirmation match
// plus strength) is checked before any network call. On success the flow is
// discarded; on a rate limit the stage is kept so the reset can be retried
// once the lockout clears.
func (f *ResetFlow) Reset(ctx context.Context, newPassword, confirm string) error {
	if err := f.guard("reset", StageOtpVerified); err != nil {
		return err
	}

	if err := f.blockedByLockout(); err != nil {
		return err
	}

	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}

	if err := f.api.ResetPassword(ctx, f.subject, newPassword); err != nil {
		f.lockouts.RecordFromError(LockoutReset, err)
		return err
	}

	f.logger.Info("reset flow %s completed for subject %s", f.id, f.subject)
	f.Abandon()
	return nil
}

// Abandon discards the flow (modal close, completion). The flow returns to
// its zero state and can be reused for a fresh lookup.
func (f *ResetFlow) Abandon() {
	f.stage = StageLookup
	f.subject = ""
	f.contact = ""
}

func (f *ResetFlow) guard(operation string, required ResetStage) error {
	if f.stage == required {
		return nil
	}
	return ErrInvalidStage.Clone().WithMetadata(map[string]any{
		"operation": operation,
		"stage":     string(f.stage),
	})
}

func (f *ResetFlow) advance() {
	if next, ok := resetTransitions[f.stage]; ok {
		f.stage = next
	}
}

func (f *ResetFlow) blockedByLockout() error {
	remaining := f.lockouts.Remaining(LockoutReset)
	if remaining <= 0 {
		return nil
	}
	return ErrRateLimited.Clone().WithMetadata(map[string]any{
		metaLockoutKind: string(LockoutReset),
		"remaining":     remaining.String(),
	})
}

var (
	passwordUpper = regexp.MustCompile(`[A-Z]`)
	passwordLower = regexp.MustCompile(`[a-z]`)
	passwordDigit = regexp.MustCompile(`[0-9]`)
	otpShape      = regexp.MustCompile(`^[0-9]{6}$`)
)

// normalizeContact accepts an email or a phone number. Phone input is
// normalized to E.164 before it reaches the lookup endpoint.
func normalizeContact(contact, region string) (string, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return "", goerrors.New("contact is required", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidContact)
	}

	if err := validation.Validate(contact, is.Email); err == nil {
		return contact, nil
	}

	number, err := phonenumbers.Parse(contact, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "", goerrors.New("contact must be a valid email or phone number", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidContact)
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

func validateOtpCode(code string) error {
	if err := validation.Validate(code,
		validation.Required,
		validation.Match(otpShape).Error("must be a 6 digit code"),
	); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "verification code is not well formed").
			WithTextCode(TextCodeInvalidOtp)
	}
	return nil
}

// validateNewPassword enforces the client-side strength precondition:
// confirmation match, length >= 8, one uppercase, one lowercase, one digit.
func validateNewPassword(password, confirm string) error {
	if password != confirm {
		return goerrors.New("passwords do not match", goerrors.CategoryValidation).
			WithTextCode(TextCodePasswordMatch)
	}

	if err := validation.Validate(password,
		validation.Required,
		validation.Length(8, 0),
		validation.Match(passwordUpper).Error("must contain an uppercase letter"),
		validation.Match(passwordLower).Error("must contain a lowercase letter"),
		validation.Match(passwordDigit).Error("must contain a digit"),
	); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "password does not meet strength requirements").
			WithTextCode(TextCodeWeakPassword)
	}

	return nil
}

package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"almeone-contact-api/internal/domain"
	"almeone-contact-api/internal/usecase"
	"almeone-contact-api/pkg/apperror"
	"almeone-contact-api/pkg/captcha"
	"almeone-contact-api/pkg/email"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock collaborators
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(raw domain.SubmissionRequest) domain.ValidationResult {
	return m.Called(raw).Get(0).(domain.ValidationResult)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) CheckAndConsume(ctx context.Context, key string) domain.RateLimitDecision {
	return m.Called(ctx, key).Get(0).(domain.RateLimitDecision)
}

type MockCaptcha struct {
	mock.Mock
}

func (m *MockCaptcha) Verify(ctx context.Context, token, remoteIP string) domain.CaptchaResult {
	return m.Called(ctx, token, remoteIP).Get(0).(domain.CaptchaResult)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, sub domain.Submission) (domain.DispatchOutcome, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(domain.DispatchOutcome), args.Error(1)
}

var refPattern = regexp.MustCompile(`^ALM-\d+-[A-Z0-9]{6}$`)

type fixture struct {
	validator  *MockValidator
	limiter    *MockLimiter
	captcha    *MockCaptcha
	dispatcher *MockDispatcher
	uc         domain.ContactUsecase
}

func newFixture() *fixture {
	f := &fixture{
		validator:  new(MockValidator),
		limiter:    new(MockLimiter),
		captcha:    new(MockCaptcha),
		dispatcher: new(MockDispatcher),
	}
	f.uc = usecase.NewContactUsecase(f.validator, f.limiter, f.captcha, f.dispatcher, nil)
	return f
}

var (
	meta    = domain.RequestMeta{ClientIP: "203.0.113.7", RequestID: "req-1"}
	request = domain.SubmissionRequest{Name: "Jo", Email: "Jo@X.com", Message: "Hello there, this is a test."}
	clean   = domain.SubmissionRequest{Name: "Jo", Email: "jo@x.com", Message: "Hello there, this is a test."}
	allowed = domain.RateLimitDecision{Allowed: true, Limit: 5, Remaining: 4, ResetAt: time.Now().Add(15 * time.Minute)}
)

// happyPath wires every collaborator up to dispatch.
func (f *fixture) happyPath() {
	f.limiter.On("CheckAndConsume", mock.Anything, meta.ClientIP).Return(allowed)
	f.validator.On("Validate", request).Return(domain.ValidationResult{Valid: true, Sanitized: clean})
	f.captcha.On("Verify", mock.Anything, "", meta.ClientIP).Return(domain.CaptchaResult{Success: true, Reason: "no_token"})
}

func appError(t *testing.T, err error) *apperror.AppError {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.AppError, got %T", err)
	return appErr
}

func TestContactUsecase_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("Should relay a valid submission", func(t *testing.T) {
		f := newFixture()
		f.happyPath()
		f.dispatcher.On("Send", mock.Anything, mock.MatchedBy(func(s domain.Submission) bool {
			return s.Request == clean && s.Meta == meta && refPattern.MatchString(s.ReferenceID)
		})).Return(domain.DispatchOutcome{AdminSent: true, CustomerSent: true}, nil)

		res, err := f.uc.Submit(ctx, request, meta)

		require.NoError(t, err)
		assert.Regexp(t, refPattern, res.ReferenceID)
		assert.Equal(t, domain.DeliveryFull, res.Delivery)
		assert.Equal(t, allowed, res.RateLimit)
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("Should reject rate limited clients before validating", func(t *testing.T) {
		f := newFixture()
		f.limiter.On("CheckAndConsume", mock.Anything, meta.ClientIP).
			Return(domain.RateLimitDecision{Allowed: false, Limit: 5, ResetAt: time.Now().Add(90 * time.Second)})

		_, err := f.uc.Submit(ctx, request, meta)

		appErr := appError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, appErr.Code)
		assert.Equal(t, apperror.KindRateLimited, appErr.Kind)
		assert.Equal(t, usecase.MsgRateLimited, appErr.Message)
		assert.Greater(t, appErr.RetryAfter, 80*time.Second)
		f.validator.AssertNotCalled(t, "Validate", mock.Anything)
		f.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Should return every validation error without dispatching", func(t *testing.T) {
		f := newFixture()
		errs := []string{"Name is required", "Please provide a valid email address"}
		f.limiter.On("CheckAndConsume", mock.Anything, meta.ClientIP).Return(allowed)
		f.validator.On("Validate", mock.Anything).Return(domain.ValidationResult{Valid: false, Errors: errs})

		_, err := f.uc.Submit(ctx, domain.SubmissionRequest{}, meta)

		appErr := appError(t, err)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		assert.Equal(t, usecase.MsgValidation, appErr.Message)
		assert.Equal(t, errs, appErr.Errors)
		f.captcha.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
		f.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Should dispatch when a non-strict CAPTCHA check rejects the token", func(t *testing.T) {
		f := newFixture()
		f.limiter.On("CheckAndConsume", mock.Anything, meta.ClientIP).Return(allowed)
		withToken := clean
		withToken.RecaptchaToken = "tok"
		f.validator.On("Validate", mock.Anything).Return(domain.ValidationResult{Valid: true, Sanitized: withToken})
		f.captcha.On("Verify", mock.Anything, "tok", meta.ClientIP).Return(domain.CaptchaResult{Success: true, Verified: false, Reason: "rejected"})
		f.dispatcher.On("Send", mock.Anything, mock.Anything).Return(domain.DispatchOutcome{AdminSent: true, CustomerSent: true}, nil)

		res, err := f.uc.Submit(ctx, request, meta)

		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryFull, res.Delivery)
		f.dispatcher.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("Should block when a strict CAPTCHA check fails", func(t *testing.T) {
		f := newFixture()
		f.limiter.On("CheckAndConsume", mock.Anything, meta.ClientIP).Return(allowed)
		withToken := clean
		withToken.RecaptchaToken = "tok"
		f.validator.On("Validate", mock.Anything).Return(domain.ValidationResult{Valid: true, Sanitized: withToken})
		f.captcha.On("Verify", mock.Anything, "tok", meta.ClientIP).Return(domain.CaptchaResult{Success: false, Reason: "rejected"})

		_, err := f.uc.Submit(ctx, request, meta)

		appErr := appError(t, err)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		assert.Equal(t, []string{usecase.MsgCaptchaFailed}, appErr.Errors)
		f.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Should treat a partial delivery as success", func(t *testing.T) {
		f := newFixture()
		f.happyPath()
		f.dispatcher.On("Send", mock.Anything, mock.Anything).
			Return(domain.DispatchOutcome{CustomerSent: true, AdminErr: email.ErrSendFailed}, nil)

		res, err := f.uc.Submit(ctx, request, meta)

		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryPartial, res.Delivery)
		assert.False(t, res.Outcome.AdminSent)
	})

	t.Run("Should fail with a reference id when nothing was sent", func(t *testing.T) {
		f := newFixture()
		f.happyPath()
		f.dispatcher.On("Send", mock.Anything, mock.Anything).Return(domain.DispatchOutcome{
			AdminErr:    email.ErrSendFailed,
			CustomerErr: email.ErrSendFailed,
		}, nil)

		_, err := f.uc.Submit(ctx, request, meta)

		appErr := appError(t, err)
		assert.Equal(t, http.StatusInternalServerError, appErr.Code)
		assert.Equal(t, apperror.KindDispatchFailed, appErr.Kind)
		assert.Equal(t, usecase.MsgTotalFailure, appErr.Message)
		assert.Regexp(t, refPattern, appErr.ReferenceID)
		assert.ErrorIs(t, err, email.ErrSendFailed)
	})

	t.Run("Should separate credential errors from transient ones", func(t *testing.T) {
		cases := []struct {
			class email.TokenErrorClass
			kind  apperror.Kind
		}{
			{email.InvalidCredentials, apperror.KindProviderAuth},
			{email.InsufficientPermission, apperror.KindProviderAuth},
			{email.Transient, apperror.KindProviderTransient},
		}
		for _, tc := range cases {
			f := newFixture()
			f.happyPath()
			te := &email.TokenError{Class: tc.class, Err: errors.New("token endpoint said no")}
			f.dispatcher.On("Send", mock.Anything, mock.Anything).
				Return(domain.DispatchOutcome{AdminErr: te, CustomerErr: te}, nil)

			_, err := f.uc.Submit(ctx, request, meta)

			appErr := appError(t, err)
			assert.Equal(t, tc.kind, appErr.Kind, tc.class)
			assert.Equal(t, string(tc.class), appErr.Debug["tokenError"])
			assert.NotContains(t, appErr.Message, "token endpoint")
		}
	})

	t.Run("Should report an unconfigured provider", func(t *testing.T) {
		f := newFixture()
		f.happyPath()
		f.dispatcher.On("Send", mock.Anything, mock.Anything).Return(domain.DispatchOutcome{},
			&email.NotConfiguredError{Provider: "graph", Missing: []string{"GRAPH_CLIENT_SECRET"}})

		_, err := f.uc.Submit(ctx, request, meta)

		appErr := appError(t, err)
		assert.Equal(t, apperror.KindNotConfigured, appErr.Kind)
		assert.Equal(t, usecase.MsgNotConfigured, appErr.Message)
		assert.Equal(t, []string{"GRAPH_CLIENT_SECRET"}, appErr.Debug["missing"])
		assert.NotEmpty(t, appErr.ReferenceID)
	})

	t.Run("Should finish dispatch after the client goes away", func(t *testing.T) {
		f := newFixture()
		f.happyPath()
		f.dispatcher.On("Send", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything).
			Return(domain.DispatchOutcome{AdminSent: true, CustomerSent: true}, nil)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := f.uc.Submit(cancelled, request, meta)

		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryFull, res.Delivery)
	})
}

func TestNewReferenceID(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	seen := map[string]bool{}
	for range 100 {
		id := usecase.NewReferenceID(now)
		assert.Regexp(t, `^ALM-1700000000123-[A-Z0-9]{6}$`, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestHealthUsecase_Check(t *testing.T) {
	status := usecase.NewHealthUsecase("1.2.3", "staging").Check(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "staging", status.Environment)
	_, err := time.Parse(time.RFC3339, status.Timestamp)
	assert.NoError(t, err)
	assert.NotEmpty(t, status.Uptime)
}

func TestContactUsecase_Submit_CaptchaRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	withToken := clean
	withToken.RecaptchaToken = "tok"

	run := func(strict bool) (*fixture, error) {
		f := newFixture()
		f.limiter.On("CheckAndConsume", mock.Anything, meta.ClientIP).Return(allowed)
		f.validator.On("Validate", mock.Anything).Return(domain.ValidationResult{Valid: true, Sanitized: withToken})
		f.dispatcher.On("Send", mock.Anything, mock.Anything).Return(domain.DispatchOutcome{AdminSent: true, CustomerSent: true}, nil)

		verifier := captcha.NewVerifier(captcha.Config{Secret: "test-secret", VerifyURL: srv.URL, Strict: strict}, srv.Client(), nil)
		uc := usecase.NewContactUsecase(f.validator, f.limiter, verifier, f.dispatcher, nil)

		_, err := uc.Submit(context.Background(), request, meta)
		return f, err
	}

	t.Run("Should still dispatch when not strict", func(t *testing.T) {
		f, err := run(false)

		require.NoError(t, err)
		f.dispatcher.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("Should reject when strict", func(t *testing.T) {
		f, err := run(true)

		appErr := appError(t, err)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		assert.Equal(t, []string{usecase.MsgCaptchaFailed}, appErr.Errors)
		f.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

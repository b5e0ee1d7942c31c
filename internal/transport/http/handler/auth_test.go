package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const clientURL = "http://client.test"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRegistration and fakeAuth implement the unexported usecase interfaces via method matching.
type fakeRegistration struct {
	register func(ctx context.Context, form domain.RegistrationForm) error
	activate func(ctx context.Context, rawToken string) (domain.ActivationResult, error)
}

func (f *fakeRegistration) Register(ctx context.Context, form domain.RegistrationForm) error {
	return f.register(ctx, form)
}

func (f *fakeRegistration) Activate(ctx context.Context, rawToken string) (domain.ActivationResult, error) {
	return f.activate(ctx, rawToken)
}

type fakeAuth struct {
	login           func(ctx context.Context, email, password string) (*domain.Session, error)
	forgotPassword  func(ctx context.Context, email string) error
	checkResetToken func(ctx context.Context, rawToken string) error
	resetPassword   func(ctx context.Context, rawToken, password, password2 string) error
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuth) ForgotPassword(ctx context.Context, email string) error {
	return f.forgotPassword(ctx, email)
}

func (f *fakeAuth) CheckResetToken(ctx context.Context, rawToken string) error {
	return f.checkResetToken(ctx, rawToken)
}

func (f *fakeAuth) ResetPassword(ctx context.Context, rawToken, password, password2 string) error {
	return f.resetPassword(ctx, rawToken, password, password2)
}

func newTestEngine(reg *fakeRegistration, auth *fakeAuth) *gin.Engine {
	h := handler.NewAuthHandler(reg, auth, handler.Config{ClientURL: clientURL}, discard)

	r := gin.New()
	r.Use(middleware.Errors(discard))
	r.POST("/auth/register", h.Register)
	r.GET("/auth/activate/:token", h.Activate)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.POST("/auth/forgot", h.Forgot)
	r.GET("/auth/forgot/:token", h.GotoReset)
	r.POST("/auth/reset/:token", h.Reset)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeErrors(t *testing.T, w *httptest.ResponseRecorder) []domain.ValidationError {
	t.Helper()
	var body struct {
		Errors []domain.ValidationError `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body.Errors
}

// ---- Register ----

func TestRegister_InvalidJSON_Returns400(t *testing.T) {
	w := postJSON(newTestEngine(&fakeRegistration{}, &fakeAuth{}), "/auth/register", `{bad json}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if errs := decodeErrors(t, w); len(errs) != 1 || errs[0].Kind != domain.KindInvalidBody {
		t.Errorf("errors = %+v, want InvalidBody", errs)
	}
}

func TestRegister_PassesFormToUsecase(t *testing.T) {
	var got domain.RegistrationForm
	reg := &fakeRegistration{register: func(_ context.Context, form domain.RegistrationForm) error {
		got = form
		return nil
	}}

	w := postJSON(newTestEngine(reg, &fakeAuth{}), "/auth/register",
		`{"name":"test","email":"test@test.com","password":"1234567890","password2":"1234567890"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	want := domain.RegistrationForm{Name: "test", Email: "test@test.com", Password: "1234567890", Password2: "1234567890"}
	if got != want {
		t.Errorf("form = %+v, want %+v", got, want)
	}
}

func TestRegister_FormEncodedBody(t *testing.T) {
	var got domain.RegistrationForm
	reg := &fakeRegistration{register: func(_ context.Context, form domain.RegistrationForm) error {
		got = form
		return nil
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader("name=test&email=test%40test.com&password=1234567890&password2=1234567890"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	newTestEngine(reg, &fakeAuth{}).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if got.Email != "test@test.com" {
		t.Errorf("email = %q, want test@test.com", got.Email)
	}
}

func TestRegister_UsecaseErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kinds  []domain.ErrorKind
	}{
		{
			name: "validation errors in order",
			err: domain.ValidationErrors{
				{Kind: domain.KindMissingField, Message: "Please fill all the fields"},
				{Kind: domain.KindPasswordMismatch, Message: "Passwords dont match"},
			},
			status: http.StatusBadRequest,
			kinds:  []domain.ErrorKind{domain.KindMissingField, domain.KindPasswordMismatch},
		},
		{"duplicate", domain.ErrEmailTaken, http.StatusBadRequest, []domain.ErrorKind{domain.KindEmailAlreadyRegistered}},
		{"missing secret", domain.ErrSecretMissing, http.StatusInternalServerError, []domain.ErrorKind{domain.KindConfigError}},
		{"store", errors.Join(domain.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusInternalServerError, []domain.ErrorKind{domain.KindDatabaseError}},
		{"hash", domain.ErrHash, http.StatusInternalServerError, []domain.ErrorKind{domain.KindInternal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistration{register: func(context.Context, domain.RegistrationForm) error { return tt.err }}
			w := postJSON(newTestEngine(reg, &fakeAuth{}), "/auth/register", `{}`)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			errs := decodeErrors(t, w)
			if len(errs) != len(tt.kinds) {
				t.Fatalf("errors = %+v, want kinds %v", errs, tt.kinds)
			}
			for i, k := range tt.kinds {
				if errs[i].Kind != k {
					t.Errorf("errors[%d].kind = %s, want %s", i, errs[i].Kind, k)
				}
			}
		})
	}
}

// ---- Activate ----

func TestActivate_RedirectsByOutcome(t *testing.T) {
	tests := []struct {
		result   domain.ActivationResult
		location string
	}{
		{domain.ActivationActivated, clientURL + "/login?activated=true"},
		{domain.ActivationExists, clientURL + "/login?exists=true"},
		{domain.ActivationTimeout, clientURL + "/register?timeout=true"},
	}
	for _, tt := range tests {
		t.Run(string(tt.result), func(t *testing.T) {
			var gotToken string
			reg := &fakeRegistration{activate: func(_ context.Context, raw string) (domain.ActivationResult, error) {
				gotToken = raw
				return tt.result, nil
			}}
			w := get(newTestEngine(reg, &fakeAuth{}), "/auth/activate/abc.def.ghi")

			if w.Code != http.StatusFound {
				t.Fatalf("status = %d, want 302", w.Code)
			}
			if loc := w.Header().Get("Location"); loc != tt.location {
				t.Errorf("Location = %q, want %q", loc, tt.location)
			}
			if gotToken != "abc.def.ghi" {
				t.Errorf("token = %q, want abc.def.ghi", gotToken)
			}
		})
	}
}

func TestActivate_ServerFault_Returns500(t *testing.T) {
	reg := &fakeRegistration{activate: func(context.Context, string) (domain.ActivationResult, error) {
		return "", domain.ErrSecretMissing
	}}
	w := get(newTestEngine(reg, &fakeAuth{}), "/auth/activate/abc")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if errs := decodeErrors(t, w); errs[0].Kind != domain.KindConfigError {
		t.Errorf("kind = %s, want ConfigError", errs[0].Kind)
	}
}

// ---- Login / Logout ----

func TestLogin_Success_SetsCookieAndRedirects(t *testing.T) {
	auth := &fakeAuth{login: func(_ context.Context, email, password string) (*domain.Session, error) {
		if email != "jane@example.com" || password != "1234567890" {
			t.Errorf("credentials = %q/%q", email, password)
		}
		return &domain.Session{UserID: "u1", Token: "signed", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}}
	w := postJSON(newTestEngine(&fakeRegistration{}, auth), "/auth/login", `{"email":"jane@example.com","password":"1234567890"}`)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/main" {
		t.Errorf("Location = %q, want /main", loc)
	}
	cookie := w.Result().Cookies()
	if len(cookie) != 1 || cookie[0].Name != middleware.SessionCookie || cookie[0].Value != "signed" || !cookie[0].HttpOnly {
		t.Errorf("cookies = %+v, want HttpOnly session=signed", cookie)
	}
}

func TestLogin_BadCredentials_Returns401(t *testing.T) {
	auth := &fakeAuth{login: func(context.Context, string, string) (*domain.Session, error) {
		return nil, domain.ErrBadCredentials
	}}
	w := postJSON(newTestEngine(&fakeRegistration{}, auth), "/auth/login", `{"email":"x@y.z","password":"nope"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if errs := decodeErrors(t, w); errs[0].Kind != domain.KindBadCredentials {
		t.Errorf("kind = %s, want BadCredentials", errs[0].Kind)
	}
}

func TestLogout_ExpiresCookie(t *testing.T) {
	w := postJSON(newTestEngine(&fakeRegistration{}, &fakeAuth{}), "/auth/logout", ``)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %+v, want expired session cookie", cookies)
	}
}

// ---- Forgot / Reset ----

func TestForgot_UsecaseSuccess_Returns200(t *testing.T) {
	var got string
	auth := &fakeAuth{forgotPassword: func(_ context.Context, email string) error {
		got = email
		return nil
	}}
	w := postJSON(newTestEngine(&fakeRegistration{}, auth), "/auth/forgot", `{"email":"jane@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got != "jane@example.com" {
		t.Errorf("email = %q", got)
	}
}

func TestGotoReset_Redirects(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		location string
	}{
		{"valid", nil, clientURL + "/reset/tok"},
		{"stale", domain.ErrTokenInvalid, clientURL + "/forgot?timeout=true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{checkResetToken: func(context.Context, string) error { return tt.err }}
			w := get(newTestEngine(&fakeRegistration{}, auth), "/auth/forgot/tok")

			if w.Code != http.StatusFound {
				t.Fatalf("status = %d, want 302", w.Code)
			}
			if loc := w.Header().Get("Location"); loc != tt.location {
				t.Errorf("Location = %q, want %q", loc, tt.location)
			}
		})
	}
}

func TestReset_InvalidToken_Returns400(t *testing.T) {
	auth := &fakeAuth{resetPassword: func(context.Context, string, string, string) error {
		return domain.ErrTokenInvalid
	}}
	w := postJSON(newTestEngine(&fakeRegistration{}, auth), "/auth/reset/tok", `{"password":"1234567890","password2":"1234567890"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if errs := decodeErrors(t, w); errs[0].Kind != domain.KindTokenInvalid {
		t.Errorf("kind = %s, want TokenInvalid", errs[0].Kind)
	}
}

func TestReset_Success_Returns200(t *testing.T) {
	var gotToken string
	auth := &fakeAuth{resetPassword: func(_ context.Context, raw, _, _ string) error {
		gotToken = raw
		return nil
	}}
	w := postJSON(newTestEngine(&fakeRegistration{}, auth), "/auth/reset/tok", `{"password":"1234567890","password2":"1234567890"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotToken != "tok" {
		t.Errorf("token = %q, want tok", gotToken)
	}
}

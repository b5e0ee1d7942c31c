package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

// registrationUsecaser and authUsecaser are the subsets of the usecases the
// handler needs. Defined here (point of use) so tests can inject fakes.
type registrationUsecaser interface {
	Register(ctx context.Context, form domain.RegistrationForm) error
	Activate(ctx context.Context, rawToken string) (domain.ActivationResult, error)
}

type authUsecaser interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	CheckResetToken(ctx context.Context, rawToken string) error
	ResetPassword(ctx context.Context, rawToken, password, password2 string) error
}

type Config struct {
	// ClientURL is the frontend that activation and reset links land on.
	ClientURL     string
	SecureCookies bool
}

type AuthHandler struct {
	registration registrationUsecaser
	auth         authUsecaser
	cfg          Config
	logger       *slog.Logger
}

func NewAuthHandler(registration registrationUsecaser, auth authUsecaser, cfg Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		auth:         auth,
		cfg:          cfg,
		logger:       logger.With("component", "auth_handler"),
	}
}

type registerRequest struct {
	Name      string `json:"name" form:"name"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	Password2 string `json:"password2" form:"password2"`
}

// POST /auth/register
// Field rules are checked by the usecase, so nothing is required at bind time.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidBody(c)
		return
	}

	err := h.registration.Register(c.Request.Context(), domain.RegistrationForm{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msgRegistered})
}

// GET /auth/activate/:token
// Every token outcome is a redirect to the client; only server faults render an error.
func (h *AuthHandler) Activate(c *gin.Context) {
	result, err := h.registration.Activate(c.Request.Context(), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	switch result {
	case domain.ActivationActivated:
		h.redirect(c, "/login", "activated")
	case domain.ActivationExists:
		h.redirect(c, "/login", "exists")
	default:
		h.redirect(c, "/register", "timeout")
	}
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// POST /auth/login
// Sets the session cookie and sends the browser to /main. The token is also
// returned in the body for non-browser clients.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidBody(c)
		return
	}

	s, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, s.Token, maxAge, "/", "", h.cfg.SecureCookies, true)
	c.Header("Location", "/main")
	c.JSON(http.StatusSeeOther, gin.H{"token": s.Token, "expires_at": s.ExpiresAt})
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cfg.SecureCookies, true)
	c.Status(http.StatusNoContent)
}

type forgotRequest struct {
	Email string `json:"email" form:"email"`
}

// POST /auth/forgot
// Returns 200 whether or not the email belongs to a user.
func (h *AuthHandler) Forgot(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidBody(c)
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgResetSent})
}

// GET /auth/forgot/:token
// Sends the browser to the client's reset form, or back to the forgot form
// when the link is stale.
func (h *AuthHandler) GotoReset(c *gin.Context) {
	rawToken := c.Param("token")
	err := h.auth.CheckResetToken(c.Request.Context(), rawToken)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, h.cfg.ClientURL+"/reset/"+url.PathEscape(rawToken))
	case errors.Is(err, domain.ErrTokenInvalid):
		h.redirect(c, "/forgot", "timeout")
	default:
		_ = c.Error(err)
	}
}

type resetRequest struct {
	Password  string `json:"password" form:"password"`
	Password2 string `json:"password2" form:"password2"`
}

// POST /auth/reset/:token
func (h *AuthHandler) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBind(&req); err != nil {
		invalidBody(c)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.Password2); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgResetComplete})
}

// GET /main
// Requires middleware.Auth.
func (h *AuthHandler) Main(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": msgWelcome,
		"user_id": c.GetString("userID"),
		"email":   c.GetString("email"),
	})
}

func (h *AuthHandler) redirect(c *gin.Context, path, flag string) {
	c.Redirect(http.StatusFound, h.cfg.ClientURL+path+"?"+flag+"=true")
}

func invalidBody(c *gin.Context) {
	_ = c.Error(domain.ValidationErrors{{Kind: domain.KindInvalidBody, Message: msgInvalidBody}})
}

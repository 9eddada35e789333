package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/revision-tracker/internal/auth"
	"github.com/sakif/revision-tracker/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler manages sign-in and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, sign the user in, redirect to the app
//   - HandleSignup         → create an email/password account
//   - HandleLogin          → email/password sign-in
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → the signed-in user's profile
//
// github may be nil when GitHub OAuth is not configured; the server then
// does not mount the /auth/github routes.
type AuthHandler struct {
	github     *auth.GitHubProvider
	auth       *service.AuthService
	tokens     *auth.TokenService
	afterLogin string
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. afterLogin is where the OAuth
// callback sends the browser once signed in.
func NewAuthHandler(
	github *auth.GitHubProvider,
	authService *service.AuthService,
	tokens *auth.TokenService,
	afterLogin string,
	logger *slog.Logger,
) *AuthHandler {
	if afterLogin == "" {
		afterLogin = "/"
	}
	return &AuthHandler{
		github:     github,
		auth:       authService,
		tokens:     tokens,
		afterLogin: afterLogin,
		logger:     logger,
	}
}

// setSessionCookie stores the JWT in an HttpOnly cookie. Secure is set
// whenever the request came in over TLS.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the GitHub URL.
// The callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: missing or mismatched state")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.afterLogin+"?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, r, result.Token)
	http.Redirect(w, r, h.afterLogin, http.StatusSeeOther)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Login    string `json:"login"`
}

// HandleSignup creates an email/password account and signs it in.
//
// HTTP: POST /auth/signup {"email", "password", "login"?}
// Response: 201 {"user": {...}, "token": "<jwt>"} plus the session cookie.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Signup(r.Context(), req.Email, req.Password, req.Login)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, r, result.Token)
	writeJSON(w, http.StatusCreated, result)
}

// HandleLogin signs in an email/password account.
//
// HTTP: POST /auth/login {"email", "password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, r, result.Token)
	writeJSON(w, http.StatusOK, result)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless, so the token itself stays valid until it expires;
// logging out only makes the browser forget it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("HandleMe: user lookup failed", slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

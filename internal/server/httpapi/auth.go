package httpapi

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/metaltracker/internal/common"
)

const (
	oauthSessionName = "metaltracker_oauth"
	oauthStateKey    = "state"
	oauthStateMaxAge = 300
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if apiErr := decode(w, r, &req, false); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	_, pair, err := s.deps.Users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, newTokenResponse(pair, s.now()))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := decode(w, r, &req, false); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	pair, err := s.deps.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.AuthFailures.WithLabelValues("invalid_credentials").Inc()
		}
		s.fail(w, r, err)
		return
	}
	ok(w, newTokenResponse(pair, s.now()))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if apiErr := decode(w, r, &req, false); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	pair, err := s.deps.Users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newTokenResponse(pair, s.now()))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if apiErr := decode(w, r, &req, true); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	if err := s.deps.Users.Logout(r.Context(), identity(r), req.RefreshToken); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Users.Me(r.Context(), identity(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newUserResponse(user))
}

func (s *Server) tierInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Gate.TierInfo(r.Context(), identity(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, tierInfoResponse(*info))
}

// googleLogin stores a random state in a short-lived signed cookie and sends
// the browser to Google's consent screen.
func (s *Server) googleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.OAuth == nil || s.deps.Sessions == nil {
		writeError(w, ErrUnavailable.WithMessage("Google sign-in is not configured"))
		return
	}

	state, err := common.MakeRandHexString(16)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	session, _ := s.deps.Sessions.Get(r, oauthSessionName)
	session.Values[oauthStateKey] = state
	session.Options.MaxAge = oauthStateMaxAge
	session.Options.HttpOnly = true
	session.Options.SameSite = http.SameSiteLaxMode
	session.Options.Path = "/api/auth"
	if err := session.Save(r, w); err != nil {
		s.fail(w, r, err)
		return
	}

	http.Redirect(w, r, s.deps.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// googleCallback finishes the code flow and hands the tokens to the frontend
// in the URL fragment, which browsers never send to servers.
func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	if s.deps.OAuth == nil || s.deps.Sessions == nil {
		writeError(w, ErrUnavailable.WithMessage("Google sign-in is not configured"))
		return
	}

	session, _ := s.deps.Sessions.Get(r, oauthSessionName)
	expected, _ := session.Values[oauthStateKey].(string)
	delete(session.Values, oauthStateKey)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	q := r.URL.Query()
	state := q.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		s.logger.Warn(r.Context(), "oauth state mismatch")
		s.oauthFailed(w, r)
		return
	}
	if q.Get("error") != "" || q.Get("code") == "" {
		s.oauthFailed(w, r)
		return
	}

	pair, err := s.deps.OAuth.SignIn(r.Context(), q.Get("code"))
	if err != nil {
		s.logger.Warn(r.Context(), "google sign-in failed", "error", err)
		s.oauthFailed(w, r)
		return
	}

	tr := newTokenResponse(pair, s.now())
	fragment := url.Values{}
	fragment.Set("access_token", tr.AccessToken)
	fragment.Set("refresh_token", tr.RefreshToken)
	fragment.Set("token_type", tr.TokenType)
	fragment.Set("expires_in", strconv.FormatInt(tr.ExpiresIn, 10))
	http.Redirect(w, r, s.frontend("/auth/callback")+"#"+fragment.Encode(), http.StatusFound)
}

func (s *Server) oauthFailed(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.AuthFailures.WithLabelValues("oauth_failed").Inc()
	}
	http.Redirect(w, r, s.frontend("/login")+"?error=oauth_failed", http.StatusFound)
}

func (s *Server) frontend(path string) string {
	return strings.TrimRight(s.deps.FrontendURL, "/") + path
}

package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/s/peripatos/internal/auth"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/newsletter"
)

// Sign-up choices made before the Google popup, kept until the callback.
const (
	googleUsernameKey = "google_username"
	googleUserTypeKey = "google_user_type"
	googleUpdatesKey  = "google_receive_updates"
)

// startSession signs u in. The session keeps the cookie options of the store.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, u *models.User) error {
	session, _ := h.Store.Get(r, SessionName)
	session.Values[SessionUserKey] = u.ID
	for _, k := range []string{oauthStateKey, googleUsernameKey, googleUserTypeKey, googleUpdatesKey} {
		delete(session.Values, k)
	}
	return session.Save(r, w)
}

// subscribeUpdates puts a new user on the newsletter. Failures are logged
// only; the account already exists.
func (h *Handler) subscribeUpdates(ctx context.Context, u *models.User) {
	_, _, err := h.Newsletter.Subscribe(ctx, newsletter.SubscribeInput{
		Email:          u.Email,
		Name:           u.Username,
		ReceiveUpdates: true,
	})
	if err != nil {
		h.Log.Warn("failed to subscribe new user", "user_id", u.ID, "error", err)
	}
}

func (h *Handler) SignUpAPI(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	u, err := h.Auth.SignUp(r.Context(), in)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	if in.ReceiveUpdates {
		h.subscribeUpdates(r.Context(), u)
	}
	if err := h.startSession(w, r, u); err != nil {
		h.Fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, u.Profile())
}

func (h *Handler) LoginAPI(w http.ResponseWriter, r *http.Request) {
	var in struct {
		EmailOrUsername string `json:"emailOrUsername"`
		Password        string `json:"password"`
	}
	if !DecodeJSON(w, r, &in) {
		return
	}
	u, err := h.Auth.SignIn(r.Context(), in.EmailOrUsername, in.Password)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	if err := h.startSession(w, r, u); err != nil {
		h.Fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, u.Profile())
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.Store.Get(r, SessionName)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Config == nil {
		http.NotFound(w, r)
		return
	}
	state := uuid.NewString()
	session, _ := h.Store.Get(r, SessionName)
	session.Values[oauthStateKey] = state

	// The sign-up form may pass ?username=&userType=&receiveUpdates=true.
	q := r.URL.Query()
	var types []string
	for _, v := range q["userType"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	session.Values[googleUsernameKey] = strings.TrimSpace(q.Get("username"))
	session.Values[googleUserTypeKey] = strings.Join(types, ",")
	session.Values[googleUpdatesKey] = q.Get("receiveUpdates") == "true"
	if err := session.Save(r, w); err != nil {
		h.Log.Error("failed to save session", "error", err)
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (h *Handler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.Config == nil {
		http.NotFound(w, r)
		return
	}
	session, _ := h.Store.Get(r, SessionName)
	want, _ := session.Values[oauthStateKey].(string)
	if want == "" || r.URL.Query().Get("state") != want {
		http.Error(w, "Invalid state", http.StatusUnauthorized)
		return
	}

	gu, err := h.FetchGoogleUser(r.Context(), h.Config, r.URL.Query().Get("code"))
	if err != nil {
		h.Log.Warn("google sign-in failed", "error", err)
		http.Error(w, "Google sign-in failed", http.StatusBadRequest)
		return
	}

	pref := auth.GoogleSignUp{}
	pref.Username, _ = session.Values[googleUsernameKey].(string)
	if joined, _ := session.Values[googleUserTypeKey].(string); joined != "" {
		for _, t := range strings.Split(joined, ",") {
			pref.UserType = append(pref.UserType, models.UserType(t))
		}
	}
	wantUpdates, _ := session.Values[googleUpdatesKey].(bool)

	u, err := h.Auth.GoogleSignIn(r.Context(), gu, pref)
	if err != nil {
		h.Log.Error("failed to store google user", "email", gu.Email, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if wantUpdates {
		h.subscribeUpdates(r.Context(), u)
	}

	if err := h.startSession(w, r, u); err != nil {
		h.Log.Error("failed to save session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

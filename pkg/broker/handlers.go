package broker

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/qauth/pkg/httputil"
	"github.com/platinummonkey/qauth/pkg/identity"
	"github.com/platinummonkey/qauth/pkg/observability"
	"github.com/platinummonkey/qauth/pkg/qps"
	"github.com/platinummonkey/qauth/pkg/session"
	"github.com/platinummonkey/qauth/pkg/sso"
)

// TicketAuthority is the subset of the proxy service client the broker
// drives.
type TicketAuthority interface {
	RequestTicket(ctx context.Context, req qps.TicketRequest) (*qps.Ticket, error)
	UserSessions(ctx context.Context, directory, userID string) (json.RawMessage, error)
	DeleteUser(ctx context.Context, directory, userID string) (json.RawMessage, error)
}

// Handlers implements the broker's HTTP endpoints
type Handlers struct {
	registry  *sso.Registry
	authority TicketAuthority
	sessions  *session.Manager
	logger    *observability.Logger
	metrics   *observability.Metrics
	basePath  string
}

// NewHandlers creates the broker handlers. basePath prefixes every route,
// e.g. "/qauth"; pass "" to mount at the root.
func NewHandlers(registry *sso.Registry, authority TicketAuthority, sessions *session.Manager, logger *observability.Logger, metrics *observability.Metrics, basePath string) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{
		registry:  registry,
		authority: authority,
		sessions:  sessions,
		logger:    logger,
		metrics:   metrics,
		basePath:  basePath,
	}
}

// RegisterRoutes sets up all broker routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(h.basePath+"/login/{strategy}", h.Login).Methods("GET")
	router.HandleFunc(h.basePath+"/{strategy}_auth_callback", h.Callback).Methods("GET", "POST")
	router.HandleFunc(h.basePath+"/logout/{directory}/{user}", h.Logout).Methods("GET")
	router.HandleFunc(h.basePath+"/user/{directory}/{user}", h.UserSessions).Methods("GET")
	router.HandleFunc(h.basePath+"/failed", h.Failed).Methods("GET")
	router.HandleFunc("/ping", h.Ping).Methods("GET")
}

// failedPath is where provider authentication failures land
func (h *Handlers) failedPath() string {
	return h.basePath + "/failed"
}

// Login begins a provider login. The caller must supply a redirect target;
// supplying targetId and proxyRestUri as well selects the module flow, where
// the proxy service computes the post-login deep link.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["strategy"]
	logger := h.logger.WithField("strategy", name)

	strategy, ok := h.registry.Get(name)
	if !ok {
		h.countLogin(name, "unknown_strategy")
		httputil.WriteBadRequest(w)
		return
	}

	q := r.URL.Query()
	redirect := q.Get("redirect")
	if redirect == "" {
		h.countLogin(name, "bad_request")
		httputil.WriteBadRequest(w)
		return
	}

	loginType := session.LoginWeb
	targetID := q.Get("targetId")
	proxyURI := q.Get("proxyRestUri")
	if targetID != "" || proxyURI != "" {
		if targetID == "" || proxyURI == "" {
			h.countLogin(name, "bad_request")
			httputil.WriteBadRequest(w)
			return
		}
		loginType = session.LoginModule
	}

	id, rec, err := h.sessions.Ensure(w, r)
	if err != nil {
		logger.WithError(err).Error("session store unavailable")
		h.countLogin(name, "store_error")
		httputil.WriteInternalError(w)
		return
	}

	// Overwrites any prior pending login: one login per session.
	rec.LoginType = loginType
	rec.Redirect = redirect
	rec.ModuleTargetID = targetID
	rec.ModuleProxyURI = proxyURI
	rec.State = uuid.NewString()

	if err := h.sessions.Save(r.Context(), id, rec); err != nil {
		logger.WithError(err).Error("failed to persist login context")
		h.countLogin(name, "store_error")
		httputil.WriteInternalError(w)
		return
	}

	ctx := observability.WithStrategy(r.Context(), name)
	if err := strategy.BeginAuth(w, r.WithContext(ctx), rec.State); err != nil {
		logger.WithError(err).Error("failed to begin provider auth")
		h.countLogin(name, "provider_error")
		httputil.WriteInternalError(w)
		return
	}

	h.countLogin(name, "initiated")
}

// Callback completes a provider login. It only proceeds when the caller's
// session shows a pending login with a matching state nonce; a stray or
// replayed callback mutates nothing.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["strategy"]
	logger := h.logger.WithField("strategy", name)

	strategy, ok := h.registry.Get(name)
	if !ok {
		h.countCallback(name, "unknown_strategy")
		httputil.WriteBadRequest(w)
		return
	}

	id, rec, err := h.sessions.Load(r)
	if err != nil {
		logger.WithError(err).Error("session store unavailable")
		h.countCallback(name, "store_error")
		httputil.WriteInternalError(w)
		return
	}
	if rec == nil || !rec.PendingLogin() {
		h.countCallback(name, "no_pending_login")
		httputil.WriteUnauthorized(w)
		return
	}

	// OAuth providers echo the nonce as state; SAML carries it as
	// RelayState.
	state := r.FormValue("state")
	if state == "" {
		state = r.FormValue("RelayState")
	}
	if rec.State == "" || state != rec.State {
		logger.Warn("callback state mismatch")
		h.consumeLoginContext(r, id, rec)
		h.countCallback(name, "state_mismatch")
		httputil.WriteUnauthorized(w)
		return
	}

	loginType := rec.LoginType
	redirect := rec.Redirect
	targetID := rec.ModuleTargetID
	proxyURI := rec.ModuleProxyURI

	ctx := observability.WithStrategy(r.Context(), name)
	principal, err := strategy.CompleteAuth(ctx, r)
	if err != nil {
		logger.WithError(err).Warn("provider authentication failed")
		h.consumeLoginContext(r, id, rec)
		h.countCallback(name, "provider_failure")
		httputil.Redirect(w, r, h.failedPath())
		return
	}

	normalized, err := identity.Normalize(*principal)
	if err != nil {
		logger.WithError(err).Warn("provider returned an unusable principal")
		h.consumeLoginContext(r, id, rec)
		h.countCallback(name, "invalid_principal")
		httputil.WriteUnauthorized(w)
		return
	}
	logger = logger.WithFields(map[string]interface{}{
		"user_directory": normalized.Directory,
		"user_id":        normalized.UserID,
	})

	// The login context is consumed regardless of how the exchange below
	// goes; a failed exchange must not leave a replayable pending login.
	rec.ClearLoginContext()

	// Revoke any stale downstream session before issuing, so the ticket
	// the browser receives is the identity's only live session.
	if _, err := h.authority.DeleteUser(ctx, normalized.Directory, normalized.UserID); err != nil {
		logger.WithError(err).Error("failed to revoke prior downstream session")
		h.saveRecord(r, id, rec)
		h.countCallback(name, "authority_error")
		httputil.WriteUnauthorized(w)
		return
	}

	ticketReq := qps.TicketRequest{
		UserDirectory: normalized.Directory,
		UserID:        normalized.UserID,
		Attributes: []qps.Attribute{
			{"photo": principal.PhotoURL},
			{"userName": principal.DisplayName},
		},
	}
	if loginType == session.LoginModule {
		ticketReq.TargetID = targetID
		ticketReq.ProxyURI = proxyURI
	}

	ticket, err := h.authority.RequestTicket(ctx, ticketReq)
	if err != nil {
		logger.WithError(err).Error("ticket issuance failed")
		h.saveRecord(r, id, rec)
		h.countCallback(name, "ticket_failure")
		httputil.WriteUnauthorized(w)
		return
	}
	if loginType == session.LoginModule && ticket.TargetURI == "" {
		logger.Error("proxy service issued a module ticket without a target URI")
		h.saveRecord(r, id, rec)
		h.countCallback(name, "ticket_failure")
		httputil.WriteUnauthorized(w)
		return
	}

	// Bind only now: the proxy service has vouched for the identity.
	rec.Bind(normalized)
	if err := h.sessions.Save(ctx, id, rec); err != nil {
		logger.WithError(err).Error("failed to persist session binding")
		h.countCallback(name, "store_error")
		httputil.WriteInternalError(w)
		return
	}

	target := redirect
	if loginType == session.LoginModule {
		target = ticket.TargetURI
	}

	logger.Info("login complete")
	h.countCallback(name, "success")
	httputil.Redirect(w, r, qps.ComposeRedirect(target, ticket.Value))
}

// Logout revokes the identity's downstream sessions and unbinds the local
// session, but only when the caller's session is bound to the identity in
// the path. The response is a redirect either way, so the status never
// reveals whether the identity exists or who owns it.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	directory, user := vars["directory"], vars["user"]

	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		h.countLogout("bad_request")
		httputil.WriteBadRequest(w)
		return
	}

	id, rec, err := h.sessions.Load(r)
	if err != nil {
		h.logger.WithError(err).Error("session store unavailable")
		h.countLogout("store_error")
		httputil.WriteInternalError(w)
		return
	}

	if rec != nil && rec.IsOwner(directory, user) {
		ctx := r.Context()
		if _, err := h.authority.DeleteUser(ctx, directory, user); err != nil {
			h.logger.WithError(err).WithFields(map[string]interface{}{
				"user_directory": directory,
				"user_id":        user,
			}).Error("failed to revoke downstream session")
			h.countLogout("authority_error")
			httputil.WriteUnauthorized(w)
			return
		}

		rec.Unbind()
		// Acknowledged before the redirect: the browser must not observe
		// a logout that the store has not.
		if err := h.sessions.Save(ctx, id, rec); err != nil {
			h.logger.WithError(err).Error("failed to persist session unbind")
			h.countLogout("store_error")
			httputil.WriteInternalError(w)
			return
		}
		h.countLogout("success")
	} else {
		h.countLogout("no_match")
	}

	httputil.Redirect(w, r, redirect)
}

// UserSessions lists the downstream sessions of the identity in the path.
// A caller whose session is not bound to that identity gets an empty
// object, never an error.
func (h *Handlers) UserSessions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	directory, user := vars["directory"], vars["user"]

	_, rec, err := h.sessions.Load(r)
	if err != nil {
		h.logger.WithError(err).Error("session store unavailable")
		httputil.WriteInternalError(w)
		return
	}

	if rec == nil || !rec.IsOwner(directory, user) {
		httputil.WriteRawJSON(w, http.StatusOK, []byte("{}"))
		return
	}

	payload, err := h.authority.UserSessions(r.Context(), directory, user)
	if err != nil {
		h.logger.WithError(err).Error("failed to list downstream sessions")
		httputil.WriteUnauthorized(w)
		return
	}

	httputil.WriteRawJSON(w, http.StatusOK, payload)
}

// Failed is the fixed landing endpoint for provider authentication failures
func (h *Handlers) Failed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteUnauthorized(w)
}

// Ping is the liveness endpoint
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// consumeLoginContext clears the pending login and persists the clear; the
// caller is about to answer with a failure and the context must not survive
// for a replay.
func (h *Handlers) consumeLoginContext(r *http.Request, id string, rec *session.Record) {
	rec.ClearLoginContext()
	h.saveRecord(r, id, rec)
}

func (h *Handlers) saveRecord(r *http.Request, id string, rec *session.Record) {
	if err := h.sessions.Save(r.Context(), id, rec); err != nil {
		h.logger.WithError(err).Error("failed to persist session record")
	}
}

func (h *Handlers) countLogin(strategy, result string) {
	if h.metrics != nil {
		h.metrics.LoginAttemptsTotal.WithLabelValues(strategy, result).Inc()
	}
}

func (h *Handlers) countCallback(strategy, result string) {
	if h.metrics != nil {
		h.metrics.CallbacksTotal.WithLabelValues(strategy, result).Inc()
	}
}

func (h *Handlers) countLogout(result string) {
	if h.metrics != nil {
		h.metrics.LogoutsTotal.WithLabelValues(result).Inc()
	}
}

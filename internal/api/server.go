// Package api is the REST boundary: account auth, admin user management,
// meeting minutes, and the websocket upgrade, all behind one chi router.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atriumverse/atrium/internal/config"
	"github.com/atriumverse/atrium/internal/metrics"
	"github.com/atriumverse/atrium/internal/minutes"
	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/persist"
)

type ctxKey int

const identityKey ctxKey = 0

// Server holds the REST dependencies and builds the router.
type Server struct {
	cfg      *config.Config
	tokens   *TokenIssuer
	users    *persist.UserRepo
	meetings *persist.MeetingRepo
	queue    *minutes.Queue
	ws       *net.Server
	met      *metrics.Metrics
	log      *zap.Logger
}

func NewServer(cfg *config.Config, tokens *TokenIssuer, users *persist.UserRepo,
	meetings *persist.MeetingRepo, queue *minutes.Queue, ws *net.Server,
	met *metrics.Metrics, log *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		tokens:   tokens,
		users:    users,
		meetings: meetings,
		queue:    queue,
		ws:       ws,
		met:      met,
		log:      log,
	}
}

// Router assembles the full HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", s.met.Handler())
	r.Get("/ws", s.ws.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(httprate.LimitByIP(s.cfg.RateLimit.LoginPerMinute, time.Minute)).
				Post("/login", s.handleLogin)
			r.With(httprate.LimitByIP(s.cfg.RateLimit.LoginPerMinute, time.Minute)).
				Post("/signup", s.handleSignup)
			r.With(s.requireAuth).Get("/me", s.handleMe)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth, s.requireRole("admin", "ceo"))
			r.Get("/", s.handleListUsers)
			r.Patch("/{id}", s.handleUpdateUserRole)
			r.Delete("/{id}", s.handleDeleteUser)
		})

		r.Route("/meeting", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/token", s.handleChatToken)
			r.Post("/{id}/minutes", s.handleRequestMinutes)
			r.Get("/{id}/minutes", s.handleListMinutes)
		})
	})

	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		ident, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, ident)))
	})
}

func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := identityFrom(r)
			for _, role := range roles {
				if ident.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role")
		})
	}
}

func identityFrom(r *http.Request) net.Identity {
	ident, _ := r.Context().Value(identityKey).(net.Identity)
	return ident
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string `json:"token"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if len(creds.Username) < 2 || len(creds.Username) > 32 {
		writeError(w, http.StatusBadRequest, "username must be 2 to 32 characters")
		return
	}
	if len(creds.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := s.users.Load(r.Context(), creds.Username)
	if err != nil {
		s.internalError(w, "load user", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username taken")
		return
	}

	u, err := s.users.Create(r.Context(), creds.Username, creds.Password, "employee")
	if err != nil {
		s.internalError(w, "create user", err)
		return
	}
	s.respondWithToken(w, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	u, err := s.users.Load(r.Context(), creds.Username)
	if err != nil {
		s.internalError(w, "load user", err)
		return
	}
	if u == nil || !s.users.VerifyPassword(u, creds.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.respondWithToken(w, u)
}

func (s *Server) respondWithToken(w http.ResponseWriter, u *persist.UserRow) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		s.internalError(w, "issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token:    token,
		ID:       u.ID.String(),
		Username: u.Username,
		Role:     u.Role,
	})
}

type userResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Role       string     `json:"role"`
	Online     bool       `json:"online"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toUserResponse(u *persist.UserRow) userResponse {
	return userResponse{
		ID:         u.ID.String(),
		Username:   u.Username,
		Role:       u.Role,
		Online:     u.Online,
		LastSeenAt: u.LastSeenAt,
		CreatedAt:  u.CreatedAt,
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r)
	id, err := uuid.Parse(ident.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token subject")
		return
	}
	u, err := s.users.LoadByID(r.Context(), id)
	if err != nil {
		s.internalError(w, "load user", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.users.List(r.Context())
	if err != nil {
		s.internalError(w, "list users", err)
		return
	}
	out := make([]userResponse, len(rows))
	for i := range rows {
		out[i] = toUserResponse(&rows[i])
	}
	writeJSON(w, http.StatusOK, out)
}

var validRoles = map[string]bool{
	"employee": true,
	"hr":       true,
	"admin":    true,
	"ceo":      true,
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed user id")
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !validRoles[body.Role] {
		writeError(w, http.StatusBadRequest, "role must be one of employee, hr, admin, ceo")
		return
	}

	found, err := s.users.UpdateRole(r.Context(), id, body.Role)
	if err != nil {
		s.internalError(w, "update role", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no such user")
		return
	}
	s.log.Info("role changed",
		zap.String("user", id.String()),
		zap.String("role", body.Role),
		zap.String("by", identityFrom(r).Username))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed user id")
		return
	}
	if id.String() == identityFrom(r).UserID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	found, err := s.users.Delete(r.Context(), id)
	if err != nil {
		s.internalError(w, "delete user", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no such user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MeetingID string `json:"meetingId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.MeetingID == "" {
		writeError(w, http.StatusBadRequest, "meetingId required")
		return
	}
	ident := identityFrom(r)
	token, err := IssueChatToken(s.cfg.Meeting.ChatSecret, ident.UserID, ident.Username, body.MeetingID)
	if err != nil {
		s.internalError(w, "issue chat token", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

const maxTranscriptBytes = 1 << 20

func (s *Server) handleRequestMinutes(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "id")
	var body struct {
		Transcript string `json:"transcript"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxTranscriptBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if strings.TrimSpace(body.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "transcript required")
		return
	}

	ident := identityFrom(r)
	jobID, err := s.meetings.CreateJob(r.Context(), meetingID, ident.UserID, body.Transcript)
	if err != nil {
		s.internalError(w, "create minutes job", err)
		return
	}
	if !s.queue.Enqueue(minutes.Job{
		ID:          jobID,
		MeetingID:   meetingID,
		RequestedBy: ident.UserID,
		Transcript:  body.Transcript,
	}) {
		// The row stays pending; a later rerun can pick it up.
		s.log.Warn("minutes queue full", zap.String("meeting", meetingID))
		writeError(w, http.StatusServiceUnavailable, "minutes queue full, try again later")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID.String(), "status": "pending"})
}

type minutesResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Summary     *string    `json:"summary,omitempty"`
	RequestedBy string     `json:"requestedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (s *Server) handleListMinutes(w http.ResponseWriter, r *http.Request) {
	rows, err := s.meetings.ListByMeeting(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.internalError(w, "list minutes", err)
		return
	}
	out := make([]minutesResponse, len(rows))
	for i, m := range rows {
		out[i] = minutesResponse{
			ID:          m.ID.String(),
			Status:      m.Status,
			Summary:     m.Summary,
			RequestedBy: m.RequestedBy,
			CreatedAt:   m.CreatedAt,
			CompletedAt: m.CompletedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

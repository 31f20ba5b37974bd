package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mind-reader-backend/internal/domain"
	infrahttp "mind-reader-backend/internal/infra/http"
	"mind-reader-backend/internal/usecase/analysis"
	"mind-reader-backend/internal/usecase/auth"
	"mind-reader-backend/internal/usecase/friends"
	"mind-reader-backend/internal/usecase/notifications"
	"mind-reader-backend/internal/usecase/profile"
	"mind-reader-backend/internal/usecase/weekly"
)

// Sockets принимает websocket-подключения авторизованных клиентов.
type Sockets interface {
	Join(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

// Handler связывает HTTP-маршруты с прикладными сервисами.
type Handler struct {
	auth          *auth.Service
	analysis      *analysis.Service
	weekly        *weekly.Service
	friends       *friends.Service
	notifications *notifications.Service
	profile       *profile.Service
	sockets       Sockets
	log           zerolog.Logger

	jwtSecret         string
	analysisPerMinute int
}

// NewHandler создаёт обработчик.
func NewHandler(
	authSvc *auth.Service,
	analysisSvc *analysis.Service,
	weeklySvc *weekly.Service,
	friendsSvc *friends.Service,
	notificationsSvc *notifications.Service,
	profileSvc *profile.Service,
	sockets Sockets,
	log zerolog.Logger,
	jwtSecret string,
	analysisPerMinute int,
) *Handler {
	if analysisPerMinute <= 0 {
		analysisPerMinute = 30
	}
	return &Handler{
		auth:              authSvc,
		analysis:          analysisSvc,
		weekly:            weeklySvc,
		friends:           friendsSvc,
		notifications:     notificationsSvc,
		profile:           profileSvc,
		sockets:           sockets,
		log:               log,
		jwtSecret:         jwtSecret,
		analysisPerMinute: analysisPerMinute,
	}
}

// Register вешает маршруты на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
		})

		r.Group(func(r chi.Router) {
			r.Use(infrahttp.AuthMiddleware(h.jwtSecret))

			r.Route("/analysis", func(r chi.Router) {
				r.With(httprate.LimitByRealIP(h.analysisPerMinute, time.Minute)).
					Post("/", h.analyzeText)
				r.Get("/", h.listAnalyses)
				r.Get("/weekly", h.weeklyMood)
				r.Get("/status", h.analysisStatus)
				r.Delete("/{id}", h.deleteAnalysis)
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/info", h.userInfo)
				r.Put("/profile", h.updateProfile)
			})

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", h.listFriends)
				r.Get("/requests", h.incomingRequests)
				r.Get("/sent", h.sentRequests)
				r.Get("/search", h.searchUsers)
				r.Post("/request/{userId}", h.sendRequest)
				r.Delete("/request/{userId}", h.cancelRequest)
				r.Post("/accept/{userId}", h.acceptRequest)
				r.Post("/reject/{userId}", h.rejectRequest)
				r.Get("/{userId}/profile", h.friendProfile)
				r.Delete("/{userId}", h.removeFriend)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.listNotifications)
				r.Post("/read/{id}", h.markRead)
				r.Post("/read-all", h.markAllRead)
				r.Post("/mood-alert/{userId}", h.createMoodAlert)
			})
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(infrahttp.AuthMiddleware(h.jwtSecret))
		r.Get("/ws", h.websocket)
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	infrahttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректное тело запроса"))
		return
	}
	session, err := h.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusCreated, session)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректное тело запроса"))
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, session)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

func (h *Handler) analyzeText(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrahttp.UserID(r.Context())
	if !ok {
		infrahttp.WriteError(w, http.StatusUnauthorized, errors.New("нет авторизации"))
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректное тело запроса"))
		return
	}
	result, err := h.analysis.AnalyzeText(r.Context(), userID, req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) listAnalyses(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	items, err := h.analysis.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Analysis{}
	}
	infrahttp.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректный идентификатор"))
		return
	}
	if err := h.analysis.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) analysisStatus(w http.ResponseWriter, r *http.Request) {
	infrahttp.WriteJSON(w, http.StatusOK, h.analysis.CheckStatus(r.Context()))
}

// weeklyMood отдаёт сводку за 7 дней. По умолчанию свою, через
// ?subject=<id> — сводку друга.
func (h *Handler) weeklyMood(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	subjectID := userID
	if raw := r.URL.Query().Get("subject"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректный идентификатор"))
			return
		}
		subjectID = parsed
	}
	days, err := h.weekly.Weekly(r.Context(), subjectID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, days)
}

func (h *Handler) userInfo(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	p, err := h.profile.Get(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректное тело запроса"))
		return
	}
	p, err := h.profile.Update(r.Context(), userID, req.Username, req.ProfileImage)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) searchUsers(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	users, err := h.friends.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) listFriends(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	list, err := h.friends.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.UserInfo{}
	}
	infrahttp.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) incomingRequests(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	list, err := h.friends.IncomingRequests(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.UserInfo{}
	}
	infrahttp.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) sentRequests(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	list, err := h.friends.SentRequests(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.UserInfo{}
	}
	infrahttp.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) friendAction(w http.ResponseWriter, r *http.Request, action func(userID, otherID uuid.UUID) error) {
	userID, _ := infrahttp.UserID(r.Context())
	otherID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректный идентификатор"))
		return
	}
	if err := action(userID, otherID); err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) sendRequest(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, func(userID, otherID uuid.UUID) error {
		return h.friends.SendRequest(r.Context(), userID, otherID)
	})
}

func (h *Handler) acceptRequest(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, func(userID, otherID uuid.UUID) error {
		return h.friends.AcceptRequest(r.Context(), userID, otherID)
	})
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, func(userID, otherID uuid.UUID) error {
		return h.friends.RejectRequest(r.Context(), userID, otherID)
	})
}

func (h *Handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, func(userID, otherID uuid.UUID) error {
		return h.friends.CancelRequest(r.Context(), userID, otherID)
	})
}

func (h *Handler) removeFriend(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, func(userID, otherID uuid.UUID) error {
		return h.friends.Remove(r.Context(), userID, otherID)
	})
}

func (h *Handler) friendProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	friendID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректный идентификатор"))
		return
	}
	info, err := h.friends.Profile(r.Context(), userID, friendID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	list, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	infrahttp.WriteJSON(w, http.StatusOK, list)
}

type moodAlertRequest struct {
	MoodValue   float64 `json:"moodValue"`
	TextExcerpt string  `json:"textExcerpt"`
}

// createMoodAlert создаёт уведомление о настроении друга по явному
// запросу клиента; {userId} — друг, чьё настроение замечено.
func (h *Handler) createMoodAlert(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	friendID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректный идентификатор"))
		return
	}
	var req moodAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректное тело запроса"))
		return
	}
	n, created, err := h.notifications.CreateMoodAlert(r.Context(), userID, friendID, req.MoodValue, req.TextExcerpt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !created {
		infrahttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	infrahttp.WriteJSON(w, http.StatusCreated, n)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		infrahttp.WriteError(w, http.StatusBadRequest, errors.New("некорректный идентификатор"))
		return
	}
	if err := h.notifications.MarkRead(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := infrahttp.UserID(r.Context())
	if err := h.notifications.MarkAllRead(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	infrahttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) websocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrahttp.UserID(r.Context())
	if !ok {
		infrahttp.WriteError(w, http.StatusUnauthorized, errors.New("нет авторизации"))
		return
	}
	if err := h.sockets.Join(w, r, userID); err != nil {
		h.log.Warn().Err(err).Msg("rest: апгрейд websocket не удался")
	}
}

// writeError отображает прикладные ошибки на HTTP-статусы.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, analysis.ErrEmptyText),
		errors.Is(err, auth.ErrBadEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, friends.ErrSelfRequest):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, profile.ErrUsernameTaken),
		errors.Is(err, friends.ErrAlreadyFriends),
		errors.Is(err, friends.ErrRequestExists):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", infrahttp.RequestID(r)).Str("path", r.URL.Path).Msg("rest: внутренняя ошибка")
	}
	infrahttp.WriteError(w, status, err)
}

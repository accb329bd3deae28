package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"push-service/internal/observability"
	"push-service/internal/rate"
	"push-service/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository is the slice of the store the HTTP surface needs.
type Repository interface {
	Health(ctx context.Context) error
	CreateUser(ctx context.Context, user *store.User) (int64, error)
	UserByWalletAddress(ctx context.Context, walletAddress string) (*store.User, error)
	UserByProjectID(ctx context.Context, projectID string) (*store.User, error)
	TransportsByUserID(ctx context.Context, userID int64) ([]*store.Transport, error)
	DeliverableTransportsByUserID(ctx context.Context, userID int64) ([]*store.Transport, error)
	EnqueueMessage(ctx context.Context, userID int64, title, content string, transports []*store.Transport) ([]int64, error)
	CreateToken(ctx context.Context, token *store.Token) (int64, error)
}

// TaskQueue is the slice of the delay queue ingestion needs.
type TaskQueue interface {
	AddMany(ctx context.Context, taskIDs []int64, fireAt int64) error
}

type Handlers struct {
	logger  *zap.Logger
	repo    Repository
	queue   TaskQueue
	issuer  *TokenIssuer
	limiter *rate.Limiter
	metrics *observability.Metrics
}

func NewHandlers(logger *zap.Logger, repo Repository, queue TaskQueue, issuer *TokenIssuer, limiter *rate.Limiter, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		logger:  logger,
		repo:    repo,
		queue:   queue,
		issuer:  issuer,
		limiter: limiter,
		metrics: metrics,
	}
}

type AuthRequest struct {
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
}

type TransportInfo struct {
	Type      string  `json:"type"`
	ChatID    *string `json:"chat_id,omitempty"`
	Connected bool    `json:"connected"`
}

type GetMeResponse struct {
	ID         int64           `json:"id"`
	OpenID     string          `json:"open_id"`
	ProjectID  string          `json:"project_id"`
	Transports []TransportInfo `json:"transports"`
}

type PushRequest struct {
	Title   string `json:"title" query:"title"`
	Content string `json:"content" query:"content"`
}

type PushResponse struct {
	Status string `json:"status"`
}

// Auth handles POST /api/auth: verifies the wallet signature and returns a
// bearer token, creating the user row on first sight of the address.
func (h *Handlers) Auth(c *fiber.Ctx) error {
	var req AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Address == "" || req.Signature == "" || req.Timestamp == 0 {
		return fail(c, fiber.StatusBadRequest, "missing required fields")
	}

	if err := VerifyWalletSignature(req.Address, req.Signature, req.Timestamp); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid signature")
	}

	user, err := h.repo.UserByWalletAddress(c.Context(), req.Address)
	if errors.Is(err, store.ErrNotFound) {
		projectID, err := NewProjectID()
		if err != nil {
			h.logger.Error("failed to generate project id", zap.Error(err))
			return fail(c, fiber.StatusInternalServerError, "internal error")
		}

		user = &store.User{
			OpenID:        uuid.New(),
			ProjectID:     projectID,
			WalletAddress: req.Address,
			CreationTime:  time.Now().UTC(),
		}
		user.ID, err = h.repo.CreateUser(c.Context(), user)
		if err != nil {
			h.logger.Error("failed to create user", zap.Error(err))
			return fail(c, fiber.StatusInternalServerError, "internal error")
		}
	} else if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}

	accessToken, err := h.issuer.Issue(req.Address, time.Now())
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}

	if _, err := h.repo.CreateToken(c.Context(), &store.Token{
		UserID:       user.ID,
		AccessToken:  accessToken,
		CreationTime: time.Now().UTC(),
	}); err != nil {
		// Audit trail only; the token is still valid.
		h.logger.Warn("failed to record token", zap.Error(err))
	}

	return ok(c, AuthResponse{AccessToken: accessToken})
}

// GetMe handles GET /api/get_me for an authenticated wallet.
func (h *Handlers) GetMe(c *fiber.Ctx) error {
	address, _ := c.Locals(localWalletAddress).(string)

	user, err := h.repo.UserByWalletAddress(c.Context(), address)
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "user not found")
	}
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}

	transports, err := h.repo.TransportsByUserID(c.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load transports", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}

	res := GetMeResponse{
		ID:         user.ID,
		OpenID:     user.OpenID.String(),
		ProjectID:  user.ProjectID,
		Transports: make([]TransportInfo, 0, len(transports)),
	}
	for _, transport := range transports {
		res.Transports = append(res.Transports, TransportInfo{
			Type:      transport.Type,
			ChatID:    transport.ChatID,
			Connected: transport.Connected,
		})
	}

	return ok(c, res)
}

// PushMessage handles GET/POST /api/push/:project_id: persists the message
// plus one task per deliverable transport and schedules them for immediate
// delivery. Acceptance acknowledges persistence only, never delivery.
func (h *Handlers) PushMessage(c *fiber.Ctx) error {
	var req PushRequest
	if c.Method() == fiber.MethodGet {
		if err := c.QueryParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid query")
		}
	} else {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.Content == "" {
		return fail(c, fiber.StatusBadRequest, "content is required")
	}

	projectID := c.Params("project_id")

	if h.limiter.Enabled() {
		allowed, retryAfter, err := h.limiter.Allow(c.Context(), projectID)
		if err != nil {
			h.logger.Error("rate limiter failed", zap.Error(err))
			return fail(c, fiber.StatusInternalServerError, "internal error")
		}
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter.Seconds())+1))
			return fail(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
	}

	user, err := h.repo.UserByProjectID(c.Context(), projectID)
	if errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "project not found")
	}
	if err != nil {
		h.logger.Error("failed to load user by project", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}

	transports, err := h.repo.DeliverableTransportsByUserID(c.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load transports", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}

	taskIDs, err := h.repo.EnqueueMessage(c.Context(), user.ID, req.Title, req.Content, transports)
	if err != nil {
		h.logger.Error("failed to enqueue message", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "internal error")
	}

	if err := h.queue.AddMany(c.Context(), taskIDs, time.Now().Unix()); err != nil {
		// The task rows are durable; a later enqueue pass can reconcile.
		h.logger.Error("failed to schedule tasks", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "failed to queue message")
	}

	if h.metrics != nil {
		h.metrics.PushesQueuedTotal.Inc()
		h.metrics.TasksEnqueued.Add(float64(len(taskIDs)))
	}

	return ok(c, PushResponse{Status: "queued"})
}

func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().Unix()})
}

func (h *Handlers) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.Health(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

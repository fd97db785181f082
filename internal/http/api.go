package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"kasku/internal/auth"
	"kasku/internal/domain"
	"kasku/internal/export"
	"kasku/internal/repository"
	"kasku/internal/service"
	"kasku/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	txs       service.TransactionService
	storage   storage.Service
	tokens    *auth.TokenIssuer
	bucket    string
	keyPrefix string
	logger    *logrus.Logger
}

func NewHandler(
	users service.UserService,
	txs service.TransactionService,
	store storage.Service,
	tokens *auth.TokenIssuer,
	bucket, keyPrefix string,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		users:     users,
		txs:       txs,
		storage:   store,
		tokens:    tokens,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/login", h.login)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}

	authed := api.Group("", h.requireAuth())
	{
		authed.GET("/auth/me", h.me)
		authed.GET("/transactions", h.listTransactions)
		authed.POST("/transactions", h.createTransaction)
		authed.GET("/reports/summary", h.summary)
		authed.GET("/reports/export", h.exportReport)
		authed.GET("/members", h.listMembers)
		authed.PUT("/profile", h.updateProfile)
		authed.POST("/profile/photo", h.uploadPhoto)
		authed.DELETE("/profile/photo", h.deletePhoto)
	}

	admin := authed.Group("", h.requireAdmin())
	{
		admin.GET("/transactions/pending", h.pendingTransactions)
		admin.POST("/transactions/:id/approve", h.approveTransaction)
		admin.POST("/transactions/:id/reject", h.rejectTransaction)
		admin.POST("/transactions/approve-all", h.approveAll)
		admin.POST("/transactions/reject-all", h.rejectAll)
	}
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Errorf("authenticate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Errorf("issue token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userToResponse(user),
	})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, userToResponse(currentUser(c)))
}

func (h *Handler) listTransactions(c *gin.Context) {
	typ := domain.TransactionType(c.Query("type"))
	if typ != "" && !typ.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be income or expense"})
		return
	}

	txs, err := h.txs.ListVisible(c.Request.Context(), currentUser(c))
	if err != nil {
		h.logger.Errorf("list transactions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transactions"})
		return
	}
	c.JSON(http.StatusOK, transactionsToResponse(domain.FilterType(txs, typ)))
}

type createTransactionRequest struct {
	Nominal     float64 `json:"nominal" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Type        string  `json:"type" binding:"required"`
}

func (h *Handler) createTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.txs.Create(c.Request.Context(), currentUser(c), req.Nominal, req.Description, domain.TransactionType(req.Type))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, transactionToResponse(*tx))
}

func (h *Handler) pendingTransactions(c *gin.Context) {
	txs, err := h.txs.Pending(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionsToResponse(txs))
}

func (h *Handler) approveTransaction(c *gin.Context) {
	h.decide(c, h.txs.Approve)
}

func (h *Handler) rejectTransaction(c *gin.Context) {
	h.decide(c, h.txs.Reject)
}

func (h *Handler) decide(c *gin.Context, op func(ctx context.Context, actor *domain.User, id int64) error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	if err := op(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondWorkflowError(c, err)
		return
	}

	// Refresh from the store rather than patching locally.
	pending, err := h.txs.Pending(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": transactionsToResponse(pending)})
}

func (h *Handler) approveAll(c *gin.Context) {
	h.decideAll(c, h.txs.ApproveAll)
}

func (h *Handler) rejectAll(c *gin.Context) {
	h.decideAll(c, h.txs.RejectAll)
}

func (h *Handler) decideAll(c *gin.Context, op func(ctx context.Context, actor *domain.User) (int64, error)) {
	affected, err := op(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": affected, "pending": []TransactionResponse{}})
}

func (h *Handler) respondWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
	case errors.Is(err, repository.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "transaction is not pending"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
	default:
		h.logger.Errorf("approval workflow: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}

func (h *Handler) summary(c *gin.Context) {
	summary, err := h.txs.Summary(c.Request.Context())
	if err != nil {
		h.logger.Errorf("summary: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_income":  summary.TotalIncome,
		"total_expense": summary.TotalExpense,
		"balance":       summary.Balance,
	})
}

func (h *Handler) exportReport(c *gin.Context) {
	scope, err := export.ParseScope(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txs, err := h.txs.ListApproved(c.Request.Context(), scope.Type())
	if err != nil {
		h.logger.Errorf("export load: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transactions"})
		return
	}

	buf, err := export.Workbook(txs)
	if err != nil {
		h.logger.Errorf("export build: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build report"})
		return
	}

	fileName := export.FileName(scope, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) listMembers(c *gin.Context) {
	members, err := h.users.ListMembers(c.Request.Context())
	if err != nil {
		h.logger.Errorf("list members: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load members"})
		return
	}

	resp := make([]UserResponse, len(members))
	for i := range members {
		resp[i] = userToResponse(&members[i])
	}
	c.JSON(http.StatusOK, resp)
}

type updateProfileRequest struct {
	Username        string `json:"username" binding:"required"`
	Bio             string `json:"bio"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c).NIS, req.Username, req.Bio, req.Password, req.ConfirmPassword)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

type UserResponse struct {
	NIS      string  `json:"nis"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	Position string  `json:"position"`
	Bio      string  `json:"bio"`
	PhotoURL *string `json:"photo_url"`
}

type TransactionResponse struct {
	ID          int64   `json:"id"`
	NIS         string  `json:"nis"`
	FullName    string  `json:"full_name"`
	Username    string  `json:"username"`
	Nominal     float64 `json:"nominal"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

func userToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		NIS:      user.NIS,
		Username: user.Username,
		FullName: user.FullName,
		Role:     string(user.Role),
		Position: user.Position,
		Bio:      user.Bio,
		PhotoURL: user.PhotoURL,
	}
}

func transactionToResponse(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		NIS:         tx.NIS,
		FullName:    tx.FullName,
		Username:    tx.Username,
		Nominal:     tx.Nominal,
		Description: tx.Description,
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
}

func transactionsToResponse(txs []domain.Transaction) []TransactionResponse {
	resp := make([]TransactionResponse, len(txs))
	for i := range txs {
		resp[i] = transactionToResponse(txs[i])
	}
	return resp
}

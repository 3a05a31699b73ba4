package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stockroom/internal/model"
	"stockroom/internal/password"
	"stockroom/internal/store"
)

// UserHandler handles user registration requests.
type UserHandler struct {
	store      store.UserStore
	bcryptCost int
	logger     *zap.Logger
}

// NewUserHandler creates a new UserHandler instance.
func NewUserHandler(s store.UserStore, bcryptCost int, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		store:      s,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// RegisterRoutes registers the user routes with the router.
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.Register).Methods(http.MethodPost)
}

// Register handles POST /register requests. The plaintext password is
// hashed before any store call and never logged.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := creds.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.String("username", creds.Username), zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.store.UserByUsername(ctx, creds.Username)
	if err == nil {
		writeError(w, h.logger, http.StatusConflict, "username already taken")
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("failed to check username", zap.String("username", creds.Username), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	hash, err := password.Hash(creds.Password, h.bcryptCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.String("username", creds.Username), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.store.CreateUser(ctx, &model.User{
		Username:     creds.Username,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Raced with a concurrent registration for the same name.
			writeError(w, h.logger, http.StatusConflict, "username already taken")
			return
		}
		h.logger.Error("failed to create user", zap.String("username", creds.Username), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("user registered", zap.String("username", user.Username), zap.String("user_id", user.ID))
	writeJSON(w, h.logger, http.StatusCreated, model.NewSuccessResponse(RegisterResponse{
		Message: "user registered",
		UserID:  user.ID,
	}))
}

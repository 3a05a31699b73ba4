package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stockroom/internal/model"
	"stockroom/internal/store"
)

// ItemHandler handles REST API requests for items.
type ItemHandler struct {
	store  store.ItemStore
	events *EventsHandler
	logger *zap.Logger
}

// NewItemHandler creates a new ItemHandler instance. The events handler
// may be nil, in which case mutations are not broadcast.
func NewItemHandler(s store.ItemStore, events *EventsHandler, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		store:  s,
		events: events,
		logger: logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *ItemHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/items/{id}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/items/{id}", h.DeleteItem).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *ItemHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(response))
}

// ListItems handles GET /items requests.
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.store.List(ctx)
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to retrieve items")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(items))
}

// GetItem handles GET /items/{id} requests.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	item, err := h.store.Get(ctx, id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, model.NewSuccessResponse(item))
}

// CreateItem handles POST /items requests.
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input model.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.store.Create(ctx, input.Item())
	if err != nil {
		h.handleStoreError(w, err, "create item")
		return
	}

	h.publish(model.NewItemEvent(model.EventTypeItemCreated, item))
	writeJSON(w, h.logger, http.StatusCreated, model.NewSuccessResponse(item))
}

// UpdateItem handles PUT /items/{id} requests. Only fields present in the
// request body are written; absent fields keep their stored values.
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	var patch model.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := patch.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.store.Update(ctx, id, patch)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	// Matched but unchanged means the stored values already equal the
	// requested ones.
	if result.Modified == 0 {
		writeJSON(w, h.logger, http.StatusOK,
			model.NewSuccessResponse(MessageResponse{Message: "no changes"}))
		return
	}

	if item, err := h.store.Get(ctx, id); err == nil {
		h.publish(model.NewItemEvent(model.EventTypeItemUpdated, item))
	}
	writeJSON(w, h.logger, http.StatusOK,
		model.NewSuccessResponse(MessageResponse{Message: "item updated"}))
}

// DeleteItem handles DELETE /items/{id} requests.
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if err := h.store.Delete(ctx, id); err != nil {
		h.handleStoreError(w, err, "delete item")
		return
	}

	h.publish(model.NewItemDeletedEvent(id))
	writeJSON(w, h.logger, http.StatusOK,
		model.NewSuccessResponse(MessageResponse{Message: "item deleted"}))
}

// handleStoreError maps store errors to HTTP responses.
func (h *ItemHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, h.logger, http.StatusBadRequest, "invalid item ID")
	case errors.Is(err, store.ErrEmptyPatch):
		writeError(w, h.logger, http.StatusBadRequest, "update patch cannot be empty")
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, h.logger, http.StatusConflict, "item already exists")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

// publish broadcasts an item event when an events handler is attached.
func (h *ItemHandler) publish(event model.Event) {
	if h.events != nil {
		h.events.Publish(event)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	writeJSON(w, logger, status, response)
}

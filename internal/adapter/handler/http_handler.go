package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

const (
	msgInternal       = "internal server error"
	maxRequestBody    = 1 << 20
	idempotencyHeader = "Idempotency-Key"
)

// RoutePrefixes are the paths the item resource is served under.
var RoutePrefixes = []string{"/api/inventory", "/items"}

type InventoryService interface {
	CreateItemIdempotent(ctx context.Context, key string, item domain.InventoryItem) (domain.InventoryItem, error)
	GetItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error)
	GetAllItems(ctx context.Context) ([]domain.InventoryItem, error)
	UpdateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	DeleteItem(ctx context.Context, id int64) (bool, error)
}

type HTTPHandler struct {
	inventoryService InventoryService
	logger           *zap.Logger
}

// ItemHTTPRequest is the body accepted by create and update. createdAt and
// updatedAt are owned by the server and ignored when sent.
type ItemHTTPRequest struct {
	ID           *int64     `json:"id"`
	ProductName  string     `json:"productName"`
	Quantity     int        `json:"quantity"`
	ShipmentDate *time.Time `json:"shipmentDate"`
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(inventoryService InventoryService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{inventoryService: inventoryService, logger: logger}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	for _, prefix := range RoutePrefixes {
		mux.HandleFunc("GET "+prefix, h.ListItems)
		mux.HandleFunc("POST "+prefix, h.CreateItem)
		mux.HandleFunc("GET "+prefix+"/{id}", h.GetItem)
		mux.HandleFunc("PUT "+prefix+"/{id}", h.UpdateItem)
		mux.HandleFunc("DELETE "+prefix+"/{id}", h.DeleteItem)
	}
	mux.HandleFunc("GET /health", h.HealthCheck)
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(r)
	log.Info("fetching all inventory items")

	items, err := h.inventoryService.GetAllItems(r.Context())
	if err != nil {
		h.fail(w, log, err, "error occurred while retrieving inventory items")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	log := h.requestLogger(r).With(zap.Int64("item_id", id))
	log.Info("fetching inventory item")

	item, err := h.inventoryService.GetItemByID(r.Context(), id)
	if err != nil {
		h.fail(w, log, err, "error occurred while retrieving inventory item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	log := h.requestLogger(r)
	log.Info("adding new item", zap.String("product_name", req.ProductName))

	item, err := h.inventoryService.CreateItemIdempotent(r.Context(), r.Header.Get(idempotencyHeader), req.toItem())
	if err != nil {
		h.fail(w, log, err, "error occurred while adding an item")
		return
	}

	w.Header().Set("Location", r.URL.Path+"/"+strconv.FormatInt(item.ID, 10))
	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ItemHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	log := h.requestLogger(r).With(zap.Int64("item_id", id))
	log.Info("updating inventory item")

	// an omitted body id means the path id
	if req.ID == nil {
		req.ID = &id
	}
	if *req.ID != id {
		writeError(w, http.StatusBadRequest, "ID mismatch")
		return
	}

	updated, err := h.inventoryService.UpdateItem(r.Context(), req.toItem())
	if err != nil {
		h.fail(w, log, err, "error occurred while updating item")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	log := h.requestLogger(r).With(zap.Int64("item_id", id))
	log.Info("deleting inventory item")

	deleted, err := h.inventoryService.DeleteItem(r.Context(), id)
	if err != nil {
		h.fail(w, log, err, "error occurred while deleting item")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail maps a service error to a status. Anything unrecognised is logged in
// full and answered with a generic 500.
func (h *HTTPHandler) fail(w http.ResponseWriter, log *zap.Logger, err error, msg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate request")
	default:
		log.Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *HTTPHandler) requestLogger(r *http.Request) *zap.Logger {
	return h.logger.With(zap.String("request_id", requestIDFrom(r.Context())))
}

func (req ItemHTTPRequest) toItem() domain.InventoryItem {
	item := domain.InventoryItem{
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
	}
	if req.ID != nil {
		item.ID = *req.ID
	}
	if req.ShipmentDate != nil {
		item.ShipmentDate = *req.ShipmentDate
	}
	return item
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorHTTPResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

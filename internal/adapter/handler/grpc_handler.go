package handler

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

const grpcServiceName = "inventory.v1.InventoryService"

type GetItemRequest struct {
	ID int64 `json:"id"`
}

type ListItemsRequest struct{}

type ListItemsResponse struct {
	Items []domain.InventoryItem `json:"items"`
}

type CreateItemRequest struct {
	Item           domain.InventoryItem `json:"item"`
	IdempotencyKey string               `json:"idempotencyKey,omitempty"`
}

type UpdateItemRequest struct {
	Item domain.InventoryItem `json:"item"`
}

type DeleteItemRequest struct {
	ID int64 `json:"id"`
}

type DeleteItemResponse struct{}

type ItemResponse struct {
	Item domain.InventoryItem `json:"item"`
}

type InventoryServer interface {
	ListItems(context.Context, *ListItemsRequest) (*ListItemsResponse, error)
	GetItem(context.Context, *GetItemRequest) (*ItemResponse, error)
	CreateItem(context.Context, *CreateItemRequest) (*ItemResponse, error)
	UpdateItem(context.Context, *UpdateItemRequest) (*ItemResponse, error)
	DeleteItem(context.Context, *DeleteItemRequest) (*DeleteItemResponse, error)
}

type GRPCHandler struct {
	inventoryService InventoryService
	logger           *zap.Logger
}

func NewGRPCHandler(inventoryService InventoryService, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{inventoryService: inventoryService, logger: logger}
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

func (h *GRPCHandler) ListItems(ctx context.Context, req *ListItemsRequest) (*ListItemsResponse, error) {
	items, err := h.inventoryService.GetAllItems(ctx)
	if err != nil {
		return nil, h.toStatus(err, "list items")
	}
	return &ListItemsResponse{Items: items}, nil
}

func (h *GRPCHandler) GetItem(ctx context.Context, req *GetItemRequest) (*ItemResponse, error) {
	item, err := h.inventoryService.GetItemByID(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(err, "get item")
	}
	if item == nil {
		return nil, status.Errorf(codes.NotFound, "item %d not found", req.ID)
	}
	return &ItemResponse{Item: *item}, nil
}

func (h *GRPCHandler) CreateItem(ctx context.Context, req *CreateItemRequest) (*ItemResponse, error) {
	req.Item.CreatedAt, req.Item.UpdatedAt = time.Time{}, time.Time{}

	item, err := h.inventoryService.CreateItemIdempotent(ctx, req.IdempotencyKey, req.Item)
	if err != nil {
		return nil, h.toStatus(err, "create item")
	}
	return &ItemResponse{Item: item}, nil
}

func (h *GRPCHandler) UpdateItem(ctx context.Context, req *UpdateItemRequest) (*ItemResponse, error) {
	item, err := h.inventoryService.UpdateItem(ctx, req.Item)
	if err != nil {
		return nil, h.toStatus(err, "update item")
	}
	if item == nil {
		return nil, status.Errorf(codes.NotFound, "item %d not found", req.Item.ID)
	}
	return &ItemResponse{Item: *item}, nil
}

func (h *GRPCHandler) DeleteItem(ctx context.Context, req *DeleteItemRequest) (*DeleteItemResponse, error) {
	deleted, err := h.inventoryService.DeleteItem(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(err, "delete item")
	}
	if !deleted {
		return nil, status.Errorf(codes.NotFound, "item %d not found", req.ID)
	}
	return &DeleteItemResponse{}, nil
}

func (h *GRPCHandler) toStatus(err error, op string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	default:
		h.logger.Error("grpc call failed", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, msgInternal)
	}
}

// UnaryInterceptor logs every call and converts panics into codes.Internal.
func UnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("panic in grpc handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", p),
					zap.ByteString("stack", debug.Stack()))
				resp, err = nil, status.Error(codes.Internal, msgInternal)
			}
			logger.Info("grpc request",
				zap.String("method", info.FullMethod),
				zap.String("code", status.Code(err).String()),
				zap.Duration("latency", time.Since(start)))
		}()
		return handler(ctx, req)
	}
}

func unaryHandler[Req, Resp any](method string, call func(InventoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + grpcServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListItems", Handler: unaryHandler("ListItems", InventoryServer.ListItems)},
		{MethodName: "GetItem", Handler: unaryHandler("GetItem", InventoryServer.GetItem)},
		{MethodName: "CreateItem", Handler: unaryHandler("CreateItem", InventoryServer.CreateItem)},
		{MethodName: "UpdateItem", Handler: unaryHandler("UpdateItem", InventoryServer.UpdateItem)},
		{MethodName: "DeleteItem", Handler: unaryHandler("DeleteItem", InventoryServer.DeleteItem)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory.json",
}

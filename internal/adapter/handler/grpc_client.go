package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

// GRPCClient calls the inventory gRPC API over the JSON codec.
type GRPCClient struct {
	conn grpc.ClientConnInterface
}

func NewGRPCClient(conn grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{conn: conn}
}

func (c *GRPCClient) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	out := new(ListItemsResponse)
	if err := c.invoke(ctx, "ListItems", &ListItemsRequest{}, out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *GRPCClient) GetItem(ctx context.Context, id int64) (domain.InventoryItem, error) {
	out := new(ItemResponse)
	if err := c.invoke(ctx, "GetItem", &GetItemRequest{ID: id}, out); err != nil {
		return domain.InventoryItem{}, err
	}
	return out.Item, nil
}

func (c *GRPCClient) CreateItem(ctx context.Context, item domain.InventoryItem, idempotencyKey string) (domain.InventoryItem, error) {
	out := new(ItemResponse)
	if err := c.invoke(ctx, "CreateItem", &CreateItemRequest{Item: item, IdempotencyKey: idempotencyKey}, out); err != nil {
		return domain.InventoryItem{}, err
	}
	return out.Item, nil
}

func (c *GRPCClient) UpdateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	out := new(ItemResponse)
	if err := c.invoke(ctx, "UpdateItem", &UpdateItemRequest{Item: item}, out); err != nil {
		return domain.InventoryItem{}, err
	}
	return out.Item, nil
}

func (c *GRPCClient) DeleteItem(ctx context.Context, id int64) error {
	return c.invoke(ctx, "DeleteItem", &DeleteItemRequest{ID: id}, new(DeleteItemResponse))
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, "/"+grpcServiceName+"/"+method, in, out, grpc.CallContentSubtype(jsonCodecName))
}

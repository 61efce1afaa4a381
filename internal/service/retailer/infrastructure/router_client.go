// internal/service/retailer/infrastructure/router_client.go
package infrastructure

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"stockmesh/internal/pkg/httpclient"
	"stockmesh/internal/service/retailer/domain/port"
)

// RouterOrderClient 通过路由服务的 HTTP 入口下单。
type RouterOrderClient struct {
	client  *httpclient.Client
	baseURL string
}

func NewRouterOrderClient(client *httpclient.Client, baseURL string) *RouterOrderClient {
	return &RouterOrderClient{client: client, baseURL: baseURL}
}

type createOrderRequest struct {
	OriginID    string `json:"originId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

func (c *RouterOrderClient) PlaceOrder(ctx context.Context, originID string, productID int64, productName string, quantity int) (*port.PlacedOrder, error) {
	req := createOrderRequest{
		OriginID:    originID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
	}

	var placed port.PlacedOrder
	status, err := c.client.PostJSON(ctx, c.baseURL+"/orders", req, &placed)
	if err != nil {
		return nil, errors.Wrap(err, "call order router")
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("order router rejected request: status %d", status)
	}
	return &placed, nil
}

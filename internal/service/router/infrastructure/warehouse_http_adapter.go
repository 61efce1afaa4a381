// internal/service/router/infrastructure/warehouse_http_adapter.go
package infrastructure

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"stockmesh/internal/pkg/httpclient"
	"stockmesh/internal/service/router/domain"
	"stockmesh/internal/service/router/domain/port"
)

// WarehousePurchaseClient 通过节点的 HTTP 接口做同步探测。
// 探测是只读的：成功只说明"此刻看起来能成交"，真正的扣减发生在
// 节点消费 order.routed.<nodeId> 的时候。
type WarehousePurchaseClient struct {
	client *httpclient.Client
}

func NewWarehousePurchaseClient(client *httpclient.Client) *WarehousePurchaseClient {
	return &WarehousePurchaseClient{client: client}
}

type purchaseCheckRequest struct {
	ProductID      int64  `json:"productId"`
	Quantity       int    `json:"quantity"`
	CounterpartyID string `json:"counterpartyId"`
}

func (c *WarehousePurchaseClient) Check(ctx context.Context, node port.Node, productID int64, quantity int, counterpartyID string) (*port.ProbeResult, error) {
	req := purchaseCheckRequest{
		ProductID:      productID,
		Quantity:       quantity,
		CounterpartyID: counterpartyID,
	}

	var result port.ProbeResult
	status, err := c.client.PostJSON(ctx, node.BaseURL+"/purchase/check", req, &result)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrNodeUnavailable, "node %s: %v", node.ID, err)
	}

	switch {
	case status >= 200 && status < 300:
		return &result, nil
	case status == http.StatusNotFound, status == http.StatusConflict:
		// 未备货或库存不足，节点本身是健康的
		return nil, errors.Wrapf(domain.ErrInsufficientStock, "node %s rejected probe (status %d)", node.ID, status)
	default:
		return nil, errors.Wrapf(domain.ErrNodeUnavailable, "node %s returned status %d", node.ID, status)
	}
}

// StaticTopology 从配置加载的静态节点清单，顺序即兜底探测顺序。
type StaticTopology struct {
	nodes []port.Node
}

func NewStaticTopology(nodes []port.Node) *StaticTopology {
	return &StaticTopology{nodes: nodes}
}

func (t *StaticTopology) Nodes() []port.Node {
	return t.nodes
}

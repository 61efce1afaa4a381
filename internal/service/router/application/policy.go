// internal/service/router/application/policy.go
package application

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog/log"

	"stockmesh/internal/service/router/domain"
)

// SelectionPolicy 是一个可选的、由运维方配置的候选过滤器：
// 一个对每个候选求值的 CEL 表达式，返回 false 的候选在排序前被剔除。
// 它只做过滤，确定性排序（库存降序、nodeId 升序）永远不受策略影响。
type SelectionPolicy struct {
	program cel.Program
}

// NewSelectionPolicy 编译策略表达式。空表达式返回 nil，表示放行全部候选。
// 可用变量: node_id(string), stock(int), price(double), quantity(int)。
func NewSelectionPolicy(expr string) (*SelectionPolicy, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("node_id", cel.StringType),
		cel.Variable("stock", cel.IntType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("quantity", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create policy env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile selection policy: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("selection policy must evaluate to bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build policy program: %w", err)
	}
	return &SelectionPolicy{program: program}, nil
}

// Admit 对单个候选求值。求值出错时放行候选并留痕：
// 策略是优化手段，不允许因为表达式问题把可用节点全部挡掉。
func (p *SelectionPolicy) Admit(entry domain.CachedStockEntry, quantity int) bool {
	if p == nil {
		return true
	}
	out, _, err := p.program.Eval(map[string]interface{}{
		"node_id":  entry.NodeID,
		"stock":    int64(entry.StockOnHand),
		"price":    entry.Price,
		"quantity": int64(quantity),
	})
	if err != nil {
		log.Error().Err(err).Str("node", entry.NodeID).Msg("selection policy evaluation failed, admitting candidate")
		return true
	}
	admitted, ok := out.Value().(bool)
	if !ok {
		return true
	}
	return admitted
}

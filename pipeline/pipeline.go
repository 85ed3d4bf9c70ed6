// Package pipeline 把推荐后处理逻辑拆成可组合的 Node 链。
// 服务层对每条请求的候选集依次执行 Node（过滤 → 重排 → 后处理）。
package pipeline

import (
	"context"

	"github.com/rushteam/recstudio/core"
)

// Pipeline 是核心抽象：把推荐逻辑拆成可组合的 Node 链。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

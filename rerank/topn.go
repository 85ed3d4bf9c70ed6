// Package rerank 提供候选集的重排与截断节点。
package rerank

import (
	"context"

	"github.com/rushteam/recstudio/core"
	"github.com/rushteam/recstudio/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于把候选集截取到请求的数量。
// 召回源已按分数降序产出，此节点只截断、不重排。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &filter.FilterNode{...},  // 过滤
//	        &rerank.TopNNode{N: 10},  // 截取 Top 10
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量（Top N）
	// 如果 N <= 0，则优先取 rctx.N；两者都无效时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.N
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}

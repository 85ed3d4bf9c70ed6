package filter

import (
	"context"

	"github.com/rushteam/recstudio/core"
)

// RatedSource 提供用户已评分物品的查询。
// *recall.SVDRecall 实现此接口（依据拟合期的原始观测掩码）。
type RatedSource interface {
	Rated(userID string) map[string]float64
}

// RatedItemsFilter 过滤掉请求用户已经评过分的物品。
// 协同过滤召回自身已剔除已评分物品；此过滤器用于内容/混合召回的
// 结果同样不把用户看过的东西再推一遍的场景。
type RatedItemsFilter struct {
	Source RatedSource
}

func NewRatedItemsFilter(source RatedSource) *RatedItemsFilter {
	return &RatedItemsFilter{Source: source}
}

func (f *RatedItemsFilter) Name() string {
	return "filter.rated"
}

func (f *RatedItemsFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Source == nil || rctx == nil || rctx.UserID == "" || item == nil {
		return false, nil
	}
	_, rated := f.Source.Rated(rctx.UserID)[item.ID]
	return rated, nil
}

var _ Filter = (*RatedItemsFilter)(nil)

package recall

import (
	"context"

	"github.com/rushteam/recstudio/core"
)

// Source 表示一个可复用的召回源（内容/协同过滤/混合）。
// 拟合后的模型是只读的，同一个 Source 可被多个调用方并发查询；
// 重新拟合必须构造新实例，不做原地更新。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// DefaultTopN 是未显式指定 n 时的推荐数量。
const DefaultTopN = 10

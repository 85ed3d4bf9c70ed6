package recall

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/recstudio/core"
)

// HybridRecall 组合内容召回与协同过滤召回。
//
// 合并策略（刻意保持简单，不做加权混分）：
//  1. 两路各取 n 个候选（并发 fan-out；拟合后模型只读，并发安全）
//  2. 内容结果在前、协同过滤结果在后拼接
//  3. 按物品 ID 去重，保留首次出现
//  4. 截断到 n
//
// 任一路 soft miss（空结果）时，另一路单独填充结果，不视为错误。
type HybridRecall struct {
	Content *ContentRecall
	Collab  *SVDRecall

	// TopN 是 n <= 0 时的默认返回数量
	TopN int
}

func (r *HybridRecall) Name() string {
	return "recall.hybrid"
}

// Recommend 为 userID 生成混合推荐，itemTitle 供内容召回路使用。
func (r *HybridRecall) Recommend(ctx context.Context, userID, itemTitle string, n int) ([]*core.Item, error) {
	if r.Content == nil || r.Collab == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "hybrid: both sub-models are required")
	}
	if n <= 0 {
		n = r.TopN
	}
	if n <= 0 {
		n = DefaultTopN
	}

	var (
		contentItems []*core.Item
		collabItems  []*core.Item
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		items, err := r.Content.Recommend(egCtx, itemTitle, n)
		if err != nil {
			return err
		}
		contentItems = items
		return nil
	})
	eg.Go(func() error {
		items, err := r.Collab.Recommend(egCtx, userID, n)
		if err != nil {
			return err
		}
		collabItems = items
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 内容优先拼接 + 首见去重；重复项的 labels 合并进首个出现的物品
	seen := make(map[string]*core.Item, len(contentItems)+len(collabItems))
	out := make([]*core.Item, 0, n)
	for _, it := range append(contentItems, collabItems...) {
		if it == nil {
			continue
		}
		if first, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				first.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Recall 实现 Source 接口：从 RecommendContext 取用户 ID、标题与 n。
func (r *HybridRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	return r.Recommend(ctx, rctx.UserID, rctx.ItemTitle, rctx.N)
}

var _ Source = (*HybridRecall)(nil)

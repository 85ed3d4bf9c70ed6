package core

import "github.com/rushteam/recstudio/pkg/utils"

// RecommendContext 承载一次推荐请求的输入信息，贯穿召回与后处理透传。
// 三类模型按需取用：内容模型读 ItemTitle，协同过滤模型读 UserID，
// 混合模型两者都读。
type RecommendContext struct {
	UserID    string // 原始用户标识（string，兼容任意 ID 格式）
	ItemTitle string // 内容召回的查询物品标题

	// N 本次请求期望的推荐数量；<= 0 时由调用方决定默认值
	N int

	// Labels 是请求级标签，可驱动后处理行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数（规则过滤表达式可引用）
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

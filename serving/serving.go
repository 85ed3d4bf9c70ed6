// Package serving 提供模型的批量预测封装。
//
// Wrapper 把一个已拟合（或从工件恢复）的模型包成按条服务的预测接口：
// 每条请求独立校验、独立出错，单条失败不会中断整个批次。
// 推荐结果统一格式化为 (id, title) 对，标题解析失败时降级为仅 id。
package serving

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/recstudio/core"
	"github.com/rushteam/recstudio/pipeline"
	"github.com/rushteam/recstudio/recall"
)

// 模型类型常量，与项目配置的 model_type 一致。
const (
	ModelContent       = "content"
	ModelCollaborative = "collaborative"
	ModelHybrid        = "hybrid"
)

// Request 是一条预测请求。
type Request struct {
	UserID    string `json:"user_id,omitempty"`
	ItemTitle string `json:"item_title,omitempty"`
	// N 返回数量，<= 0 时取默认值
	N int `json:"n,omitempty"`
}

// Recommendation 是格式化后的单条推荐。
type Recommendation struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	// Match 标记标题解析结果："title" 表示解析成功，"id" 表示降级为仅 id
	Match string `json:"match"`
}

// Result 是一条请求的预测结果。
// Error 非空时表示该条请求失败，Recommendations 为空；
// 请求合法但无可推荐内容时两者皆空。
type Result struct {
	InputUserID     string           `json:"input_user_id,omitempty"`
	InputItemTitle  string           `json:"input_item_title,omitempty"`
	ModelType       string           `json:"model_type"`
	Recommendations []Recommendation `json:"recommendations"`
	Error           string           `json:"error,omitempty"`
}

// Wrapper 把模型包装为批量预测服务。
// 按模型类型持有对应的子模型；Post 为可选的请求期后处理 pipeline。
type Wrapper struct {
	ModelType string

	Content *recall.ContentRecall
	Collab  *recall.SVDRecall

	// Post 在召回后、格式化前执行（过滤、截断等），nil 时跳过
	Post *pipeline.Pipeline

	// Logger 记录每条请求的降级与失败；零值为关闭状态
	Logger zerolog.Logger
}

// NewWrapper 按模型类型组装 Wrapper，校验所需的子模型齐备。
func NewWrapper(modelType string, content *recall.ContentRecall, collab *recall.SVDRecall) (*Wrapper, error) {
	switch modelType {
	case ModelContent:
		if content == nil {
			return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
				"serving: content model required")
		}
	case ModelCollaborative:
		if collab == nil {
			return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
				"serving: collaborative model required")
		}
	case ModelHybrid:
		if content == nil || collab == nil {
			return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
				"serving: hybrid requires both content and collaborative models")
		}
	default:
		return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
			fmt.Sprintf("serving: unknown model type %q", modelType))
	}
	return &Wrapper{ModelType: modelType, Content: content, Collab: collab}, nil
}

// Restore 从工件存储恢复模型并组装 Wrapper。
// 只加载模型类型需要的工件。
func Restore(ctx context.Context, modelType string, artifacts *recall.ArtifactStore) (*Wrapper, error) {
	var (
		content *recall.ContentRecall
		collab  *recall.SVDRecall
		err     error
	)
	switch modelType {
	case ModelContent, ModelHybrid:
		content, err = artifacts.LoadContent(ctx)
		if err != nil {
			return nil, err
		}
	}
	switch modelType {
	case ModelCollaborative, ModelHybrid:
		collab, err = artifacts.LoadCollaborative(ctx)
		if err != nil {
			return nil, err
		}
	}
	return NewWrapper(modelType, content, collab)
}

// Predict 逐条处理请求并返回等长的结果切片。
// 单条请求的校验失败或模型错误只写入该条的 Error，不影响其余请求。
func (w *Wrapper) Predict(ctx context.Context, reqs []Request) []Result {
	out := make([]Result, len(reqs))
	for i, req := range reqs {
		out[i] = w.predictOne(ctx, req)
	}
	return out
}

func (w *Wrapper) predictOne(ctx context.Context, req Request) Result {
	res := Result{
		InputUserID:    req.UserID,
		InputItemTitle: req.ItemTitle,
		ModelType:      w.ModelType,
	}

	if err := w.validate(req); err != nil {
		res.Error = err.Error()
		w.Logger.Warn().Str("model_type", w.ModelType).Err(err).Msg("serving: invalid request")
		return res
	}

	items, err := w.recommend(ctx, req)
	if err != nil {
		res.Error = err.Error()
		w.Logger.Error().Str("model_type", w.ModelType).Err(err).Msg("serving: recommend failed")
		return res
	}

	if w.Post != nil && len(items) > 0 {
		rctx := &core.RecommendContext{
			UserID:    req.UserID,
			ItemTitle: req.ItemTitle,
			N:         req.N,
		}
		items, err = w.Post.Run(ctx, rctx, items)
		if err != nil {
			res.Error = err.Error()
			w.Logger.Error().Str("model_type", w.ModelType).Err(err).Msg("serving: post pipeline failed")
			return res
		}
	}

	res.Recommendations = w.format(items)
	return res
}

// validate 按模型类型检查必填字段。
func (w *Wrapper) validate(req Request) error {
	switch w.ModelType {
	case ModelContent:
		if req.ItemTitle == "" {
			return core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
				"serving: item_title is required for content model")
		}
	case ModelCollaborative:
		if req.UserID == "" {
			return core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
				"serving: user_id is required for collaborative model")
		}
	case ModelHybrid:
		if req.UserID == "" || req.ItemTitle == "" {
			return core.NewDomainError(core.ModuleServing, core.ErrorCodeInvalidInput,
				"serving: user_id and item_title are required for hybrid model")
		}
	}
	return nil
}

func (w *Wrapper) recommend(ctx context.Context, req Request) ([]*core.Item, error) {
	switch w.ModelType {
	case ModelContent:
		return w.Content.Recommend(ctx, req.ItemTitle, req.N)
	case ModelCollaborative:
		return w.Collab.Recommend(ctx, req.UserID, req.N)
	case ModelHybrid:
		hybrid := &recall.HybridRecall{Content: w.Content, Collab: w.Collab}
		return hybrid.Recommend(ctx, req.UserID, req.ItemTitle, req.N)
	default:
		return nil, core.NewDomainError(core.ModuleServing, core.ErrorCodeNotSupported,
			fmt.Sprintf("serving: unknown model type %q", w.ModelType))
	}
}

// format 把候选物品格式化为 (id, title) 对，保持召回顺序。
// 标题优先取物品自带的 Title，其次查内容模型的目录；
// 都拿不到时降级为仅 id 并打上 match="id"。
func (w *Wrapper) format(items []*core.Item) []Recommendation {
	out := make([]Recommendation, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		rec := Recommendation{ID: it.ID, Title: it.Title, Match: "title"}
		if rec.Title == "" && w.Content != nil {
			if title, ok := w.Content.TitleOf(it.ID); ok {
				rec.Title = title
			}
		}
		if rec.Title == "" {
			rec.Match = "id"
			w.Logger.Debug().Str("item_id", it.ID).Msg("serving: no title for item, id-only result")
		}
		out = append(out, rec)
	}
	return out
}

package filter

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/recstudio/core"
)

// RuleFilter 是基于 CEL (Common Expression Language) 的规则过滤器。
// 表达式描述“保留条件”（类似 where 子句）：求值为 true 的物品保留，
// false 的物品被过滤。表达式在构造时编译一次，之后可被并发复用。
//
// 可引用的变量：
//   - item:  {id, title, score, labels}，如 item.score > 0.5
//   - label: 顶层 label 访问器，如 label.recall_source == "content"
//   - rctx:  {user_id, item_title, params}
//
// 示例（项目配置中的 serving 规则）：
//   - `item.score > 0.1`               → 去掉相似度过低的候选
//   - `label.recall_source != "svd"`   → 只保留内容召回的结果
type RuleFilter struct {
	expr string
	prg  cel.Program
}

// NewRuleFilter 编译表达式并构造过滤器。
// 编译错误在此处暴露，而不是等到每条请求求值时才发现。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("rule: cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule: compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule: program %q: %w", expr, err)
	}

	return &RuleFilter{expr: expr, prg: prg}, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

// ShouldFilter 对物品求值保留条件。求值出错时返回 error，
// FilterNode 会跳过此过滤器并保留物品（可用性优先）。
func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	out, _, err := f.prg.Eval(f.buildInput(rctx, item))
	if err != nil {
		return false, fmt.Errorf("rule: eval %q: %w", f.expr, err)
	}
	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule: expression %q must return boolean, got %T", f.expr, out.Value())
	}
	return !keep, nil
}

// buildInput 构建 CEL 求值的输入数据。
// label 作为顶层访问器直接返回 value；不存在的 key 求值为 null，
// 表达式应使用 label.key != null 检查存在性。
func (f *RuleFilter) buildInput(rctx *core.RecommendContext, item *core.Item) map[string]interface{} {
	labelAccessor := make(map[string]interface{}, len(item.Labels))
	labels := make(map[string]interface{}, len(item.Labels))
	for k, v := range item.Labels {
		labelAccessor[k] = v.Value
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
	}

	itemInput := map[string]interface{}{
		"id":     item.ID,
		"title":  item.Title,
		"score":  item.Score,
		"labels": labels,
	}

	rctxInput := map[string]interface{}{}
	if rctx != nil {
		rctxInput = map[string]interface{}{
			"user_id":    rctx.UserID,
			"item_title": rctx.ItemTitle,
			"params":     rctx.Params,
		}
	}

	return map[string]interface{}{
		"item":  itemInput,
		"label": labelAccessor,
		"rctx":  rctxInput,
	}
}

var _ Filter = (*RuleFilter)(nil)

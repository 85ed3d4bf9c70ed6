// Package builders 在 init 中注册内置 Node 的构建器。
// 配置驱动的入口只需匿名 import 本包即可使用 filter / rerank.topn 等类型。
package builders

import (
	"fmt"

	"github.com/rushteam/recstudio/config"
	"github.com/rushteam/recstudio/filter"
	"github.com/rushteam/recstudio/pipeline"
	"github.com/rushteam/recstudio/pkg/conv"
	"github.com/rushteam/recstudio/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("filter.rule", BuildRuleFilterNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildFilterNode 构建组合过滤节点。
// config.filters 为过滤器列表，目前支持 type: rule（expr 为保留条件表达式）。
func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "rule":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter: expr not found")
			}
			rf, err := filter.NewRuleFilter(expr)
			if err != nil {
				return nil, err
			}
			filters = append(filters, rf)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

// BuildRuleFilterNode 构建单规则过滤节点，等价于只含一个 rule 过滤器的 FilterNode。
func BuildRuleFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("rule filter: expr not found")
	}
	rf, err := filter.NewRuleFilter(expr)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{rf}}, nil
}

// BuildTopNNode 构建 Top-N 截断节点。n 为 0 时在请求期回退到 rctx.N。
func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

// Package recstudio 是一个推荐模型工作台（Recommender Studio）。
//
// 设计要点：
// - 三种模型: 内容相似（TF-IDF 余弦）、协同过滤（截断 SVD）、混合召回
// - 可持久化: 拟合产出的模型工件可存入 KV 存储，服务进程按需恢复
// - 按条服务: 批量预测逐条校验、逐条出错，单条失败不影响批次
// - 可后处理: 召回结果经 Node 链（过滤 → 重排）再格式化输出
package recstudio

import "github.com/rushteam/recstudio/pipeline"

// 轻量 facade：便于用户直接 import "recstudio" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

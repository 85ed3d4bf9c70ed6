// Package config 提供项目级配置与配置驱动的 Node 注册表。
//
// ProjectConfig 描述一个推荐项目如何训练与服务：模型类型、两份数据的
// schema 映射、SVD 降维秩、默认返回数量，以及服务期的后处理 pipeline。
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/recstudio/core"
	"github.com/rushteam/recstudio/pipeline"
)

// ProjectConfig 是一个推荐项目的完整配置。
type ProjectConfig struct {
	Name      string `yaml:"name" json:"name"`
	ModelType string `yaml:"model_type" json:"model_type"` // content / collaborative / hybrid

	// ContentSchema 物品目录的列映射（content / hybrid 模型必填）
	ContentSchema core.SchemaMap `yaml:"content_schema" json:"content_schema"`
	// InteractionSchema 评分数据的列映射（collaborative / hybrid 模型必填）
	InteractionSchema core.SchemaMap `yaml:"interaction_schema" json:"interaction_schema"`

	// Rank SVD 降维保留的奇异值数量，0 取默认值
	Rank int `yaml:"rank" json:"rank"`
	// TopN 默认返回数量，0 取默认值
	TopN int `yaml:"top_n" json:"top_n"`

	// Serving 服务期后处理 pipeline（可选）
	Serving struct {
		Nodes []pipeline.NodeConfig `yaml:"nodes" json:"nodes"`
	} `yaml:"serving" json:"serving"`
}

// LoadProjectFromYAML 从 YAML 文件加载项目配置。
func LoadProjectFromYAML(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return &cfg, nil
}

// LoadProjectFromJSON 从 JSON 文件加载项目配置。
func LoadProjectFromJSON(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	return &cfg, nil
}

// Validate 按模型类型校验配置完整性。
func (c *ProjectConfig) Validate() error {
	switch c.ModelType {
	case "content":
		return c.ContentSchema.ValidateContent()
	case "collaborative":
		return c.InteractionSchema.ValidateInteractions()
	case "hybrid":
		if err := c.ContentSchema.ValidateContent(); err != nil {
			return err
		}
		return c.InteractionSchema.ValidateInteractions()
	default:
		return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput,
			fmt.Sprintf("unknown model type: %q", c.ModelType))
	}
}

// BuildServingPipeline 根据 serving 配置构建后处理 Pipeline。
// 无节点配置时返回 (nil, nil)，表示不做后处理。
func (c *ProjectConfig) BuildServingPipeline(factory *pipeline.NodeFactory) (*pipeline.Pipeline, error) {
	if len(c.Serving.Nodes) == 0 {
		return nil, nil
	}

	var cfg pipeline.Config
	cfg.Pipeline.Name = c.Name
	cfg.Pipeline.Nodes = c.Serving.Nodes
	return cfg.BuildPipeline(factory)
}

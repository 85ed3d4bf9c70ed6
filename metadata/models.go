// Package metadata 维护推荐项目的关系型元数据：
// 项目、上传的文件、以及文件的 schema 映射。
//
// 模型工件本身不存在这里（见 recall.ArtifactStore）；这里记录的是
// “哪个项目、用了哪些文件、列名怎么映射、训练出了哪个模型版本”。
package metadata

import "github.com/rushteam/recstudio/core"

// ProjectStatus 是项目的生命周期状态。
type ProjectStatus string

const (
	StatusPending    ProjectStatus = "pending"    // 已创建，等待数据/训练
	StatusProcessing ProjectStatus = "processing" // 训练中
	StatusReady      ProjectStatus = "ready"      // 工件可用，可服务
	StatusError      ProjectStatus = "error"      // 训练失败
)

// ModelType 是项目选择的模型类型。
type ModelType string

const (
	ModelContent       ModelType = "content"
	ModelCollaborative ModelType = "collaborative"
	ModelHybrid        ModelType = "hybrid"
)

// FileType 是上传文件的用途。
type FileType string

const (
	FileContent     FileType = "content"     // 物品目录（内容特征）
	FileInteraction FileType = "interaction" // 用户-物品评分
)

// RecommenderProject 是一个推荐项目：一份目录快照 + 一种模型类型。
type RecommenderProject struct {
	ID          uint          `gorm:"primaryKey"`
	ProjectName string        `gorm:"index"`
	Status      ProjectStatus `gorm:"default:pending"`
	ModelType   ModelType

	// 训练完成后登记的模型名与版本（工件 key 前缀由此推导）
	ModelName    string
	ModelVersion int

	// 一个项目可以有多个文件（如一份 content、一份 interaction）
	UploadedFiles []UploadedFile `gorm:"foreignKey:ProjectID"`
}

// UploadedFile 是用户上传的一份 CSV 及其 schema 映射。
type UploadedFile struct {
	ID               uint `gorm:"primaryKey"`
	OriginalFilename string
	StoragePath      string `gorm:"uniqueIndex"`
	FileType         FileType

	ProjectID uint `gorm:"index"`

	SchemaMappings []SchemaMapping `gorm:"foreignKey:FileID"`
}

// SchemaMapping 是一条逻辑角色到用户 CSV 列名的映射。
// AppSchemaKey 取值：user_id / item_id / rating / item_title / feature_col
// （feature_col 可出现多条，顺序即特征列顺序）。
type SchemaMapping struct {
	ID uint `gorm:"primaryKey"`

	AppSchemaKey  string `gorm:"index"`
	UserCSVColumn string

	FileID uint `gorm:"index"`
}

// 映射角色常量，与 core.SchemaMap 字段一一对应。
const (
	SchemaKeyUserID     = "user_id"
	SchemaKeyItemID     = "item_id"
	SchemaKeyRating     = "rating"
	SchemaKeyItemTitle  = "item_title"
	SchemaKeyFeatureCol = "feature_col"
)

// ToSchemaMap 把一个文件的映射行折叠为 core.SchemaMap。
// feature_col 按映射行的插入顺序累积。
func ToSchemaMap(mappings []SchemaMapping) core.SchemaMap {
	var s core.SchemaMap
	for _, m := range mappings {
		switch m.AppSchemaKey {
		case SchemaKeyUserID:
			s.UserID = m.UserCSVColumn
		case SchemaKeyItemID:
			s.ItemID = m.UserCSVColumn
		case SchemaKeyRating:
			s.Rating = m.UserCSVColumn
		case SchemaKeyItemTitle:
			s.ItemTitle = m.UserCSVColumn
		case SchemaKeyFeatureCol:
			s.FeatureCols = append(s.FeatureCols, m.UserCSVColumn)
		}
	}
	return s
}

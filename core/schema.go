package core

// SchemaMap 是逻辑角色到用户 CSV 列名的映射。
// 用户上传的目录可以使用任意列名，调用方通过 SchemaMap 声明哪一列是
// 用户 ID、物品 ID、评分、标题，以及哪些列构成内容特征集。
//
// 角色 key 与 metadata.SchemaMapping 中的 app_schema_key 一一对应。
type SchemaMap struct {
	UserID      string   `yaml:"user_id" json:"user_id"`
	ItemID      string   `yaml:"item_id" json:"item_id"`
	Rating      string   `yaml:"rating" json:"rating"`
	ItemTitle   string   `yaml:"item_title" json:"item_title"`
	FeatureCols []string `yaml:"feature_cols" json:"feature_cols"`
}

// ValidateContent 校验内容模型所需角色是否齐备。
// 特征列为空会使相似度失去意义，因此在拟合期直接报错，
// 而不是留给调用方一个悄悄失效的模型。
func (s SchemaMap) ValidateContent() error {
	if s.ItemID == "" {
		return NewDomainError(ModuleDataset, ErrorCodeInvalidInput, "schema: item_id column is required")
	}
	if s.ItemTitle == "" {
		return NewDomainError(ModuleDataset, ErrorCodeInvalidInput, "schema: item_title column is required")
	}
	if len(s.FeatureCols) == 0 {
		return NewDomainError(ModuleDataset, ErrorCodeInvalidInput, "schema: feature_cols must not be empty")
	}
	return nil
}

// ValidateInteractions 校验协同过滤模型所需角色是否齐备。
func (s SchemaMap) ValidateInteractions() error {
	if s.UserID == "" {
		return NewDomainError(ModuleDataset, ErrorCodeInvalidInput, "schema: user_id column is required")
	}
	if s.ItemID == "" {
		return NewDomainError(ModuleDataset, ErrorCodeInvalidInput, "schema: item_id column is required")
	}
	if s.Rating == "" {
		return NewDomainError(ModuleDataset, ErrorCodeInvalidInput, "schema: rating column is required")
	}
	return nil
}

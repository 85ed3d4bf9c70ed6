package metadata

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rushteam/recstudio/core"
)

// Store 是基于 GORM 的元数据存储。
// 打开时自动迁移全部表结构。
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open 打开（或创建）sqlite 数据库并迁移表结构。
// dsn 如 "recstudio.db"，测试中可用 "file::memory:?cache=shared"。
func Open(dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("metadata: open %s: %w", dsn, err)
	}
	return NewStore(db, logger)
}

// NewStore 在已有的 *gorm.DB 上构建 Store 并迁移表结构。
func NewStore(db *gorm.DB, logger zerolog.Logger) (*Store, error) {
	if err := db.AutoMigrate(
		&RecommenderProject{},
		&UploadedFile{},
		&SchemaMapping{},
	); err != nil {
		return nil, fmt.Errorf("metadata: migrate: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// DB 暴露底层连接，供上层做事务或自定义查询。
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateProject 创建项目，初始状态为 pending。
func (s *Store) CreateProject(name string, modelType ModelType) (*RecommenderProject, error) {
	p := &RecommenderProject{
		ProjectName: name,
		Status:      StatusPending,
		ModelType:   modelType,
	}
	if err := s.db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("metadata: create project: %w", err)
	}
	s.logger.Info().Uint("project_id", p.ID).Str("model_type", string(modelType)).
		Msg("project created")
	return p, nil
}

// GetProject 按 ID 取项目，预加载文件与 schema 映射。
// 不存在时返回 NOT_FOUND 领域错误。
func (s *Store) GetProject(id uint) (*RecommenderProject, error) {
	var p RecommenderProject
	err := s.db.Preload("UploadedFiles.SchemaMappings").
		Preload("UploadedFiles").
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.NewDomainError(core.ModuleMetadata, core.ErrorCodeNotFound,
			fmt.Sprintf("project %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: get project %d: %w", id, err)
	}
	return &p, nil
}

// ListProjects 按创建顺序列出全部项目（不预加载文件）。
func (s *Store) ListProjects() ([]RecommenderProject, error) {
	var out []RecommenderProject
	if err := s.db.Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("metadata: list projects: %w", err)
	}
	return out, nil
}

// UpdateStatus 更新项目状态。
func (s *Store) UpdateStatus(id uint, status ProjectStatus) error {
	res := s.db.Model(&RecommenderProject{}).Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("metadata: update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.NewDomainError(core.ModuleMetadata, core.ErrorCodeNotFound,
			fmt.Sprintf("project %d not found", id))
	}
	return nil
}

// RecordModel 登记训练产出的模型名，并把版本号加一、状态置为 ready。
func (s *Store) RecordModel(id uint, modelName string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var p RecommenderProject
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.NewDomainError(core.ModuleMetadata, core.ErrorCodeNotFound,
					fmt.Sprintf("project %d not found", id))
			}
			return fmt.Errorf("metadata: record model: %w", err)
		}
		p.ModelName = modelName
		p.ModelVersion++
		p.Status = StatusReady
		if err := tx.Save(&p).Error; err != nil {
			return fmt.Errorf("metadata: record model: %w", err)
		}
		return nil
	})
}

// AddFile 登记一份上传文件及其 schema 映射。
// featureCols 的顺序会被保留为特征列顺序。
func (s *Store) AddFile(projectID uint, filename, storagePath string, fileType FileType, schema core.SchemaMap) (*UploadedFile, error) {
	f := &UploadedFile{
		OriginalFilename: filename,
		StoragePath:      storagePath,
		FileType:         fileType,
		ProjectID:        projectID,
		SchemaMappings:   schemaToMappings(schema),
	}
	if err := s.db.Create(f).Error; err != nil {
		return nil, fmt.Errorf("metadata: add file: %w", err)
	}
	s.logger.Info().Uint("project_id", projectID).Str("file", filename).
		Str("file_type", string(fileType)).Msg("file registered")
	return f, nil
}

// SchemaMapForFile 取某文件的 schema 映射并折叠为 core.SchemaMap。
func (s *Store) SchemaMapForFile(fileID uint) (core.SchemaMap, error) {
	var mappings []SchemaMapping
	err := s.db.Where("file_id = ?", fileID).Order("id").Find(&mappings).Error
	if err != nil {
		return core.SchemaMap{}, fmt.Errorf("metadata: schema for file %d: %w", fileID, err)
	}
	if len(mappings) == 0 {
		return core.SchemaMap{}, core.NewDomainError(core.ModuleMetadata, core.ErrorCodeNotFound,
			fmt.Sprintf("no schema mappings for file %d", fileID))
	}
	return ToSchemaMap(mappings), nil
}

// FileOfType 在项目中找指定用途的文件（如训练时取 interaction 文件）。
func (s *Store) FileOfType(projectID uint, fileType FileType) (*UploadedFile, error) {
	var f UploadedFile
	err := s.db.Preload("SchemaMappings").
		Where("project_id = ? AND file_type = ?", projectID, fileType).
		Order("id").First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.NewDomainError(core.ModuleMetadata, core.ErrorCodeNotFound,
			fmt.Sprintf("project %d has no %s file", projectID, fileType))
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: file of type %s: %w", fileType, err)
	}
	return &f, nil
}

func schemaToMappings(schema core.SchemaMap) []SchemaMapping {
	var out []SchemaMapping
	add := func(key, col string) {
		if col != "" {
			out = append(out, SchemaMapping{AppSchemaKey: key, UserCSVColumn: col})
		}
	}
	add(SchemaKeyUserID, schema.UserID)
	add(SchemaKeyItemID, schema.ItemID)
	add(SchemaKeyRating, schema.Rating)
	add(SchemaKeyItemTitle, schema.ItemTitle)
	for _, c := range schema.FeatureCols {
		add(SchemaKeyFeatureCol, c)
	}
	return out
}

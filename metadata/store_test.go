package metadata

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/rushteam/recstudio/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("打开元数据库失败: %v", err)
	}
	return s
}

func TestProjectLifecycle(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject("movie-demo", ModelHybrid)
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}
	if p.Status != StatusPending {
		t.Errorf("新项目状态应为 pending，实际 %s", p.Status)
	}

	if err := s.UpdateStatus(p.ID, StatusProcessing); err != nil {
		t.Fatalf("更新状态失败: %v", err)
	}
	if err := s.RecordModel(p.ID, "movie-demo-hybrid"); err != nil {
		t.Fatalf("登记模型失败: %v", err)
	}

	got, err := s.GetProject(p.ID)
	if err != nil {
		t.Fatalf("取项目失败: %v", err)
	}
	if got.Status != StatusReady || got.ModelName != "movie-demo-hybrid" || got.ModelVersion != 1 {
		t.Errorf("登记后状态不完整: %+v", got)
	}

	// 再次登记版本号递增
	if err := s.RecordModel(p.ID, "movie-demo-hybrid"); err != nil {
		t.Fatalf("二次登记失败: %v", err)
	}
	got, _ = s.GetProject(p.ID)
	if got.ModelVersion != 2 {
		t.Errorf("版本号应递增到 2，实际 %d", got.ModelVersion)
	}
}

func TestProjectNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetProject(999); !core.IsNotFound(err) {
		t.Errorf("期望 NOT_FOUND，实际 %v", err)
	}
	if err := s.UpdateStatus(999, StatusReady); !core.IsNotFound(err) {
		t.Errorf("期望 NOT_FOUND，实际 %v", err)
	}
	if err := s.RecordModel(999, "x"); !core.IsNotFound(err) {
		t.Errorf("期望 NOT_FOUND，实际 %v", err)
	}
}

func TestListProjects(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.CreateProject("a", ModelContent); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if _, err := s.CreateProject("b", ModelCollaborative); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	list, err := s.ListProjects()
	if err != nil {
		t.Fatalf("列出项目失败: %v", err)
	}
	if len(list) != 2 || list[0].ProjectName != "a" || list[1].ProjectName != "b" {
		t.Errorf("列表顺序应按创建顺序: %+v", list)
	}
}

// schema 映射落库后可按文件折叠还原，特征列顺序保持。
func TestSchemaMappingRoundTrip(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject("movie-demo", ModelContent)
	if err != nil {
		t.Fatalf("创建项目失败: %v", err)
	}

	schema := core.SchemaMap{
		ItemID:      "movie_id",
		ItemTitle:   "name",
		FeatureCols: []string{"summary", "tags", "cast"},
	}
	f, err := s.AddFile(p.ID, "movies.csv", "/data/movies.csv", FileContent, schema)
	if err != nil {
		t.Fatalf("登记文件失败: %v", err)
	}

	got, err := s.SchemaMapForFile(f.ID)
	if err != nil {
		t.Fatalf("还原 schema 失败: %v", err)
	}
	if got.ItemID != "movie_id" || got.ItemTitle != "name" {
		t.Errorf("映射还原不完整: %+v", got)
	}
	if len(got.FeatureCols) != 3 || got.FeatureCols[0] != "summary" || got.FeatureCols[2] != "cast" {
		t.Errorf("特征列顺序应保持: %v", got.FeatureCols)
	}

	if _, err := s.SchemaMapForFile(999); !core.IsNotFound(err) {
		t.Errorf("无映射文件应报 NOT_FOUND，实际 %v", err)
	}
}

func TestFileOfType(t *testing.T) {
	s := openTestStore(t)

	p, _ := s.CreateProject("demo", ModelHybrid)
	contentSchema := core.SchemaMap{ItemID: "id", ItemTitle: "title", FeatureCols: []string{"desc"}}
	interactionSchema := core.SchemaMap{UserID: "uid", ItemID: "iid", Rating: "stars"}
	if _, err := s.AddFile(p.ID, "movies.csv", "/data/movies.csv", FileContent, contentSchema); err != nil {
		t.Fatalf("登记文件失败: %v", err)
	}
	if _, err := s.AddFile(p.ID, "ratings.csv", "/data/ratings.csv", FileInteraction, interactionSchema); err != nil {
		t.Fatalf("登记文件失败: %v", err)
	}

	f, err := s.FileOfType(p.ID, FileInteraction)
	if err != nil {
		t.Fatalf("查文件失败: %v", err)
	}
	if f.OriginalFilename != "ratings.csv" {
		t.Errorf("期望 ratings.csv，实际 %s", f.OriginalFilename)
	}
	got := ToSchemaMap(f.SchemaMappings)
	if got.Rating != "stars" {
		t.Errorf("预加载的映射应可折叠: %+v", got)
	}

	if _, err := s.FileOfType(999, FileContent); !core.IsNotFound(err) {
		t.Errorf("期望 NOT_FOUND，实际 %v", err)
	}
}

// 项目预加载带出文件与映射。
func TestGetProjectPreloads(t *testing.T) {
	s := openTestStore(t)

	p, _ := s.CreateProject("demo", ModelContent)
	schema := core.SchemaMap{ItemID: "id", ItemTitle: "title", FeatureCols: []string{"desc"}}
	if _, err := s.AddFile(p.ID, "movies.csv", "/data/movies.csv", FileContent, schema); err != nil {
		t.Fatalf("登记文件失败: %v", err)
	}

	got, err := s.GetProject(p.ID)
	if err != nil {
		t.Fatalf("取项目失败: %v", err)
	}
	if len(got.UploadedFiles) != 1 {
		t.Fatalf("应预加载 1 个文件，实际 %d", len(got.UploadedFiles))
	}
	if len(got.UploadedFiles[0].SchemaMappings) != 3 {
		t.Errorf("应预加载 3 条映射，实际 %d", len(got.UploadedFiles[0].SchemaMappings))
	}
}

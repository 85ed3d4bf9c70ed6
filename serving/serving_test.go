package serving

import (
	"context"
	"testing"

	"github.com/rushteam/recstudio/core"
	"github.com/rushteam/recstudio/dataset"
	"github.com/rushteam/recstudio/pipeline"
	"github.com/rushteam/recstudio/recall"
	"github.com/rushteam/recstudio/rerank"
	"github.com/rushteam/recstudio/store"
)

func fitModels(t *testing.T) (*recall.ContentRecall, *recall.SVDRecall) {
	t.Helper()

	content := &recall.ContentRecall{}
	err := content.Fit(
		dataset.NewTable(
			[]string{"id", "title", "desc"},
			[][]string{
				{"m1", "The Matrix", "hacker discovers simulated reality"},
				{"m2", "Inception", "thief infiltrates dreams to plant idea"},
				{"m3", "Heat", "detective hunts bank robbers"},
			},
		),
		core.SchemaMap{ItemID: "id", ItemTitle: "title", FeatureCols: []string{"desc"}},
	)
	if err != nil {
		t.Fatalf("拟合内容模型失败: %v", err)
	}

	collab := &recall.SVDRecall{Rank: 2}
	err = collab.Fit(
		dataset.NewTable(
			[]string{"uid", "iid", "stars"},
			[][]string{
				{"u1", "m1", "5"},
				{"u1", "m2", "4"},
				{"u2", "m2", "3"},
				{"u2", "m3", "5"},
			},
		),
		core.SchemaMap{UserID: "uid", ItemID: "iid", Rating: "stars"},
	)
	if err != nil {
		t.Fatalf("拟合协同模型失败: %v", err)
	}
	return content, collab
}

func TestNewWrapperValidation(t *testing.T) {
	content, collab := fitModels(t)

	tests := []struct {
		name      string
		modelType string
		content   *recall.ContentRecall
		collab    *recall.SVDRecall
		wantErr   bool
	}{
		{"content 合法", ModelContent, content, nil, false},
		{"content 缺模型", ModelContent, nil, collab, true},
		{"collaborative 合法", ModelCollaborative, nil, collab, false},
		{"collaborative 缺模型", ModelCollaborative, content, nil, true},
		{"hybrid 合法", ModelHybrid, content, collab, false},
		{"hybrid 缺一路", ModelHybrid, content, nil, true},
		{"未知类型", "magic", content, collab, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWrapper(tt.modelType, tt.content, tt.collab)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWrapper() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// 批量预测逐条独立：单条校验失败只写入该条的 Error。
func TestPredictBatchNeverAborts(t *testing.T) {
	content, collab := fitModels(t)
	w, err := NewWrapper(ModelHybrid, content, collab)
	if err != nil {
		t.Fatalf("NewWrapper 失败: %v", err)
	}

	results := w.Predict(context.Background(), []Request{
		{UserID: "u1", ItemTitle: "The Matrix", N: 2},
		{UserID: "u1"},          // 缺 item_title
		{ItemTitle: "Heat"},     // 缺 user_id
		{UserID: "u2", ItemTitle: "Inception", N: 2},
	})
	if len(results) != 4 {
		t.Fatalf("结果数应与请求数相等，实际 %d", len(results))
	}

	if results[0].Error != "" || len(results[0].Recommendations) == 0 {
		t.Errorf("合法请求应有结果: %+v", results[0])
	}
	if results[1].Error == "" {
		t.Errorf("缺 item_title 的请求应单条报错")
	}
	if results[2].Error == "" {
		t.Errorf("缺 user_id 的请求应单条报错")
	}
	if results[3].Error != "" || len(results[3].Recommendations) == 0 {
		t.Errorf("末条合法请求不应受前面错误影响: %+v", results[3])
	}

	for _, res := range results {
		if res.ModelType != ModelHybrid {
			t.Errorf("结果应回显模型类型，实际 %q", res.ModelType)
		}
	}
}

// 标题解析成功标记 match=title，目录外物品降级为仅 id。
func TestPredictTitleResolution(t *testing.T) {
	content, collab := fitModels(t)
	// 协同模型借内容目录解析标题
	w, err := NewWrapper(ModelCollaborative, content, collab)
	if err != nil {
		t.Fatalf("NewWrapper 失败: %v", err)
	}

	results := w.Predict(context.Background(), []Request{{UserID: "u1", N: 5}})
	if results[0].Error != "" {
		t.Fatalf("预测失败: %s", results[0].Error)
	}
	for _, rec := range results[0].Recommendations {
		if rec.Title == "" {
			t.Errorf("%s: 目录内物品应解析出标题", rec.ID)
		}
		if rec.Match != "title" {
			t.Errorf("%s: 期望 match=title，实际 %q", rec.ID, rec.Match)
		}
	}

	// 没有内容目录时降级为仅 id
	bare, err := NewWrapper(ModelCollaborative, nil, collab)
	if err != nil {
		t.Fatalf("NewWrapper 失败: %v", err)
	}
	results = bare.Predict(context.Background(), []Request{{UserID: "u1", N: 5}})
	for _, rec := range results[0].Recommendations {
		if rec.Match != "id" || rec.Title != "" {
			t.Errorf("%s: 期望降级为仅 id，实际 %+v", rec.ID, rec)
		}
	}
}

// 未知用户/标题是 soft miss：不报错，推荐为空。
func TestPredictSoftMiss(t *testing.T) {
	content, collab := fitModels(t)

	w, _ := NewWrapper(ModelContent, content, nil)
	results := w.Predict(context.Background(), []Request{{ItemTitle: "No Such Movie"}})
	if results[0].Error != "" || len(results[0].Recommendations) != 0 {
		t.Errorf("未知标题应返回空结果不报错: %+v", results[0])
	}

	w, _ = NewWrapper(ModelCollaborative, nil, collab)
	results = w.Predict(context.Background(), []Request{{UserID: "stranger"}})
	if results[0].Error != "" || len(results[0].Recommendations) != 0 {
		t.Errorf("未知用户应返回空结果不报错: %+v", results[0])
	}
}

func TestPredictWithPostPipeline(t *testing.T) {
	content, _ := fitModels(t)
	w, err := NewWrapper(ModelContent, content, nil)
	if err != nil {
		t.Fatalf("NewWrapper 失败: %v", err)
	}
	w.Post = &pipeline.Pipeline{Nodes: []pipeline.Node{&rerank.TopNNode{N: 1}}}

	results := w.Predict(context.Background(), []Request{{ItemTitle: "The Matrix", N: 5}})
	if results[0].Error != "" {
		t.Fatalf("预测失败: %s", results[0].Error)
	}
	if len(results[0].Recommendations) != 1 {
		t.Errorf("后处理应截断到 1 条，实际 %d", len(results[0].Recommendations))
	}
}

// 从工件恢复的封装与直接拟合的模型给出相同推荐。
func TestRestore(t *testing.T) {
	ctx := context.Background()
	content, collab := fitModels(t)

	kv := store.NewMemoryStore()
	defer kv.Close()
	artifacts := recall.NewArtifactStore(kv, "t")
	if err := artifacts.SaveContent(ctx, content); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if err := artifacts.SaveCollaborative(ctx, collab); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	w, err := Restore(ctx, ModelHybrid, artifacts)
	if err != nil {
		t.Fatalf("恢复失败: %v", err)
	}

	direct, _ := NewWrapper(ModelHybrid, content, collab)
	want := direct.Predict(ctx, []Request{{UserID: "u1", ItemTitle: "The Matrix", N: 3}})
	got := w.Predict(ctx, []Request{{UserID: "u1", ItemTitle: "The Matrix", N: 3}})

	if len(want[0].Recommendations) != len(got[0].Recommendations) {
		t.Fatalf("恢复后结果数不一致")
	}
	for i := range want[0].Recommendations {
		if want[0].Recommendations[i] != got[0].Recommendations[i] {
			t.Errorf("位置 %d 不一致: %+v vs %+v", i, want[0].Recommendations[i], got[0].Recommendations[i])
		}
	}

	// content 类型只需要内容工件
	if _, err := Restore(ctx, ModelContent, recall.NewArtifactStore(kv, "t")); err != nil {
		t.Errorf("恢复 content 封装失败: %v", err)
	}

	// 空存储恢复应失败
	empty := recall.NewArtifactStore(store.NewMemoryStore(), "none")
	if _, err := Restore(ctx, ModelContent, empty); err == nil {
		t.Errorf("缺工件时恢复应报错")
	}
}

package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/recstudio/core"
)

func makeItems(n int) []*core.Item {
	items := make([]*core.Item, n)
	for i := range items {
		items[i] = core.NewItem(string(rune('a' + i)))
	}
	return items
}

func TestTopNNode(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		rctxN int
		in    int
		want  int
	}{
		{"正常截断", 3, 0, 5, 3},
		{"候选不足不补齐", 10, 0, 5, 5},
		{"N 为零回退到 rctx", 0, 2, 5, 2},
		{"两者皆无不截断", 0, 0, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &TopNNode{N: tt.n}
			rctx := &core.RecommendContext{N: tt.rctxN}
			out, err := node.Process(context.Background(), rctx, makeItems(tt.in))
			if err != nil {
				t.Fatalf("Process 失败: %v", err)
			}
			if len(out) != tt.want {
				t.Errorf("期望 %d 个，实际 %d", tt.want, len(out))
			}
		})
	}
}

// 截断保持原有顺序。
func TestTopNKeepsOrder(t *testing.T) {
	node := &TopNNode{N: 2}
	out, err := node.Process(context.Background(), nil, makeItems(4))
	if err != nil {
		t.Fatalf("Process 失败: %v", err)
	}
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Errorf("截断应保持顺序，实际 %s %s", out[0].ID, out[1].ID)
	}
}

package recall

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"小写与切分", "Sci-Fi Action!", []string{"sci", "fi", "action"}},
		{"过滤停用词", "the matrix and the dream", []string{"matrix", "dream"}},
		{"过滤单字符", "a b cd", []string{"cd"}},
		{"空串", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("tokenize(%q) = %v, 期望 %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("位置 %d: %q, 期望 %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// 每个非空向量 L2 归一化，自相似为 1。
func TestTfidfVectorsNormalized(t *testing.T) {
	docs := [][]string{
		{"red", "green", "blue"},
		{"red", "red", "yellow"},
		{},
	}
	vectors, _ := tfidfVectors(docs)

	for i, vec := range vectors[:2] {
		if got := sparseDot(vec, vec); math.Abs(got-1) > 1e-9 {
			t.Errorf("文档 %d 自相似 = %f，期望 1", i, got)
		}
	}
	// 空文档保持零向量
	if got := sparseDot(vectors[2], vectors[2]); got != 0 {
		t.Errorf("空文档应为零向量，自相似 %f", got)
	}
}

func TestSparseDotSymmetric(t *testing.T) {
	docs := [][]string{
		{"red", "green"},
		{"green", "blue"},
	}
	vectors, _ := tfidfVectors(docs)

	ab := sparseDot(vectors[0], vectors[1])
	ba := sparseDot(vectors[1], vectors[0])
	if ab != ba {
		t.Errorf("点积应对称: %f vs %f", ab, ba)
	}
	if ab <= 0 || ab >= 1 {
		t.Errorf("部分重叠的文档相似度应在 (0,1)，实际 %f", ab)
	}
}

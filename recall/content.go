package recall

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rushteam/recstudio/core"
	"github.com/rushteam/recstudio/dataset"
	"github.com/rushteam/recstudio/pkg/utils"
)

// ContentRecall 是基于内容的召回源（Content-Based Recommendation）。
//
// 核心思想："与用户正在看的物品内容相似的物品，用户也可能喜欢"
//
// 算法流程：
//  1. 物品 → soup 文本（配置的特征列拼接，缺失值置空）
//  2. soup → L2 归一化 TF-IDF 向量
//  3. 线性核（点积）得到物品 × 物品相似度矩阵（即余弦相似度）
//  4. 查询物品所在行按相似度降序取 TopN
//
// 拟合期行为：
//  - 特征列为空或列不存在 → INVALID_INPUT（拒绝产出悄悄失效的模型）
//  - 重复标题保留首次出现的行
//
// 查询期行为：
//  - 未知标题 → 空结果（soft miss，记日志不报错）
//  - 查询物品按行号身份排除，而不是按排序位置切片——
//    soup 完全相同的物品并列第一时也不会误伤
//  - 并列分数按原始行序稳定排序
type ContentRecall struct {
	// TopN 是 n <= 0 时的默认返回数量
	TopN int

	// Logger 记录 soft miss 等降级路径；零值为关闭状态
	Logger zerolog.Logger

	schema   core.SchemaMap
	itemIDs  []string       // 行号 -> 物品 ID
	titles   []string       // 行号 -> 标题
	titleIdx map[string]int // 标题 -> 首次出现的行号
	idIdx    map[string]int // 物品 ID -> 首次出现的行号
	sim      [][]float64    // 物品 × 物品相似度，对称，对角线为自相似
}

func (r *ContentRecall) Name() string {
	return "recall.content"
}

// Fit 依据 schema 声明的特征列拟合相似度矩阵与标题索引。
// 表与 schema 在拟合后即可释放，模型只保留自身需要的状态。
func (r *ContentRecall) Fit(table *dataset.Table, schema core.SchemaMap) error {
	if err := schema.ValidateContent(); err != nil {
		return err
	}
	for _, col := range append([]string{schema.ItemID, schema.ItemTitle}, schema.FeatureCols...) {
		if !table.HasColumn(col) {
			return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput,
				"content: column not in table: "+col)
		}
	}

	n := table.NumRows()
	itemIDs := make([]string, n)
	titles := make([]string, n)
	titleIdx := make(map[string]int, n)
	idIdx := make(map[string]int, n)
	docs := make([][]string, n)

	for row := 0; row < n; row++ {
		id := table.Cell(row, schema.ItemID)
		itemIDs[row] = id
		if _, ok := idIdx[id]; !ok {
			idIdx[id] = row
		}
		title := table.Cell(row, schema.ItemTitle)
		titles[row] = title
		if _, ok := titleIdx[title]; !ok {
			titleIdx[title] = row
		}

		parts := make([]string, 0, len(schema.FeatureCols))
		for _, col := range schema.FeatureCols {
			parts = append(parts, table.Cell(row, col))
		}
		docs[row] = tokenize(strings.Join(parts, " "))
	}

	vectors, _ := tfidfVectors(docs)

	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := sparseDot(vectors[i], vectors[j])
			sim[i][j] = s
			sim[j][i] = s
		}
	}

	r.schema = schema
	r.itemIDs = itemIDs
	r.titles = titles
	r.titleIdx = titleIdx
	r.idIdx = idIdx
	r.sim = sim
	return nil
}

// Recommend 返回与 itemTitle 内容最相似的至多 n 个物品。
// 降序排列，并列按原始行序；查询物品自身按身份排除。
func (r *ContentRecall) Recommend(_ context.Context, itemTitle string, n int) ([]*core.Item, error) {
	if r.sim == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "content: model not fitted")
	}
	if n <= 0 {
		n = r.TopN
	}
	if n <= 0 {
		n = DefaultTopN
	}

	idx, ok := r.titleIdx[itemTitle]
	if !ok {
		r.Logger.Debug().Str("item_title", itemTitle).Msg("content: unknown title, empty result")
		return nil, nil
	}

	row := r.sim[idx]
	candidates := make([]int, 0, len(row)-1)
	for i := range row {
		if i == idx {
			continue // 身份排除，而非切掉排序后的首位
		}
		candidates = append(candidates, i)
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return row[candidates[a]] > row[candidates[b]]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]*core.Item, 0, len(candidates))
	for _, i := range candidates {
		it := core.NewItem(r.itemIDs[i])
		it.Title = r.titles[i]
		it.Score = row[i]
		it.PutLabel("recall_source", utils.Label{Value: "content", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// Recall 实现 Source 接口：从 RecommendContext 取查询标题与 n。
func (r *ContentRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.ItemTitle == "" {
		return nil, nil
	}
	return r.Recommend(ctx, rctx.ItemTitle, rctx.N)
}

// NumItems 返回目录中的物品数。
func (r *ContentRecall) NumItems() int {
	return len(r.itemIDs)
}

// TitleOf 按物品 ID 查询标题，服务层用于结果格式化。
// 返回首个匹配行的标题；未找到时返回 ("", false)。
func (r *ContentRecall) TitleOf(itemID string) (string, bool) {
	i, ok := r.idIdx[itemID]
	if !ok {
		return "", false
	}
	return r.titles[i], true
}

var _ Source = (*ContentRecall)(nil)

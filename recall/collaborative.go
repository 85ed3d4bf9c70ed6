package recall

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/recstudio/core"
	"github.com/rushteam/recstudio/dataset"
	"github.com/rushteam/recstudio/pkg/utils"
)

// DefaultRank 是截断 SVD 的默认隐向量维数。
const DefaultRank = 50

// SVDRecall 是基于均值中心化截断 SVD 的协同过滤召回源。
//
// 核心思想：把用户-物品评分矩阵分解为用户隐向量和物品隐向量，
// 预测分数 = 用户隐向量 · 物品隐向量 + 该用户的评分均值。
//
// 拟合流程（顺序不可调换）：
//  1. (user, item, rating) 三元组透视为 user × item 矩阵，
//     重复的 (user, item) 取均值；行列按 ID 字典序排列
//  2. 每个用户只在“有观测”的格子上求均值
//  3. 逐行减去该均值
//  4. 再把缺失格子填 0 —— 先去均值后填零，使“未观测”在分解中
//     等价于“恰好等于该用户的平均水平”，这是低信息损失的填充语义
//  5. 对去均值后的矩阵做截断 SVD；rank 自动收缩到 min(rank, 用户数, 物品数)
//
// 查询期行为：
//  - 未知用户 → 空结果（soft miss，记日志不报错）
//  - 已评分物品从结果中剔除（依据原始观测掩码，而非填零矩阵）
//  - 并列分数按物品字典序稳定排序
type SVDRecall struct {
	// Rank 是隐向量维数；<= 0 时取 DefaultRank
	Rank int

	// TopN 是 n <= 0 时的默认返回数量
	TopN int

	// Logger 记录 soft miss 等降级路径；零值为关闭状态
	Logger zerolog.Logger

	userIDs     []string       // 行号 -> 用户 ID（字典序）
	itemIDs     []string       // 列号 -> 物品 ID（字典序）
	userIdx     map[string]int // 用户 ID -> 行号
	userMeans   []float64      // 每用户观测评分均值
	userFactors [][]float64    // 用户 × k（U_k · S_k）
	itemFactors [][]float64    // 物品 × k（V_k）
	observed    []map[int]float64 // 用户行号 -> {物品列号: 原始评分}
	rank        int               // 实际使用的维数
}

func (r *SVDRecall) Name() string {
	return "recall.svd"
}

// Fit 透视交互表并完成均值中心化的截断 SVD 分解。
// 无法解析为数值的评分行被跳过；一条有效评分都没有时报 INVALID_INPUT。
func (r *SVDRecall) Fit(table *dataset.Table, schema core.SchemaMap) error {
	if err := schema.ValidateInteractions(); err != nil {
		return err
	}
	for _, col := range []string{schema.UserID, schema.ItemID, schema.Rating} {
		if !table.HasColumn(col) {
			return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput,
				"svd: column not in table: "+col)
		}
	}

	// 透视：重复 (user, item) 取均值，与 pivot 的默认聚合一致
	type cell struct {
		sum   float64
		count int
	}
	cells := make(map[string]map[string]*cell)
	for row := 0; row < table.NumRows(); row++ {
		rating, err := strconv.ParseFloat(table.Cell(row, schema.Rating), 64)
		if err != nil {
			continue
		}
		uid := table.Cell(row, schema.UserID)
		iid := table.Cell(row, schema.ItemID)
		if cells[uid] == nil {
			cells[uid] = make(map[string]*cell)
		}
		c := cells[uid][iid]
		if c == nil {
			c = &cell{}
			cells[uid][iid] = c
		}
		c.sum += rating
		c.count++
	}
	if len(cells) == 0 {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput,
			"svd: no parseable ratings in interaction table")
	}

	// 行列顺序：ID 字典序，保证同一份快照重复拟合得到相同的工件顺序
	userIDs := make([]string, 0, len(cells))
	itemSet := make(map[string]bool)
	for uid, items := range cells {
		userIDs = append(userIDs, uid)
		for iid := range items {
			itemSet[iid] = true
		}
	}
	sort.Strings(userIDs)
	itemIDs := make([]string, 0, len(itemSet))
	for iid := range itemSet {
		itemIDs = append(itemIDs, iid)
	}
	sort.Strings(itemIDs)

	userIdx := make(map[string]int, len(userIDs))
	for i, uid := range userIDs {
		userIdx[uid] = i
	}
	itemIdx := make(map[string]int, len(itemIDs))
	for i, iid := range itemIDs {
		itemIdx[iid] = i
	}

	nU, nI := len(userIDs), len(itemIDs)

	// 均值 → 减去 → 填零
	observed := make([]map[int]float64, nU)
	userMeans := make([]float64, nU)
	demeaned := mat.NewDense(nU, nI, nil)
	for u, uid := range userIDs {
		obs := make(map[int]float64, len(cells[uid]))
		var sum float64
		for iid, c := range cells[uid] {
			v := c.sum / float64(c.count)
			obs[itemIdx[iid]] = v
			sum += v
		}
		observed[u] = obs
		mean := sum / float64(len(obs))
		userMeans[u] = mean
		for i, v := range obs {
			demeaned.Set(u, i, v-mean)
		}
	}

	rank := r.Rank
	if rank <= 0 {
		rank = DefaultRank
	}
	// 分解例程要求 rank 不超过矩阵最小维度，超出时收缩而不是报错
	if rank > nU {
		rank = nU
	}
	if rank > nI {
		rank = nI
	}

	var svd mat.SVD
	if !svd.Factorize(demeaned, mat.SVDThin) {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInternalError, "svd: factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	userFactors := make([][]float64, nU)
	for row := 0; row < nU; row++ {
		f := make([]float64, rank)
		for j := 0; j < rank; j++ {
			f[j] = u.At(row, j) * s[j]
		}
		userFactors[row] = f
	}
	itemFactors := make([][]float64, nI)
	for col := 0; col < nI; col++ {
		f := make([]float64, rank)
		for j := 0; j < rank; j++ {
			f[j] = v.At(col, j)
		}
		itemFactors[col] = f
	}

	r.userIDs = userIDs
	r.itemIDs = itemIDs
	r.userIdx = userIdx
	r.userMeans = userMeans
	r.userFactors = userFactors
	r.itemFactors = itemFactors
	r.observed = observed
	r.rank = rank
	return nil
}

// Recommend 返回对 userID 预测评分最高的至多 n 个未评分物品。
func (r *SVDRecall) Recommend(_ context.Context, userID string, n int) ([]*core.Item, error) {
	if r.userFactors == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "svd: model not fitted")
	}
	if n <= 0 {
		n = r.TopN
	}
	if n <= 0 {
		n = DefaultTopN
	}

	u, ok := r.userIdx[userID]
	if !ok {
		r.Logger.Debug().Str("user_id", userID).Msg("svd: unknown user, empty result")
		return nil, nil
	}

	uf := r.userFactors[u]
	mean := r.userMeans[u]
	obs := r.observed[u]

	type scoredItem struct {
		col   int
		score float64
	}
	scores := make([]scoredItem, 0, len(r.itemIDs)-len(obs))
	for col, itf := range r.itemFactors {
		// 已评分物品依据原始观测掩码剔除
		if _, rated := obs[col]; rated {
			continue
		}
		var dot float64
		for j := range uf {
			dot += uf[j] * itf[j]
		}
		scores = append(scores, scoredItem{col: col, score: dot + mean})
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})
	if len(scores) > n {
		scores = scores[:n]
	}

	out := make([]*core.Item, 0, len(scores))
	for _, s := range scores {
		it := core.NewItem(r.itemIDs[s.col])
		it.Score = s.score
		it.PutLabel("recall_source", utils.Label{Value: "svd", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

// Recall 实现 Source 接口：从 RecommendContext 取用户 ID 与 n。
func (r *SVDRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	return r.Recommend(ctx, rctx.UserID, rctx.N)
}

// Rated 返回用户的原始观测评分（raw 物品 ID -> 评分）。
// 未知用户返回空 map；filter.RatedItemsFilter 依赖此方法。
func (r *SVDRecall) Rated(userID string) map[string]float64 {
	u, ok := r.userIdx[userID]
	if !ok {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(r.observed[u]))
	for col, v := range r.observed[u] {
		out[r.itemIDs[col]] = v
	}
	return out
}

// PredictedRating 返回用户对单个物品的重构预测分（含均值回加）。
// 已观测物品同样参与重构，便于解释与质量校验。
func (r *SVDRecall) PredictedRating(userID, itemID string) (float64, bool) {
	u, ok := r.userIdx[userID]
	if !ok {
		return 0, false
	}
	col := -1
	for i, iid := range r.itemIDs {
		if iid == itemID {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, false
	}
	uf := r.userFactors[u]
	itf := r.itemFactors[col]
	var dot float64
	for j := range uf {
		dot += uf[j] * itf[j]
	}
	return dot + r.userMeans[u], true
}

var _ Source = (*SVDRecall)(nil)

package recall

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/recstudio/core"
)

// ArtifactStore 把拟合产物（工件）整体写入/读出 core.Store。
//
// 工件布局（值均为 JSON）：
//   内容模型：{KeyPrefix}:content:item_ids / titles / title_index / sim
//   协同过滤：{KeyPrefix}:cf:user_ids / item_ids / user_means /
//             user_factors / item_factors / observed
//
// 同一套工件的 ID 顺序必须互相一致，否则下游预测会静默错位——
// 这是跨组件的核心不变量，Load 在还原时逐项校验维度，
// 不一致时报 INVALID_INPUT 而不是放行。
type ArtifactStore struct {
	store core.Store

	// KeyPrefix 是工件 key 的前缀，通常为项目标识（如 "project:42"）
	KeyPrefix string
}

// NewArtifactStore 创建工件存储适配器。
func NewArtifactStore(s core.Store, keyPrefix string) *ArtifactStore {
	if keyPrefix == "" {
		keyPrefix = "rec"
	}
	return &ArtifactStore{store: s, KeyPrefix: keyPrefix}
}

func (a *ArtifactStore) contentKey(name string) string { return a.KeyPrefix + ":content:" + name }
func (a *ArtifactStore) cfKey(name string) string      { return a.KeyPrefix + ":cf:" + name }

func marshalInto(kvs map[string][]byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("artifacts: marshal %s: %w", key, err)
	}
	kvs[key] = data
	return nil
}

func unmarshalFrom(kvs map[string][]byte, key string, v any) error {
	data, ok := kvs[key]
	if !ok {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "artifacts: missing key "+key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artifacts: unmarshal %s: %w", key, err)
	}
	return nil
}

// SaveContent 持久化内容模型的工件集合（批量写入）。
func (a *ArtifactStore) SaveContent(ctx context.Context, m *ContentRecall) error {
	if m == nil || m.sim == nil {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "artifacts: content model not fitted")
	}
	kvs := make(map[string][]byte, 4)
	if err := marshalInto(kvs, a.contentKey("item_ids"), m.itemIDs); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.contentKey("titles"), m.titles); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.contentKey("title_index"), m.titleIdx); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.contentKey("sim"), m.sim); err != nil {
		return err
	}
	return a.store.BatchSet(ctx, kvs)
}

// LoadContent 还原内容模型并校验工件之间的维度一致性。
func (a *ArtifactStore) LoadContent(ctx context.Context) (*ContentRecall, error) {
	keys := []string{
		a.contentKey("item_ids"),
		a.contentKey("titles"),
		a.contentKey("title_index"),
		a.contentKey("sim"),
	}
	kvs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	m := &ContentRecall{}
	if err := unmarshalFrom(kvs, a.contentKey("item_ids"), &m.itemIDs); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.contentKey("titles"), &m.titles); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.contentKey("title_index"), &m.titleIdx); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.contentKey("sim"), &m.sim); err != nil {
		return nil, err
	}

	n := len(m.itemIDs)
	if len(m.titles) != n || len(m.sim) != n {
		return nil, inconsistent("content artifact dimensions disagree")
	}
	for _, row := range m.sim {
		if len(row) != n {
			return nil, inconsistent("content similarity matrix is not square")
		}
	}
	for title, row := range m.titleIdx {
		if row < 0 || row >= n {
			return nil, inconsistent("content title index out of range: " + title)
		}
	}

	m.idIdx = make(map[string]int, n)
	for i, id := range m.itemIDs {
		if _, ok := m.idIdx[id]; !ok {
			m.idIdx[id] = i
		}
	}
	return m, nil
}

// SaveCollaborative 持久化协同过滤模型的工件集合（批量写入）。
func (a *ArtifactStore) SaveCollaborative(ctx context.Context, m *SVDRecall) error {
	if m == nil || m.userFactors == nil {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "artifacts: svd model not fitted")
	}
	kvs := make(map[string][]byte, 6)
	if err := marshalInto(kvs, a.cfKey("user_ids"), m.userIDs); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.cfKey("item_ids"), m.itemIDs); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.cfKey("user_means"), m.userMeans); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.cfKey("user_factors"), m.userFactors); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.cfKey("item_factors"), m.itemFactors); err != nil {
		return err
	}
	if err := marshalInto(kvs, a.cfKey("observed"), m.observed); err != nil {
		return err
	}
	return a.store.BatchSet(ctx, kvs)
}

// LoadCollaborative 还原协同过滤模型并校验工件之间的维度一致性。
func (a *ArtifactStore) LoadCollaborative(ctx context.Context) (*SVDRecall, error) {
	keys := []string{
		a.cfKey("user_ids"),
		a.cfKey("item_ids"),
		a.cfKey("user_means"),
		a.cfKey("user_factors"),
		a.cfKey("item_factors"),
		a.cfKey("observed"),
	}
	kvs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	m := &SVDRecall{}
	if err := unmarshalFrom(kvs, a.cfKey("user_ids"), &m.userIDs); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.cfKey("item_ids"), &m.itemIDs); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.cfKey("user_means"), &m.userMeans); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.cfKey("user_factors"), &m.userFactors); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.cfKey("item_factors"), &m.itemFactors); err != nil {
		return nil, err
	}
	if err := unmarshalFrom(kvs, a.cfKey("observed"), &m.observed); err != nil {
		return nil, err
	}

	nU, nI := len(m.userIDs), len(m.itemIDs)
	if len(m.userMeans) != nU || len(m.userFactors) != nU || len(m.observed) != nU {
		return nil, inconsistent("cf user-side artifact dimensions disagree")
	}
	if len(m.itemFactors) != nI {
		return nil, inconsistent("cf item-side artifact dimensions disagree")
	}
	rank := 0
	if nU > 0 {
		rank = len(m.userFactors[0])
	}
	for _, f := range m.userFactors {
		if len(f) != rank {
			return nil, inconsistent("cf user factors have uneven rank")
		}
	}
	for _, f := range m.itemFactors {
		if len(f) != rank {
			return nil, inconsistent("cf factor ranks disagree")
		}
	}
	for _, obs := range m.observed {
		for col := range obs {
			if col < 0 || col >= nI {
				return nil, inconsistent("cf observed mask references unknown item column")
			}
		}
	}

	m.rank = rank
	m.userIdx = make(map[string]int, nU)
	for i, uid := range m.userIDs {
		m.userIdx[uid] = i
	}
	return m, nil
}

func inconsistent(msg string) error {
	return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput, "artifacts: "+msg)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/recstudio/core"
)

func TestMemoryStoreBasic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("删除后应返回 ErrStoreNotFound，实际 %v", err)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if err := s.Set(ctx, "k", []byte("v"), 1); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	// 手动把过期时间拨到过去，避免测试真的 sleep
	past := time.Now().Add(-time.Second)
	s.mu.Lock()
	s.data["k"].expires = &past
	s.mu.Unlock()

	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("过期后应返回 ErrStoreNotFound，实际 %v", err)
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	err := s.BatchSet(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	})
	if err != nil {
		t.Fatalf("BatchSet 失败: %v", err)
	}

	// 缺失的 key 不报错，结果中直接缺席
	got, err := s.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGet 失败: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet = %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Errorf("缺失 key 不应出现在结果中")
	}
}

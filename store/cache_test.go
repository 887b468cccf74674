package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/loxa-lang/loxa/bytecode"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()

	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testChunk(t *testing.T) *bytecode.Chunk {
	t.Helper()

	c := bytecode.NewChunk()
	idx, err := c.AddConstant(bytecode.IntConstant(42))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}
	c.WriteOp(bytecode.OpConstant, 1, byte(idx))
	c.WriteOp(bytecode.OpPrint, 1)
	c.WriteOp(bytecode.OpReturn, 1)
	return c
}

func TestCachePutGet(t *testing.T) {
	cache := openTestCache(t)
	source := "print 42;"

	if err := cache.Put(source, testChunk(t)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := cache.Get(source)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Len() != 4 {
		t.Errorf("Len() = %d, want 4", got.Len())
	}
	if k := got.ConstantAt(0); k.Kind != bytecode.ConstInt || k.Int != 42 {
		t.Errorf("constant = %+v, want Int 42", k)
	}
}

func TestCacheMiss(t *testing.T) {
	cache := openTestCache(t)

	_, err := cache.Get("never compiled")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestCacheKeyIsContentAddressed(t *testing.T) {
	if Key("a") == Key("b") {
		t.Error("different sources share a key")
	}
	if Key("same") != Key("same") {
		t.Error("identical sources got different keys")
	}
	if got := len(Key("x")); got != 64 {
		t.Errorf("key length = %d, want 64 hex characters", got)
	}
}

func TestCachePutReplaces(t *testing.T) {
	cache := openTestCache(t)
	source := "print 1;"

	if err := cache.Put(source, testChunk(t)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Put(source, testChunk(t)); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	n, err := cache.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Errorf("Len() = %d, want 1 after replacing", n)
	}
}

func TestCacheEvictsCorruptBlob(t *testing.T) {
	cache := openTestCache(t)
	source := "print 2;"

	_, err := cache.db.Exec(
		"INSERT INTO chunks (hash, bytecode) VALUES (?, ?)",
		Key(source), []byte("not a chunk"),
	)
	if err != nil {
		t.Fatalf("inserting corrupt blob: %v", err)
	}

	if _, err := cache.Get(source); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound for corrupt blob", err)
	}

	n, err := cache.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Len() = %d, want 0 after eviction", n)
	}
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")
	source := "print 3;"

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Put(source, testChunk(t)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err := second.Get(source)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Len() != 4 {
		t.Errorf("Len() = %d, want 4", got.Len())
	}
}

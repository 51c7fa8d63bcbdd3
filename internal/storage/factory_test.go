package storage

import "testing"

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("unexpected store type: %T", store)
	}
}

func TestNewStoreUnknownKind(t *testing.T) {
	if _, err := NewStore("papyrus", ""); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}

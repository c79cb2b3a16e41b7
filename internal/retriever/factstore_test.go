package retriever

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"Mimic_1.0/internal/models"
)

func TestLoadFactStore_MissingFileYieldsEmptyStore(t *testing.T) {
	store, err := LoadFactStore(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("LoadFactStore() error = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d facts", store.Len())
	}
}

func TestFactStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canonical_facts.jsonl")
	content := `{"id":"D1","text":"subject gathers all facts before deciding","source":"transcript","confidence":0.9,"entities":["facts"]}
{"id":"D2","text":"subject prefers quiet mornings","source":"interview","date":"2024-03-01","stance":"positive","confidence":0.8,"entities":[]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := LoadFactStore(path)
	if err != nil {
		t.Fatalf("LoadFactStore() error = %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 facts, got %d", store.Len())
	}

	out := filepath.Join(t.TempDir(), "out.jsonl")
	if err := store.Save(out); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := LoadFactStore(out)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if reloaded.Len() != store.Len() {
		t.Fatalf("round trip changed fact count: %d vs %d", reloaded.Len(), store.Len())
	}
	for i := range store.Facts() {
		var a, b models.Fact = *store.Facts()[i], *reloaded.Facts()[i]
		if !reflect.DeepEqual(a, b) {
			t.Errorf("fact %d changed in round trip:\n  before %+v\n  after  %+v", i, a, b)
		}
	}
}

func TestLoadFactStore_DuplicateIDRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.jsonl")
	content := `{"id":"D1","text":"one","source":"s","confidence":0.9}
{"id":"D1","text":"two","source":"s","confidence":0.8}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFactStore(path); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

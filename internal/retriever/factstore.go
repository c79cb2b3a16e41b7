package retriever

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"Mimic_1.0/internal/models"
)

// FactStore holds the canonical fact corpus for one persona. It is loaded once
// per session lifetime and read-only afterwards; an empty corpus is a valid
// state, not an error.
type FactStore struct {
	facts []*models.Fact
	byID  map[string]int
}

// LoadFactStore reads a JSONL fact corpus from path. A missing file yields an
// empty store.
func LoadFactStore(path string) (*FactStore, error) {
	store := &FactStore{byID: make(map[string]int)}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to open fact corpus %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var fact models.Fact
		if err := json.Unmarshal([]byte(line), &fact); err != nil {
			return nil, fmt.Errorf("failed to parse fact record: %w", err)
		}
		if _, dup := store.byID[fact.ID]; dup {
			return nil, fmt.Errorf("duplicate fact id %q in corpus", fact.ID)
		}
		store.byID[fact.ID] = len(store.facts)
		store.facts = append(store.facts, &fact)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan fact corpus: %w", err)
	}
	return store, nil
}

// Save writes the corpus back out as JSONL, one fact per line. Reloading the
// written file yields identical records.
func (s *FactStore) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create fact corpus %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, fact := range s.facts {
		if err := enc.Encode(fact); err != nil {
			return fmt.Errorf("failed to encode fact %s: %w", fact.ID, err)
		}
	}
	return w.Flush()
}

// Facts returns the loaded corpus in load order. Callers must not mutate it.
func (s *FactStore) Facts() []*models.Fact {
	return s.facts
}

// Len returns the number of facts in the corpus.
func (s *FactStore) Len() int {
	return len(s.facts)
}

// Texts returns the fact texts in load order.
func (s *FactStore) Texts() []string {
	texts := make([]string, len(s.facts))
	for i, fact := range s.facts {
		texts[i] = fact.Text
	}
	return texts
}

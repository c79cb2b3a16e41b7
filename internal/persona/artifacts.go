package persona

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"Mimic_1.0/internal/models"
)

const (
	profileFile  = "persona_profile.json"
	factsFile    = "canonical_facts.jsonl"
	rulesFile    = "style_rules.md"
	taboosFile   = "taboo_list.md"
	examplesFile = "examples.jsonl"
)

// Artifacts bundles the read-only persona inputs consumed by the Contextor,
// Refiner and Judge. All artifacts are optional; a missing file leaves the
// corresponding field empty.
type Artifacts struct {
	Name       string
	Dir        string
	Profile    *models.PersonaProfile
	StyleRules string
	Taboos     []string
	Examples   []models.Example
}

// Load reads the persona artifacts from dir. The directory itself must exist;
// individual artifact files may be absent.
func Load(dir string) (*Artifacts, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("persona directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("persona path %s is not a directory", dir)
	}

	a := &Artifacts{
		Name: filepath.Base(dir),
		Dir:  dir,
	}

	if data, err := os.ReadFile(filepath.Join(dir, profileFile)); err == nil {
		var profile models.PersonaProfile
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse persona profile: %w", err)
		}
		a.Profile = &profile
	}

	if data, err := os.ReadFile(filepath.Join(dir, rulesFile)); err == nil {
		a.StyleRules = string(data)
	}

	if data, err := os.ReadFile(filepath.Join(dir, taboosFile)); err == nil {
		a.Taboos = ParseTaboos(string(data))
	}

	examples, err := loadExamples(filepath.Join(dir, examplesFile))
	if err != nil {
		return nil, err
	}
	a.Examples = examples

	return a, nil
}

// FactsPath returns the path of the persona's canonical fact corpus.
func (a *Artifacts) FactsPath() string {
	return filepath.Join(a.Dir, factsFile)
}

// ParseTaboos extracts the bullet lines (starting with "-" or "*") from the
// taboo list markdown.
func ParseTaboos(content string) []string {
	var taboos []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") {
			taboo := strings.TrimSpace(strings.TrimLeft(trimmed, "-* "))
			if taboo != "" {
				taboos = append(taboos, taboo)
			}
		}
	}
	return taboos
}

// WriteTaboos rewrites the persona's taboo list file from a plain list plus a
// refusal-language blurb. Used by the admin surface; the caller is responsible
// for invalidating any cached orchestrator afterwards.
func WriteTaboos(dir string, taboos []string, redirectLanguage string) error {
	var sb strings.Builder
	sb.WriteString("# Taboo List\n\n## Topics\n")
	for _, taboo := range taboos {
		sb.WriteString("- " + taboo + "\n")
	}
	sb.WriteString("\n## Refusal Language\n" + redirectLanguage + "\n")
	return os.WriteFile(filepath.Join(dir, taboosFile), []byte(sb.String()), 0o644)
}

// ArtifactReport describes which artifacts a persona directory contains.
type ArtifactReport struct {
	Name      string          `json:"name"`
	Artifacts map[string]bool `json:"artifacts"`
}

// List scans root for persona directories and reports artifact presence.
func List(root string) ([]ArtifactReport, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var reports []ArtifactReport
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		exists := func(name string) bool {
			_, err := os.Stat(filepath.Join(dir, name))
			return err == nil
		}
		reports = append(reports, ArtifactReport{
			Name: entry.Name(),
			Artifacts: map[string]bool{
				"profile":     exists(profileFile),
				"facts":       exists(factsFile),
				"examples":    exists(examplesFile),
				"style_rules": exists(rulesFile),
				"taboos":      exists(taboosFile),
			},
		})
	}
	return reports, nil
}

func loadExamples(path string) ([]models.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var examples []models.Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ex models.Example
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			// Skip malformed example lines rather than failing the load.
			continue
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan examples file: %w", err)
	}
	return examples, nil
}

package registry

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/reportstream/rs-acceptor/harness"
	"github.com/reportstream/rs-acceptor/types"
)

// DefaultSuite is selected when no test names are given.
const DefaultSuite = string(types.ClassificationSmoke)

// Registry holds the test catalog and the suites that group it. It is read-only once
// NewRegistry returns.
type Registry struct {
	config Config
	tests  []harness.Test
	// suites maps a lowercased suite id to the ids of its tests, inheritance resolved
	suites map[string][]string
}

// Config contains registry configuration
type Config struct {
	Log   log.Logger
	Tests []harness.Test
	// SuiteFile optionally names a yaml file of extra suites.
	SuiteFile string
}

// Entry describes one test for listings.
type Entry struct {
	Name           string
	Classification types.Classification
	Description    string
}

// Suite is a named group of tests. Suites may inherit the tests of other suites,
// including the built-in suite of each classification.
type Suite struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Inherits    []string `yaml:"inherits"`
	Tests       []string `yaml:"tests"`
}

type SuiteConfig struct {
	Suites []Suite `yaml:"suites"`
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if len(cfg.Tests) == 0 {
		return nil, fmt.Errorf("at least one test is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}

	r := &Registry{config: cfg, suites: make(map[string][]string)}
	seen := make(map[string]bool)
	for _, t := range cfg.Tests {
		id := strings.ToLower(t.ID)
		if id == "" {
			return nil, fmt.Errorf("test with empty id")
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate test id %s", t.ID)
		}
		seen[id] = true
		r.tests = append(r.tests, t)
		class := string(t.Status)
		r.suites[class] = append(r.suites[class], id)
	}
	for _, c := range types.Classifications {
		if seen[string(c)] {
			return nil, fmt.Errorf("test id %s collides with a classification", c)
		}
	}

	if cfg.SuiteFile != "" {
		suiteConfig, err := loadConfig(cfg.SuiteFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load suites: %w", err)
		}
		if err := r.addSuites(suiteConfig, seen); err != nil {
			return nil, fmt.Errorf("failed to resolve suites: %w", err)
		}
	}

	cfg.Log.Debug("Registry loaded", "len(tests)", len(r.tests), "len(suites)", len(r.suites))
	return r, nil
}

func (r *Registry) addSuites(cfg *SuiteConfig, testIDs map[string]bool) error {
	suiteMap := make(map[string]Suite)
	for _, s := range cfg.Suites {
		id := strings.ToLower(s.ID)
		if id == "" {
			return fmt.Errorf("suite with empty id")
		}
		if _, exists := suiteMap[id]; exists || testIDs[id] || r.suites[id] != nil || isClassification(id) {
			return fmt.Errorf("suite id %s is already in use", s.ID)
		}
		for _, t := range s.Tests {
			if !testIDs[strings.ToLower(t)] {
				return fmt.Errorf("suite %s lists unknown test %s", s.ID, t)
			}
		}
		suiteMap[id] = s
	}

	// Check for circular inheritance before resolving
	for id, s := range suiteMap {
		if err := r.checkCircularInheritance(id, s.Inherits, suiteMap, make(map[string]bool)); err != nil {
			return fmt.Errorf("circular inheritance detected: %w", err)
		}
	}
	for id := range suiteMap {
		r.suites[id] = r.resolve(id, suiteMap)
	}
	return nil
}

// checkCircularInheritance detects circular dependencies in suite inheritance
func (r *Registry) checkCircularInheritance(currentID string, inherits []string, suiteMap map[string]Suite, visited map[string]bool) error {
	if visited[currentID] {
		return fmt.Errorf("circular inheritance detected at suite %s", currentID)
	}

	visited[currentID] = true
	defer delete(visited, currentID)

	for _, inheritedID := range inherits {
		inheritedID = strings.ToLower(inheritedID)
		inherited, exists := suiteMap[inheritedID]
		if !exists {
			if isClassification(inheritedID) {
				continue
			}
			return fmt.Errorf("suite %s inherits from non-existent suite %s", currentID, inheritedID)
		}

		if err := r.checkCircularInheritance(inheritedID, inherited.Inherits, suiteMap, visited); err != nil {
			return err
		}
	}

	return nil
}

// resolve returns the test ids of a suite and everything it inherits. Inheritance must be acyclic.
func (r *Registry) resolve(id string, suiteMap map[string]Suite) []string {
	s, ok := suiteMap[id]
	if !ok {
		return r.suites[id]
	}
	var ids []string
	for _, inherited := range s.Inherits {
		ids = append(ids, r.resolve(strings.ToLower(inherited), suiteMap)...)
	}
	for _, t := range s.Tests {
		ids = append(ids, strings.ToLower(t))
	}
	return ids
}

func isClassification(id string) bool {
	_, err := types.ParseClassification(id)
	return err == nil
}

// List describes every test in declaration order.
func (r *Registry) List() []Entry {
	entries := make([]Entry, 0, len(r.tests))
	for _, t := range r.tests {
		entries = append(entries, Entry{Name: t.ID, Classification: t.Status, Description: t.Description})
	}
	return entries
}

// Suites returns the ids of every known suite, sorted.
func (r *Registry) Suites() []string {
	ids := make([]string, 0, len(r.suites))
	for id := range r.suites {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Select resolves test and suite names, case-insensitively, into tests in declaration order.
// Each test is selected at most once. Names matching neither a test nor a suite are returned
// as unresolved. No names selects the default suite.
func (r *Registry) Select(names []string) ([]harness.Test, []string) {
	if len(names) == 0 {
		names = []string{DefaultSuite}
	}
	wanted := make(map[string]bool)
	var unresolved []string
	for _, name := range names {
		id := strings.ToLower(strings.TrimSpace(name))
		if id == "" {
			continue
		}
		if r.hasTest(id) {
			wanted[id] = true
			continue
		}
		if suite, ok := r.suites[id]; ok {
			for _, t := range suite {
				wanted[t] = true
			}
			continue
		}
		unresolved = append(unresolved, name)
	}

	var selected []harness.Test
	for _, t := range r.tests {
		if wanted[strings.ToLower(t.ID)] {
			selected = append(selected, t)
		}
	}
	return selected, unresolved
}

func (r *Registry) hasTest(id string) bool {
	for _, t := range r.tests {
		if strings.ToLower(t.ID) == id {
			return true
		}
	}
	return false
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// loadConfig loads a suite config from a file
func loadConfig(path string) (*SuiteConfig, error) {
	log.Debug("Reading suite config file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg SuiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

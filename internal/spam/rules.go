package spam

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

type Rules struct {
	Version    int           `yaml:"version"`
	Thresholds Thresholds    `yaml:"thresholds"`
	Keywords   TermRule      `yaml:"keywords"`
	Phones     PatternRule   `yaml:"phones"`
	Emoji      EmojiRule     `yaml:"emoji"`
	Service    PatternRule   `yaml:"service_lines"`
	Guarantees PatternRule   `yaml:"guarantees"`
	Ratings    PatternRule   `yaml:"ratings"`
	Structure  StructureRule `yaml:"structure"`
	FreeEmail  FreeEmailRule `yaml:"free_email"`
	Phrases    TermRule      `yaml:"phrases"`
	Length     LengthRule    `yaml:"length"`
}

type Thresholds struct {
	Spam       int `yaml:"spam"`
	Suspicious int `yaml:"suspicious"`
}

type TermRule struct {
	Weight int      `yaml:"weight"`
	Cap    int      `yaml:"cap"`
	Terms  []string `yaml:"terms"`
}

type PatternRule struct {
	Weight   int      `yaml:"weight"`
	Cap      int      `yaml:"cap"`
	Patterns []string `yaml:"patterns"`
}

type EmojiRule struct {
	Weight        int `yaml:"weight"`
	Cap           int `yaml:"cap"`
	StarRunLength int `yaml:"star_run_length"`
	StarRunWeight int `yaml:"star_run_weight"`
}

type StructureRule struct {
	Weight         int     `yaml:"weight"`
	BulletLimit    int     `yaml:"bullet_limit"`
	LineBreakLimit int     `yaml:"line_break_limit"`
	CapsRatio      float64 `yaml:"caps_ratio"`
	CapsMinLetters int     `yaml:"caps_min_letters"`
}

type FreeEmailRule struct {
	Weight   int      `yaml:"weight"`
	Domains  []string `yaml:"domains"`
	Keywords []string `yaml:"keywords"`
}

type LengthRule struct {
	Weight int `yaml:"weight"`
	Long   int `yaml:"long"`
	Short  int `yaml:"short"`
}

// DefaultRules returns the rule set embedded in the binary.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads a rules file, falling back to the embedded set when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spam rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse spam rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) Validate() error {
	var errs []error
	if r.Thresholds.Spam <= 0 || r.Thresholds.Spam > 100 {
		errs = append(errs, fmt.Errorf("thresholds.spam must be in 1..100, got %d", r.Thresholds.Spam))
	}
	if r.Thresholds.Suspicious <= 0 || r.Thresholds.Suspicious >= r.Thresholds.Spam {
		errs = append(errs, fmt.Errorf("thresholds.suspicious must be below thresholds.spam, got %d", r.Thresholds.Suspicious))
	}
	if r.Structure.CapsRatio < 0 || r.Structure.CapsRatio > 1 {
		errs = append(errs, fmt.Errorf("structure.caps_ratio must be in 0..1, got %v", r.Structure.CapsRatio))
	}
	return errors.Join(errs...)
}

type compiledRules struct {
	*Rules
	keywords    []string
	phrases     []string
	emailTerms  []string
	freeDomains map[string]struct{}
	phones      []*regexp.Regexp
	service     []*regexp.Regexp
	guarantees  []*regexp.Regexp
	ratings     []*regexp.Regexp
}

// compile lowercases term lists and compiles every pattern once; a bad
// pattern fails the whole rule set so it never surfaces while scoring.
func (r *Rules) compile() (*compiledRules, error) {
	c := &compiledRules{
		Rules:       r,
		keywords:    lowerAll(r.Keywords.Terms),
		phrases:     lowerAll(r.Phrases.Terms),
		emailTerms:  lowerAll(r.FreeEmail.Keywords),
		freeDomains: make(map[string]struct{}, len(r.FreeEmail.Domains)),
	}
	for _, d := range r.FreeEmail.Domains {
		c.freeDomains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}

	var errs []error
	compileAll := func(section string, patterns []string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s pattern %q: %w", section, p, err))
				continue
			}
			out = append(out, re)
		}
		return out
	}
	c.phones = compileAll("phones", r.Phones.Patterns)
	c.service = compileAll("service_lines", r.Service.Patterns)
	c.guarantees = compileAll("guarantees", r.Guarantees.Patterns)
	c.ratings = compileAll("ratings", r.Ratings.Patterns)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func lowerAll(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Package spam scores inbound lead messages with additive, explainable
// heuristics. Scoring is a pure function of its input and the rule set.
package spam

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxScore = 100

// Rule names used as Verdict.Breakdown keys.
const (
	RuleKeywords   = "keywords"
	RulePhones     = "phones"
	RuleEmoji      = "emoji"
	RuleService    = "service_lines"
	RuleGuarantees = "guarantees"
	RuleRatings    = "ratings"
	RuleBullets    = "bullet_density"
	RuleLineBreaks = "line_breaks"
	RuleCaps       = "caps_ratio"
	RuleFreeEmail  = "free_email"
	RulePhrases    = "phrases"
	RuleLength     = "length"
)

type Input struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

type Verdict struct {
	Score        int            `json:"score"`
	IsSpam       bool           `json:"is_spam"`
	Suspicious   bool           `json:"suspicious"`
	Breakdown    map[string]int `json:"breakdown,omitempty"`
	RulesVersion int            `json:"rules_version"`
}

type Scorer struct {
	rules *compiledRules
}

func NewScorer(r *Rules) (*Scorer, error) {
	c, err := r.compile()
	if err != nil {
		return nil, err
	}
	return &Scorer{rules: c}, nil
}

func (s *Scorer) Rules() *Rules {
	return s.rules.Rules
}

func (s *Scorer) Score(in Input) Verdict {
	r := s.rules
	text := strings.TrimSpace(in.Message)
	lowerText := normalizeSpace(strings.ToLower(text))
	haystack := normalizeSpace(strings.ToLower(in.Name + "\n" + text))
	lines := strings.Split(text, "\n")

	breakdown := make(map[string]int)
	add := func(rule string, fn func() int) {
		if n := safe(fn); n > 0 {
			breakdown[rule] = n
		}
	}

	add(RuleKeywords, func() int {
		return capped(countTerms(haystack, r.keywords)*r.Keywords.Weight, r.Keywords.Cap)
	})
	add(RulePhones, func() int {
		return capped(s.countPhones(text, in.Phone)*r.Phones.Weight, r.Phones.Cap)
	})
	add(RuleEmoji, func() int {
		emoji, runs := countEmoji(text, r.Emoji.StarRunLength)
		return capped(emoji*r.Emoji.Weight+runs*r.Emoji.StarRunWeight, r.Emoji.Cap)
	})
	add(RuleService, func() int {
		return capped(countMatchingLines(lines, r.service)*r.Service.Weight, r.Service.Cap)
	})
	add(RuleGuarantees, func() int {
		return capped(countMatches(text, r.guarantees)*r.Guarantees.Weight, r.Guarantees.Cap)
	})
	add(RuleRatings, func() int {
		return capped(countMatches(text, r.ratings)*r.Ratings.Weight, r.Ratings.Cap)
	})
	add(RuleBullets, func() int {
		if countBulletLines(lines) > r.Structure.BulletLimit {
			return r.Structure.Weight
		}
		return 0
	})
	add(RuleLineBreaks, func() int {
		if strings.Count(text, "\n") > r.Structure.LineBreakLimit {
			return r.Structure.Weight
		}
		return 0
	})
	add(RuleCaps, func() int {
		upper, cased := countCase(text)
		if cased >= r.Structure.CapsMinLetters && float64(upper)/float64(cased) > r.Structure.CapsRatio {
			return r.Structure.Weight
		}
		return 0
	})
	add(RuleFreeEmail, func() int {
		if s.promotionalFreeEmail(in.Email) {
			return r.FreeEmail.Weight
		}
		return 0
	})
	add(RulePhrases, func() int {
		return capped(countTerms(lowerText, r.phrases)*r.Phrases.Weight, r.Phrases.Cap)
	})
	add(RuleLength, func() int {
		if text == "" {
			return 0
		}
		n := utf8.RuneCountInString(text)
		if n > r.Length.Long || n < r.Length.Short {
			return r.Length.Weight
		}
		return 0
	})

	total := 0
	for _, n := range breakdown {
		total += n
	}
	total = capped(total, maxScore)

	isSpam := total >= r.Thresholds.Spam
	return Verdict{
		Score:        total,
		IsSpam:       isSpam,
		Suspicious:   !isSpam && total >= r.Thresholds.Suspicious,
		Breakdown:    breakdown,
		RulesVersion: r.Version,
	}
}

// countPhones counts distinct numbers, so a number matched by several
// patterns or repeated in the text counts once. Numbers equal to the phone
// the sender typed into the form are ignored.
func (s *Scorer) countPhones(text, ownPhone string) int {
	own := digits(ownPhone)
	seen := make(map[string]struct{})
	for _, re := range s.rules.phones {
		for _, m := range re.FindAllString(text, -1) {
			d := digits(m)
			if len(own) >= 6 && (strings.HasSuffix(d, lastN(own, 9)) || strings.HasSuffix(own, lastN(d, 9))) {
				continue
			}
			seen[lastN(d, 9)] = struct{}{}
		}
	}
	return len(seen)
}

func (s *Scorer) promotionalFreeEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false
	}
	local := strings.ToLower(email[:at])
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	if _, ok := s.rules.freeDomains[domain]; !ok {
		return false
	}
	return countTerms(local, s.rules.emailTerms) > 0
}

func safe(fn func() int) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return fn()
}

func capped(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	if n < 0 {
		return 0
	}
	return n
}

func countTerms(haystack string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			n++
		}
	}
	return n
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, re := range patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

func countMatchingLines(lines []string, patterns []*regexp.Regexp) int {
	n := 0
	for _, line := range lines {
		for _, re := range patterns {
			if re.MatchString(line) {
				n++
				break
			}
		}
	}
	return n
}

var bulletGlyphs = "•●▪■◆►➤➔→✓✔✅☑-*"

func countBulletLines(lines []string) int {
	n := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(line)
		if strings.ContainsRune(bulletGlyphs, first) {
			n++
		}
	}
	return n
}

func countCase(text string) (upper, cased int) {
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			upper++
			cased++
		case unicode.IsLower(r):
			cased++
		}
	}
	return upper, cased
}

func isStar(r rune) bool {
	return r == '⭐' || r == '🌟' || r == '★' || r == '✨'
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0x2B50 || r == 0x2B55:
		return true
	}
	return false
}

// countEmoji returns the emoji count and the number of star runs of at least runLen.
func countEmoji(text string, runLen int) (emoji, runs int) {
	streak := 0
	for _, r := range text {
		if r == 0xFE0F {
			continue
		}
		if isEmoji(r) {
			emoji++
		}
		if isStar(r) {
			streak++
			if runLen > 0 && streak == runLen {
				runs++
			}
			continue
		}
		streak = 0
	}
	return emoji, runs
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

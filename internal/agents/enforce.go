package agents

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// citationPattern matches citation tokens like [D3] or [FACT12]. These must
// survive every enforcement step verbatim, case included.
var citationPattern = regexp.MustCompile(`\[[A-Z]+\d+\]`)

// loudPunct are the "loud" characters stripped outright from styled output.
const loudPunct = "!*~^#_`"

var (
	repeatedDots     = regexp.MustCompile(`\.{2,}`)
	repeatedQuestion = regexp.MustCompile(`\?{2,}`)
	repeatedCommas   = regexp.MustCompile(`,{2,}`)
)

// Enforcement word budget bounds.
const (
	enforceMinWords = 6
	enforceMaxWords = 35
)

// EnforceStyle applies the deterministic constraints to oracle output:
// lowercase everything except citation tokens, strip loud punctuation,
// collapse whitespace, truncate to a word budget scaled to the user message,
// and trim stray trailing punctuation. The oracle is asked for all of this
// too, but its compliance is not reliable enough to judge or test against.
func EnforceStyle(response, userMessage string) string {
	// Step 1: lowercase everything except protected citations.
	protected, placeholders := protectCitations(response)
	text := strings.ToLower(protected)

	// Step 2: strip loud punctuation and collapse repeats.
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(loudPunct, r) {
			return -1
		}
		return r
	}, text)
	text = repeatedDots.ReplaceAllString(text, ".")
	text = repeatedQuestion.ReplaceAllString(text, "?")
	text = repeatedCommas.ReplaceAllString(text, ",")

	text = restoreCitations(text, placeholders)

	// Step 3: collapse whitespace.
	tokens := strings.Fields(text)

	// Step 4: truncate to the word budget, re-appending citations that fall
	// after the cut so none are silently dropped.
	budget := WordBudget(userMessage)
	var kept []string
	words := 0
	for i, tok := range tokens {
		if words >= budget {
			for _, rest := range tokens[i:] {
				if citationPattern.MatchString(rest) {
					kept = append(kept, citationPattern.FindString(rest))
				}
			}
			break
		}
		kept = append(kept, tok)
		if isAlphabeticToken(tok) {
			words++
		}
	}
	result := strings.Join(kept, " ")

	// Step 5: strip trailing stray punctuation other than '.' and '?'. A
	// trailing citation token is left untouched.
	if !endsWithCitation(result) {
		result = strings.TrimRightFunc(result, func(r rune) bool {
			if r == '.' || r == '?' {
				return false
			}
			return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
		})
	}
	return result
}

// WordBudget returns the alphabetic-word budget for a reply to userMessage.
func WordBudget(userMessage string) int {
	userWords := len(strings.Fields(userMessage))
	budget := int(math.Round(float64(userWords)*1.2)) + 4
	if budget > enforceMaxWords {
		budget = enforceMaxWords
	}
	if budget < enforceMinWords {
		budget = enforceMinWords
	}
	return budget
}

// protectCitations swaps citation tokens for placeholders immune to case
// folding, returning the rewritten text and the ordered originals.
func protectCitations(text string) (string, []string) {
	var placeholders []string
	protected := citationPattern.ReplaceAllStringFunc(text, func(match string) string {
		placeholders = append(placeholders, match)
		return fmt.Sprintf("\x00%d\x00", len(placeholders)-1)
	})
	return protected, placeholders
}

func restoreCitations(text string, placeholders []string) string {
	for i, original := range placeholders {
		text = strings.Replace(text, fmt.Sprintf("\x00%d\x00", i), original, 1)
	}
	return text
}

// endsWithCitation reports whether the text ends in a citation token.
func endsWithCitation(text string) bool {
	idx := strings.LastIndex(text, "[")
	if idx < 0 {
		return false
	}
	tail := text[idx:]
	return strings.HasSuffix(text, "]") && citationPattern.MatchString(tail)
}

// isAlphabeticToken reports whether the token counts against the word budget.
// Citation tokens and bare punctuation do not.
func isAlphabeticToken(tok string) bool {
	if citationPattern.MatchString(tok) {
		return false
	}
	for _, r := range tok {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

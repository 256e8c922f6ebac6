// Package cleaners normalizes vendor spellings of subjects, teams, leagues,
// positions, markets and labels. Every function is pure and safe for
// concurrent use.
package cleaners

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Subject returns the canonical display name of a player. League-specific
// exceptions win over generic normalization.
func Subject(name, league string) string {
	collapsed := collapseSpaces(name)
	if collapsed == "" {
		return ""
	}
	s := StripAccents(collapsed)
	if fixes, ok := subjectExceptions[strings.ToUpper(strings.TrimSpace(league))]; ok {
		for _, k := range []string{collapsed, s} {
			if fixed, ok := fixes[strings.ToUpper(k)]; ok {
				return fixed
			}
		}
	}

	s = stripSuffix(s)
	s = stripPunctuation(s)
	s = collapseSpaces(s)
	s = stripDigits(s)
	s = collapseSpaces(s)
	return titleCase(s)
}

// Team maps a vendor abbreviation to the canonical one for the league.
// Unmapped abbreviations pass through upper-cased.
func Team(abbr, league string) string {
	a := strings.ToUpper(strings.TrimSpace(abbr))
	if aliases, ok := teamAliases[strings.ToUpper(strings.TrimSpace(league))]; ok {
		if canonical, ok := aliases[a]; ok {
			return canonical
		}
	}
	return a
}

// League upper-cases a league name and folds segment sub-leagues
// ("CFB 1H", "NBA2H") into their parent.
func League(name string) string {
	l := strings.ToUpper(collapseSpaces(name))
	if canonical, ok := leagueAliases[l]; ok {
		return canonical
	}
	return l
}

// Position maps position synonyms to their abbreviation.
func Position(name string) string {
	p := strings.ToUpper(collapseSpaces(name))
	if canonical, ok := positionAliases[p]; ok {
		return canonical
	}
	return p
}

// Label maps vendor side labels ("o", "More", "ML") to canonical labels.
func Label(name string) string {
	l := collapseSpaces(name)
	if canonical, ok := labelAliases[strings.ToUpper(l)]; ok {
		return canonical
	}
	return titleCase(l)
}

// Market maps vendor market names to canonical market names.
func Market(name string) string {
	m := collapseSpaces(name)
	if canonical, ok := marketAliases[strings.ToUpper(m)]; ok {
		return canonical
	}
	return titleCase(m)
}

// StripAccents folds diacritics to their ASCII base letters.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func stripSuffix(s string) string {
	words := strings.Fields(s)
	if len(words) < 2 {
		return s
	}
	last := strings.ToUpper(strings.Trim(words[len(words)-1], ".,"))
	if nameSuffixes[last] {
		words = words[:len(words)-1]
		// "Jackson, Jr." leaves a trailing comma behind
		words[len(words)-1] = strings.TrimRight(words[len(words)-1], ",")
	}
	return strings.Join(words, " ")
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_':
			return ' '
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return -1
		}
		return r
	}, s)
}

func stripDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

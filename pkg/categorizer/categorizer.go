// Package categorizer assigns a spending category to a bank transaction
// from its description. It is consumed by the reconciler as a pure
// collaborator function; swapping the implementation never touches the
// sync engine.
package categorizer

import (
	"regexp"
	"strings"

	"github.com/mosaiq/bankfeed/pkg/domain"
)

// Func categorizes one transaction. The second return is false when no
// category applies.
type Func func(tx *domain.BankTransaction) (string, bool)

type categoryPattern struct {
	name    string
	pattern *regexp.Regexp
}

// Ordered: the first match wins, so overlapping descriptions categorize
// deterministically.
var categoryPatterns = []categoryPattern{
	{"alimentation", regexp.MustCompile(`(?i)(monoprix|carrefour|franprix|leclerc|auchan|intermarche|super u|casino|lidl|picard)`)},
	{"transport", regexp.MustCompile(`(?i)(sncf|ratp|uber|taxi|essence|station|autoroute|parking)`)},
	{"restaurant", regexp.MustCompile(`(?i)(restaurant|bistro|brasserie|cafe|mcdo|kfc|burger|pizza|deliveroo|uber eats)`)},
	{"shopping", regexp.MustCompile(`(?i)(amazon|cdiscount|fnac|darty|h&m|zara|uniqlo|decathlon|ikea)`)},
	{"sante", regexp.MustCompile(`(?i)(pharmacie|medecin|dentiste|hopital|clinique|mutuelle|cpam)`)},
	{"logement", regexp.MustCompile(`(?i)(loyer|edf|gdf|internet|orange|sfr|bouygues|assurance habitation)`)},
	{"salaire", regexp.MustCompile(`(?i)(salaire|paie|remuneration|traitement)`)},
	{"banque", regexp.MustCompile(`(?i)(commission|frais bancaires|cotisation|retrait|dab)`)},
	{"loisirs", regexp.MustCompile(`(?i)(cinema|theatre|concert|netflix|spotify|deezer|canal)`)},
	{"education", regexp.MustCompile(`(?i)(ecole|universite|formation|etudiant)`)},
}

// Default returns the pattern-based categorizer. A transfer with no other
// match is bucketed by its sign; everything else falls into "autres".
func Default() Func {
	return func(tx *domain.BankTransaction) (string, bool) {
		description := strings.ToLower(strings.TrimSpace(tx.Description))
		if description == "" {
			return "", false
		}

		for _, cp := range categoryPatterns {
			category, pattern := cp.name, cp.pattern
			if pattern.MatchString(description) {
				return category, true
			}
		}

		if strings.Contains(description, "virement") {
			if tx.Amount.IsPositive() {
				return "virement_entrant", true
			}
			return "virement_sortant", true
		}

		return "autres", true
	}
}

// None is a categorizer that never assigns a category, for callers that
// opt out of categorization.
func None() Func {
	return func(*domain.BankTransaction) (string, bool) { return "", false }
}

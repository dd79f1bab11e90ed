package importer

import (
	"strings"
	"unicode"

	"leadbridge/internal/accounts/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics, so "Manažer" and "manazer" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

var roleAliases = map[string]domain.Role{
	"makler":           domain.RoleReferrer,
	"referrer":         domain.RoleReferrer,
	"manazer":          domain.RoleReferrerManager,
	"manager":          domain.RoleReferrerManager,
	"referrer_manager": domain.RoleReferrerManager,
	"kancelar":         domain.RoleOffice,
	"office":           domain.RoleOffice,
	"poradce":          domain.RoleAdvisor,
	"advisor":          domain.RoleAdvisor,
}

// ParseRole maps the Czech role labels used in exports to roles.
func ParseRole(value string) (domain.Role, bool) {
	role, ok := roleAliases[Fold(value)]
	return role, ok
}

// ParsePct reads "12,5", "12.5" or "12,5 %". Empty means zero.
func ParsePct(value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
}

// SplitName splits "Jana Nová Svobodová" into "Jana" and "Nová Svobodová".
func SplitName(full string) (first, last string, ok bool) {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], " "), true
}

// Username builds the fallback login for rows without an e-mail.
func Username(first, last, domainName string) string {
	local := strings.ReplaceAll(Fold(first)+Fold(last), " ", "")
	return local + "@" + domainName
}

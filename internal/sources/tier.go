package sources

import (
	"sort"
	"strings"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

// ResolveTier picks the highest tier whose bounds contain amount. When none
// matches the first configured tier is used. tiers must not be empty.
func ResolveTier(tiers []domain.Tier, amount int64) domain.Tier {
	ordered := make([]domain.Tier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinimumAmount > ordered[j].MinimumAmount
	})
	for _, t := range ordered {
		if t.Matches(amount) {
			return t
		}
	}
	return tiers[0]
}

// MessageFields are the placeholders available to tier templates.
type MessageFields struct {
	Username string
	Platform string
	Amount   string
	Currency string
}

// RenderMessage substitutes {username}, {platform}, {amount} and {currency}.
// Unknown placeholders are left as written.
func RenderMessage(template string, f MessageFields) string {
	return strings.NewReplacer(
		"{username}", f.Username,
		"{platform}", f.Platform,
		"{amount}", f.Amount,
		"{currency}", f.Currency,
	).Replace(template)
}

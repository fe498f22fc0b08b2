package prices

import (
	"strings"

	"github.com/aristath/arena/internal/domain"
)

// ResolveUniverse picks the symbol universe for a run. A non-empty override
// wins over the configured default list. Entries are uppercased and blank
// entries dropped. An empty final universe is a configuration error - a run
// must never proceed to fetch or score zero symbols.
func ResolveUniverse(override []string, configured []string) ([]string, error) {
	src := configured
	if len(override) > 0 {
		src = override
	}

	out := make([]string, 0, len(src))
	for _, s := range src {
		ticker := strings.ToUpper(strings.TrimSpace(s))
		if ticker != "" {
			out = append(out, ticker)
		}
	}

	if len(out) == 0 {
		return nil, domain.NewConfigError("symbol universe is empty")
	}
	return out, nil
}

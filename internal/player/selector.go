package player

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/smazurov/sdinode/internal/devices"
)

// parseSelector resolves "sdi://<n>", n 1-based, to a device id. Everything
// after the prefix must be the decimal index.
func parseSelector(url string) (uint8, error) {
	rest, ok := strings.CutPrefix(url, devices.SelectorPrefix)
	if !ok || rest == "" {
		return 0, fmt.Errorf("%q: %w", url, ErrInvalidURL)
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%q: %w", url, ErrInvalidURL)
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", url, ErrNotFound)
	}
	if n < 1 || n > math.MaxUint8+1 {
		return 0, fmt.Errorf("%q: index out of range: %w", url, ErrNotFound)
	}
	return uint8(n - 1), nil
}

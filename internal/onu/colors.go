package onu

import (
	"github.com/openisp/naps/internal/naperr"
)

// FiberColor maps a 1-based core number onto the configured color sequence,
// wrapping per tube. Install crews use the pair to find the right strand.
type FiberColor struct {
	Core  int    `json:"core"`
	Tube  int    `json:"tube"`
	Color string `json:"color"`
}

// CoreColor resolves core n against the color sequence.
func CoreColor(n int, colors []string) (FiberColor, error) {
	if n < 1 {
		return FiberColor{}, naperr.New(naperr.InvalidInput, "core number %d must be positive", n)
	}
	if len(colors) == 0 {
		return FiberColor{}, naperr.New(naperr.ConfigMissing, "empty fiber color sequence")
	}
	return FiberColor{
		Core:  n,
		Tube:  (n-1)/len(colors) + 1,
		Color: colors[(n-1)%len(colors)],
	}, nil
}

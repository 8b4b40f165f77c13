package rpc

import (
	"fmt"
	"math"
	"strings"

	"github.com/spooky-finn/liquidity-bridge/domain"
)

const defaultMaxDepth = 50

type ValidationServiceConfig struct {
	AvailableMarkets []string
	// MaxDepth caps levels per side in book responses, 0 means defaultMaxDepth.
	MaxDepth int
}

type ValidationService struct {
	config *ValidationServiceConfig
}

func NewValidationService(config *ValidationServiceConfig) *ValidationService {
	if config == nil {
		config = &ValidationServiceConfig{}
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaultMaxDepth
	}

	return &ValidationService{
		config: config,
	}
}

func (s *ValidationService) IsSupportedMarket(market string) bool {
	market = strings.ToUpper(strings.TrimSpace(market))
	for _, m := range s.config.AvailableMarkets {
		if m == market {
			return true
		}
	}
	return false
}

func (s *ValidationService) ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, amount)
	}
	return nil
}

// Depth maps a requested depth to the served one: 0 or too deep means the cap.
func (s *ValidationService) Depth(requested int) int {
	if requested <= 0 || requested > s.config.MaxDepth {
		return s.config.MaxDepth
	}
	return requested
}

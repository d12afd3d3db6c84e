package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cargo-dispatch/internal/domain"

	"github.com/go-redis/redis/v8"
)

const offerRulesKey = "dispatch:offer_rules"

var defaultRules = domain.OfferValidationRules{
	MinPrice: 1,
	MaxPrice: 1000000,
}

// PriceBandValidator bounds submitted offer prices. Rules live in Redis so
// operations can retune them without a deploy; absent rules fall back to the
// defaults.
type PriceBandValidator struct {
	client *redis.Client
	mu     sync.RWMutex
	rules  domain.OfferValidationRules
}

func NewPriceBandValidator(client *redis.Client) *PriceBandValidator {
	return &PriceBandValidator{
		client: client,
		rules:  defaultRules,
	}
}

func (v *PriceBandValidator) LoadRules(ctx context.Context) error {
	payload, err := v.client.Get(ctx, offerRulesKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}

	var rules domain.OfferValidationRules
	if err := json.Unmarshal([]byte(payload), &rules); err != nil {
		return err
	}

	v.mu.Lock()
	v.rules = rules
	v.mu.Unlock()
	return nil
}

func (v *PriceBandValidator) ValidatePrice(price float64) error {
	v.mu.RLock()
	rules := v.rules
	v.mu.RUnlock()

	if price < rules.MinPrice {
		return fmt.Errorf("price %.2f below minimum %.2f", price, rules.MinPrice)
	}
	if price > rules.MaxPrice {
		return fmt.Errorf("price %.2f above maximum %.2f", price, rules.MaxPrice)
	}
	return nil
}

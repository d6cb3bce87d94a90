package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeledger/pkg/errors"
	"tradeledger/pkg/logger"
)

// CacheClient is the cache surface needed for policy lookups.
type CacheClient interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

const policyCacheTTL = 5 * time.Minute

// Service resolves the account's commission policy and quotes fees with
// it. Satisfies the position ledger's FeeQuoter.
type Service struct {
	repo     Repository
	cache    CacheClient // optional
	fallback Policy      // used when the store has no persisted policy
	log      *logger.Logger
}

// NewService constructs a commission service. cache may be nil.
func NewService(repo Repository, cache CacheClient, fallback Policy) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		fallback: fallback,
		log:      logger.Get().With("component", "commission"),
	}
}

// Quote computes the fee for one side of a fill under the account's policy.
func (s *Service) Quote(ctx context.Context, userID uuid.UUID, price, quantity decimal.Decimal) (decimal.Decimal, error) {
	policy, err := s.PolicyFor(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return Fee(policy, price, quantity), nil
}

// PolicyFor fetches the account's commission policy, falling back to the
// configured default when none is persisted.
func (s *Service) PolicyFor(ctx context.Context, userID uuid.UUID) (Policy, error) {
	cacheKey := "commission_policy:" + userID.String()
	if s.cache != nil {
		var cached Policy
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	policy, err := s.repo.GetPolicy(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return s.fallback, nil
		}
		return Policy{}, errors.Wrap(err, "fetch commission policy")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, policy, policyCacheTTL); err != nil {
			s.log.Debugf("policy cache write failed: %v", err)
		}
	}
	return *policy, nil
}

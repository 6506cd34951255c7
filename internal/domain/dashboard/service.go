package dashboard

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"horizon/internal/domain/bank"
	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/plaid"
)

const cacheKeyPrefix = "dashboard:home:"

// Cache stores rendered home views. Get reports a miss with false.
// Invalidate bumps the key's generation; SetIfGeneration stores a view only
// if no invalidation happened since gen was read.
type Cache interface {
	Get(ctx context.Context, key string) (*Home, bool)
	Generation(ctx context.Context, key string) (int64, error)
	SetIfGeneration(ctx context.Context, key string, value *Home, gen int64) bool
	Invalidate(ctx context.Context, key string) error
}

type Service struct {
	banks      *bank.Service
	aggregator plaid.ClientInterface
	cache      Cache
	now        func() time.Time
}

func NewService(banks *bank.Service, aggregator plaid.ClientInterface, cache Cache) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{banks: banks, aggregator: aggregator, cache: cache, now: time.Now}
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

// GetHome returns the cached home view or builds it from live balances.
// Views with unavailable balances are not cached, nor are views that an
// invalidation overtook while they were being built.
func (s *Service) GetHome(ctx context.Context, u *user.User) (*Home, error) {
	key := cacheKey(u.ID)
	if home, ok := s.cache.Get(ctx, key); ok {
		return home, nil
	}

	gen, err := s.cache.Generation(ctx, key)
	cacheable := err == nil
	if err != nil {
		log.Printf("User %s: Error reading dashboard cache generation: %v", u.ID, err)
	}

	banks, err := s.banks.ListBanks(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}

	home := &Home{
		User:                u,
		Banks:               make([]BankSummary, 0, len(banks)),
		TotalBanks:          len(banks),
		TotalCurrentBalance: decimal.Zero,
		GeneratedAt:         s.now(),
	}

	degraded := false
	for _, b := range banks {
		summary := s.summarize(ctx, u.ID, b)
		if summary.Unavailable {
			degraded = true
		} else {
			home.TotalCurrentBalance = home.TotalCurrentBalance.Add(summary.CurrentBalance)
		}
		home.Banks = append(home.Banks, summary)
	}

	if cacheable && !degraded {
		s.cache.SetIfGeneration(ctx, key, home, gen)
	}
	return home, nil
}

func (s *Service) summarize(ctx context.Context, userID string, b *bank.BankAccount) BankSummary {
	summary := BankSummary{
		ID:             b.ID,
		ShareableID:    b.ShareableID,
		AccountBalance: bank.AccountBalance{AccountID: b.AccountID},
	}

	resp, err := s.aggregator.GetBalances(ctx, b.AccessToken)
	if err != nil {
		log.Printf("User %s: Error fetching balances for bank %s: %v", userID, b.ID, err)
		summary.Unavailable = true
		return summary
	}

	for _, a := range resp.Accounts {
		if a.AccountID != b.AccountID {
			continue
		}
		summary.AccountBalance = bank.AccountBalance{
			AccountID:        a.AccountID,
			Name:             a.Name,
			Mask:             a.Mask,
			Type:             a.Type,
			Subtype:          a.Subtype,
			CurrentBalance:   a.Balances.Current.Decimal,
			AvailableBalance: a.Balances.Available,
			Currency:         a.Balances.ISOCurrencyCode,
		}
		return summary
	}

	log.Printf("User %s: Account %s missing from item %s", userID, b.AccountID, b.ItemID)
	summary.Unavailable = true
	return summary
}

// Invalidate drops the cached home view for a user and fences off views
// still being built from older data.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	return s.cache.Invalidate(ctx, cacheKey(userID))
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*Home, bool)                  { return nil, false }
func (NoopCache) Generation(context.Context, string) (int64, error)          { return 0, nil }
func (NoopCache) SetIfGeneration(context.Context, string, *Home, int64) bool { return false }
func (NoopCache) Invalidate(context.Context, string) error                   { return nil }

package linking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
)

// Artifacts are the provider-side resources created by a link attempt.
type Artifacts struct {
	ItemID           string
	AccessToken      string
	FundingSourceURL string
}

// Empty reports whether no remote resource is outstanding.
func (a Artifacts) Empty() bool {
	return a.ItemID == "" && a.FundingSourceURL == ""
}

// Describe lists the outstanding resources without secrets.
func (a Artifacts) Describe() []string {
	var out []string
	if a.FundingSourceURL != "" {
		out = append(out, "funding source "+a.FundingSourceURL)
	}
	if a.ItemID != "" {
		out = append(out, "aggregator item "+a.ItemID)
	}
	return out
}

type compensation struct {
	name    string
	undo    func(ctx context.Context, a Artifacts) error
	release func(a *Artifacts)
}

// saga tracks remote resources created so far and how to undo them.
type saga struct {
	artifacts     Artifacts
	compensations []compensation
}

func (s *saga) add(c compensation) {
	s.compensations = append(s.compensations, c)
}

// compensate runs compensations newest first and returns what is still
// outstanding. Every compensation is attempted even when an earlier one fails.
func (s *saga) compensate(ctx context.Context) (Artifacts, error) {
	var errs []error
	for i := len(s.compensations) - 1; i >= 0; i-- {
		c := s.compensations[i]
		if err := c.undo(ctx, s.artifacts); err != nil {
			log.Printf("Error compensating %s: %v", c.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		c.release(&s.artifacts)
	}
	s.compensations = nil
	return s.artifacts, errors.Join(errs...)
}

// compensator builds the undo actions for each kind of remote artifact.
type compensator struct {
	aggregator plaid.ClientInterface
	payments   dwolla.ClientInterface
}

func (c compensator) removeItem() compensation {
	return compensation{
		name: "aggregator item removal",
		undo: func(ctx context.Context, a Artifacts) error {
			return c.aggregator.RemoveItem(ctx, a.AccessToken)
		},
		release: func(a *Artifacts) {
			a.ItemID = ""
			a.AccessToken = ""
		},
	}
}

func (c compensator) removeFundingSource() compensation {
	return compensation{
		name: "funding source removal",
		undo: func(ctx context.Context, a Artifacts) error {
			return c.payments.RemoveFundingSource(ctx, a.FundingSourceURL)
		},
		release: func(a *Artifacts) {
			a.FundingSourceURL = ""
		},
	}
}

// resume rebuilds a saga for artifacts left behind by an earlier attempt.
func (c compensator) resume(a Artifacts) *saga {
	s := &saga{artifacts: a}
	if a.ItemID != "" {
		s.add(c.removeItem())
	}
	if a.FundingSourceURL != "" {
		s.add(c.removeFundingSource())
	}
	return s
}

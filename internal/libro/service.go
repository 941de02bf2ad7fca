package libro

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/haciendadigital/sicam/internal/polizas"
	"github.com/haciendadigital/sicam/internal/shared"
)

// Service serves the three projections. Builds are deduplicated through
// singleflight so concurrent readers of a cold key trigger one rebuild.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Diario returns the chronological journal of the period.
func (s *Service) Diario(ctx context.Context, scope shared.Scope) (DiarioProjection, error) {
	var projection DiarioProjection
	err := s.fetch(ctx, scope, "diario", &projection, func(ctx context.Context) (any, error) {
		entries, err := s.repo.ListEntries(ctx, scope)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			entries[i].Referencia = polizas.FormatSequenceRef(polizas.Tipo(entries[i].Tipo), entries[i].SequenceNumber)
		}
		return BuildDiario(entries), nil
	})
	return projection, err
}

// Mayor returns the per-account ledger with running balances.
func (s *Service) Mayor(ctx context.Context, scope shared.Scope) (MayorProjection, error) {
	var projection MayorProjection
	err := s.fetch(ctx, scope, "mayor", &projection, func(ctx context.Context) (any, error) {
		number, err := s.repo.PeriodNumber(ctx, scope.PeriodID)
		if err != nil {
			return nil, err
		}
		balances, err := s.repo.OpeningBalances(ctx, scope, number)
		if err != nil {
			return nil, err
		}
		openings := make(map[int64]float64, len(balances))
		for _, row := range balances {
			openings[row.CuentaID] = row.Opening
		}
		lines, err := s.repo.ListLines(ctx, scope)
		if err != nil {
			return nil, err
		}
		return BuildMayor(lines, openings), nil
	})
	return projection, err
}

// Balanza returns the trial balance of the period.
func (s *Service) Balanza(ctx context.Context, scope shared.Scope) (BalanzaProjection, error) {
	var projection BalanzaProjection
	err := s.fetch(ctx, scope, "balanza", &projection, func(ctx context.Context) (any, error) {
		number, err := s.repo.PeriodNumber(ctx, scope.PeriodID)
		if err != nil {
			return nil, err
		}
		rows, err := s.repo.OpeningBalances(ctx, scope, number)
		if err != nil {
			return nil, err
		}
		return BuildBalanza(rows), nil
	})
	return projection, err
}

func (s *Service) fetch(ctx context.Context, scope shared.Scope, view string, dest any, loader func(context.Context) (any, error)) error {
	if err := scope.Validate(true); err != nil {
		return err
	}
	// The period gate runs outside the cache so an unknown period is a
	// NotFoundError even on a warm version.
	if _, err := s.repo.PeriodNumber(ctx, scope.PeriodID); err != nil {
		return err
	}
	key, err := s.cache.BuildKey(ctx, "libro", view, scope.CacheKey())
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
		value, err, _ := s.singleflightDo(ctx, key, loader)
		return value, err
	})
}

func (s *Service) singleflightDo(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := s.group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

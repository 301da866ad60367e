package preferences

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/grouping"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

const (
	KeyStockFilter = "stock_filter"
	KeyGroupBy     = "group_by"
)

// Preferences is what the browser restores at startup.
type Preferences struct {
	StockFilter models.StockFilter `json:"stock_filter"`
	GroupBy     []grouping.Field   `json:"group_by"`
}

func Defaults() Preferences {
	return Preferences{
		StockFilter: models.StockFilterAll,
		GroupBy:     []grouping.Field{grouping.FieldGame},
	}
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Load reads both preferences. Missing or unreadable values fall back to
// their defaults; a broken store never blocks the browser from opening.
func (s *Service) Load(ctx context.Context) Preferences {
	prefs := Defaults()

	if v, err := s.store.Get(ctx, KeyStockFilter); err == nil {
		if f, err := models.ParseStockFilter(v); err == nil {
			prefs.StockFilter = f
		} else {
			log.Warn().Str("value", v).Msg("ignoring saved stock filter")
		}
	} else if !errors.Is(err, ErrNotSet) {
		log.Warn().Err(err).Msg("failed to load stock filter preference")
	}

	if v, err := s.store.Get(ctx, KeyGroupBy); err == nil {
		// An empty saved value means no grouping fields, not the default.
		if fields, err := grouping.ParseFields(v); err == nil {
			prefs.GroupBy = fields
		} else {
			log.Warn().Str("value", v).Msg("ignoring saved grouping")
		}
	} else if !errors.Is(err, ErrNotSet) {
		log.Warn().Err(err).Msg("failed to load grouping preference")
	}

	return prefs
}

func (s *Service) SaveStockFilter(ctx context.Context, f models.StockFilter) error {
	if err := s.store.Set(ctx, KeyStockFilter, string(f)); err != nil {
		return errs.Transient(err, "save stock filter")
	}
	return nil
}

func (s *Service) SaveGroupBy(ctx context.Context, fields []grouping.Field) error {
	if err := s.store.Set(ctx, KeyGroupBy, grouping.Format(fields)); err != nil {
		return errs.Transient(err, "save grouping")
	}
	return nil
}

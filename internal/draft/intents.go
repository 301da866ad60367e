package draft

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

type IntentType string

const (
	RequestAddMarketplace    IntentType = "RequestAddMarketplace"
	RequestRemoveMarketplace IntentType = "RequestRemoveMarketplace"
	RequestSetPrice          IntentType = "RequestSetPrice"
)

// Intent is a marketplace edit emitted by whatever view the listing is shown
// in. Only the draft changes; nothing is sent until Commit.
type Intent struct {
	Type        IntentType          `json:"type" binding:"required"`
	Marketplace string              `json:"marketplace" binding:"required"`
	Price       decimal.NullDecimal `json:"price"`
}

func (e *Engine) Dispatch(stockID uint, in Intent) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.editableLocked(stockID)
	if err != nil {
		return Session{}, err
	}
	next := s.draft.clone()
	if err := applyIntent(&next, in); err != nil {
		return Session{}, err
	}
	s.draft = next
	return s.view(), nil
}

func applyIntent(d *Draft, in Intent) error {
	name := models.NormalizeMarketplace(in.Marketplace)
	if name == "" {
		return errs.New(errs.KindValidation, "marketplace is required")
	}

	switch in.Type {
	case RequestAddMarketplace:
		if _, ok := d.listing(name); ok {
			return nil
		}
		d.Marketplaces = append(d.Marketplaces, Listing{Marketplace: name, Price: in.Price})
		sortListings(d.Marketplaces)
	case RequestRemoveMarketplace:
		d.Marketplaces = removeListing(append([]Listing(nil), d.Marketplaces...), name)
	case RequestSetPrice:
		for i := range d.Marketplaces {
			if d.Marketplaces[i].Marketplace == name {
				d.Marketplaces[i].Price = in.Price
				return nil
			}
		}
		return errs.Newf(errs.KindValidation, "%s is not listed", name)
	default:
		return errs.New(errs.KindValidation, fmt.Sprintf("unknown intent %q", in.Type))
	}
	return nil
}

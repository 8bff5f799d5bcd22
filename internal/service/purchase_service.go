package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tapminer/internal/catalog"
	"tapminer/internal/domain"
	"tapminer/internal/logger"
	"tapminer/internal/store"
)

type PurchaseResult struct {
	AssetID       string `json:"asset_id"`
	Quantity      int64  `json:"quantity"`
	TotalCost     int64  `json:"total_cost"`
	NewBalance    int64  `json:"new_balance"`
	NewQuantity   int64  `json:"new_quantity"`
	TotalInvested int64  `json:"total_invested"` // network-wide, this asset
	TotalUnits    int64  `json:"total_units"`
}

type PurchaseService struct {
	store     store.Store
	catalog   *catalog.Catalog
	publisher EventPublisher
}

func NewPurchaseService(st store.Store, cat *catalog.Catalog) *PurchaseService {
	return &PurchaseService{store: st, catalog: cat, publisher: nopPublisher{}}
}

func (s *PurchaseService) SetPublisher(p EventPublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.publisher = p
}

// BuyFromCatalog prices the purchase from the catalog.
func (s *PurchaseService) BuyFromCatalog(ctx context.Context, accountID int64, assetID string, quantity int64) (*PurchaseResult, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return nil, ErrInvalidAsset
	}
	asset, ok := s.catalog.Get(assetID)
	if !ok {
		return nil, ErrUnknownAsset
	}
	return s.Purchase(ctx, accountID, asset.ID, quantity, asset.Cost)
}

// Purchase debits quantity × unitCost and adds the units in one
// transaction. assetID is not checked against the catalog here.
func (s *PurchaseService) Purchase(ctx context.Context, accountID int64, assetID string, quantity, unitCost int64) (*PurchaseResult, error) {
	start := time.Now()
	res, err := s.purchase(ctx, accountID, strings.TrimSpace(assetID), quantity, unitCost)
	observe("purchase", outcomeOf(err), start)

	log := logger.WithContext(ctx).With("account_id", accountID, "asset_id", assetID)
	if err != nil {
		if KindOf(err) == KindInfrastructure {
			log.Error("purchase failed", "error", err)
		} else {
			log.Debug("purchase rejected", "code", Code(err))
		}
		return nil, err
	}

	log.Info("purchase", "quantity", quantity, "cost", res.TotalCost, "balance", res.NewBalance)
	CurrencySpent.WithLabelValues(domain.LedgerPurchase).Add(float64(res.TotalCost))
	s.publisher.Publish(accountID, domain.Event{
		Type:      domain.EventPurchase,
		AccountID: accountID,
		Payload: map[string]any{
			"asset_id":     res.AssetID,
			"quantity":     res.Quantity,
			"new_quantity": res.NewQuantity,
			"cost":         res.TotalCost,
			"balance":      res.NewBalance,
		},
		At: time.Now().UTC(),
	})
	return res, nil
}

func (s *PurchaseService) purchase(ctx context.Context, accountID int64, assetID string, quantity, unitCost int64) (*PurchaseResult, error) {
	switch {
	case accountID <= 0:
		return nil, ErrInvalidAccountID
	case assetID == "":
		return nil, ErrInvalidAsset
	case quantity <= 0:
		return nil, ErrInvalidQuantity
	case unitCost < 0:
		return nil, ErrInvalidCost
	case unitCost > 0 && quantity > math.MaxInt64/unitCost:
		return nil, ErrInvalidQuantity
	}
	totalCost := quantity * unitCost

	var res *PurchaseResult
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		acc, ok := locked[accountID]
		if !ok {
			return ErrUserNotFound
		}

		if totalCost > acc.Balance {
			return &InsufficientFundsError{
				Balance:   acc.Balance,
				Required:  totalCost,
				Shortfall: totalCost - acc.Balance,
			}
		}
		oldQty := acc.Assets.Quantity(assetID)
		if oldQty > math.MaxInt64-quantity {
			return ErrInvalidQuantity
		}
		assets := acc.Assets.With(assetID, quantity)

		balance, err := tx.ApplyPurchase(ctx, accountID, totalCost, assets)
		if errors.Is(err, store.ErrInsufficientFunds) {
			return &InsufficientFundsError{Balance: acc.Balance, Required: totalCost, Shortfall: totalCost - acc.Balance}
		}
		if err != nil {
			return err
		}
		agg, err := tx.AddAssetInvestment(ctx, assetID, quantity, totalCost)
		if err != nil {
			return err
		}
		if err := tx.AppendLedger(ctx, &domain.LedgerEntry{
			AccountID: accountID,
			Amount:    -totalCost,
			Category:  domain.LedgerPurchase,
			Note:      fmt.Sprintf("%d x %s @ %d", quantity, assetID, unitCost),
		}); err != nil {
			return err
		}

		res = &PurchaseResult{
			AssetID:       assetID,
			Quantity:      quantity,
			TotalCost:     totalCost,
			NewBalance:    balance,
			NewQuantity:   oldQty + quantity,
			TotalInvested: agg.TotalInvested,
			TotalUnits:    agg.TotalUnits,
		}
		return nil
	})
	if err != nil {
		return nil, fromStore(err)
	}
	return res, nil
}

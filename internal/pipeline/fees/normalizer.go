package fees

import (
	"github.com/shopspring/decimal"

	"omnipool/internal/models"
)

// AmountsView is the slice of computed amounts the normalizer reads
type AmountsView struct {
	SwapFeeUSD         decimal.Decimal
	SwapPriceImpactUSD decimal.Decimal
	UIFeeUSD           decimal.Decimal

	// BasisUSD is the notional used for percentage display: sum of
	// collateral USD for a deposit, pool token USD for a withdrawal
	BasisUSD decimal.Decimal
}

// DepositView derives the normalizer's view from deposit amounts
func DepositView(a *models.DepositAmounts, uiFeeUSD decimal.Decimal) AmountsView {
	return AmountsView{
		SwapFeeUSD:         a.SwapFeeUSD,
		SwapPriceImpactUSD: a.SwapPriceImpactUSD,
		UIFeeUSD:           uiFeeUSD,
		BasisUSD:           a.LongTokenUSD.Add(a.ShortTokenUSD),
	}
}

// WithdrawalView derives the normalizer's view from withdrawal amounts
func WithdrawalView(a *models.WithdrawalAmounts, uiFeeUSD decimal.Decimal) AmountsView {
	return AmountsView{
		SwapFeeUSD:         a.SwapFeeUSD,
		SwapPriceImpactUSD: a.SwapPriceImpactUSD,
		UIFeeUSD:           uiFeeUSD,
		BasisUSD:           a.MarketTokenUSD,
	}
}

// Normalize converts pay-source-specific technical fees into the single
// USD-denominated breakdown shown to the user. The network fee is always a
// cost, represented as a non-positive value. A nil technical fee yields a
// nil result: fees are not ready, not free.
func Normalize(technical models.TechnicalFees, view AmountsView) *models.LogicalFees {
	if technical == nil {
		return nil
	}

	var networkUSD decimal.Decimal
	switch f := technical.(type) {
	case models.SettlementChainFees:
		networkUSD = f.FeeUSD
	case models.GmxAccountFees:
		networkUSD = f.RelayFeeUSD.Add(f.ExecutionFeeUSD)
	case models.SourceChainFees:
		networkUSD = f.BridgeNativeFeeUSD.Add(f.ExecutionGasUSD)
	default:
		return nil
	}
	networkUSD = networkUSD.Neg()

	total := networkUSD.
		Sub(view.SwapFeeUSD).
		Sub(view.UIFeeUSD).
		Add(view.SwapPriceImpactUSD)

	return &models.LogicalFees{
		SwapFeeUSD:         view.SwapFeeUSD,
		SwapPriceImpactUSD: view.SwapPriceImpactUSD,
		UIFeeUSD:           view.UIFeeUSD,
		NetworkFeeUSD:      networkUSD,
		TotalUSD:           total,
		BasisUSD:           view.BasisUSD,
	}
}

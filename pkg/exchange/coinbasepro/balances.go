package coinbasepro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"folio-api/pkg/asset"
	"folio-api/pkg/exchange"
)

// QueryBalances returns the non-zero account balances priced in USD.
// Entries that cannot be processed are reported to the message sink and
// skipped; only a failed accounts query aborts the call.
func (p *Provider) QueryBalances(ctx context.Context) (exchange.Balances, error) {
	entries, _, err := p.client.queryList(ctx, "accounts", nil)
	if err != nil {
		return nil, err
	}

	balances := make(exchange.Balances)
	for _, raw := range entries {
		var account accountEntry
		if err := json.Unmarshal(raw, &account); err != nil {
			p.deps.Messages.AddError(
				"Error processing a coinbasepro account balance. Check logs for details. Ignoring it.")
			continue
		}

		amount, err := parseDecimal("balance", account.Balance)
		if err != nil {
			p.deps.Messages.AddError(
				"Error processing a coinbasepro account balance. Check logs for details. Ignoring it.")
			continue
		}
		// The exchange reports zero balances for every currency a user
		// never held.
		if amount.IsZero() {
			continue
		}

		resolved, err := p.deps.Assets.FromExchangeSymbol(ctx, account.Currency)
		if err != nil {
			switch {
			case errors.Is(err, asset.ErrUnknownAsset):
				p.deps.Messages.AddWarning(fmt.Sprintf(
					"Found coinbasepro balance result with unknown asset %s. Ignoring it.", account.Currency))
			case errors.Is(err, asset.ErrUnsupportedAsset):
				p.deps.Messages.AddWarning(fmt.Sprintf(
					"Found coinbasepro balance result with unsupported asset %s. Ignoring it.", account.Currency))
			default:
				p.deps.Messages.AddError(
					"Error processing a coinbasepro account balance. Check logs for details. Ignoring it.")
			}
			continue
		}

		usdPrice, err := p.deps.Prices.USDPrice(ctx, resolved)
		if err != nil {
			p.deps.Messages.AddError(fmt.Sprintf(
				"Error processing coinbasepro balance entry due to inability to query USD price: %v. Skipping balance entry.", err))
			continue
		}

		balances.Accumulate(resolved, exchange.Balance{
			Amount:   amount,
			USDValue: amount.Mul(usdPrice),
		})
	}
	return balances, nil
}

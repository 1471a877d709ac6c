package coinbasepro

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/pkg/exchange"
)

// QueryAssetMovements returns completed deposits and withdrawals whose
// completion time falls inside [start, end]. Withdrawals are fetched before
// deposits, mirroring the transfer type split of the API.
func (p *Provider) QueryAssetMovements(ctx context.Context, start, end int64) ([]exchange.AssetMovement, error) {
	var rawMovements []json.RawMessage
	for _, transferType := range []string{"withdraw", "deposit"} {
		pager := p.client.newPager("transfers", url.Values{"type": {transferType}})
		entries, err := pager.collectPages(ctx)
		if err != nil {
			return nil, err
		}
		rawMovements = append(rawMovements, entries...)
	}

	accountAssets, err := p.accountCurrencyMap(ctx)
	if err != nil {
		return nil, err
	}

	var movements []exchange.AssetMovement
	for _, raw := range rawMovements {
		var entry transferEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			p.deps.Messages.AddError(
				"Failed to deserialize a coinbasepro deposit/withdrawal. Check logs for details. Ignoring it.")
			continue
		}

		// Pending transfers have no completion time yet.
		if entry.CompletedAt == "" {
			logx.WithContext(ctx).Infof("coinbasepro: skipping transfer %s, not completed yet", entry.ID)
			continue
		}

		timestamp, err := parseTimestamp(entry.CompletedAt)
		if err != nil {
			p.deps.Messages.AddError(
				"Failed to deserialize a coinbasepro deposit/withdrawal. Check logs for details. Ignoring it.")
			logx.WithContext(ctx).Errorf("coinbasepro: transfer %s completed_at: %v", entry.ID, err)
			continue
		}
		if timestamp < start || timestamp > end {
			continue
		}

		category, err := exchange.ParseMovementCategory(entry.Type)
		if err != nil {
			p.deps.Messages.AddError(
				"Failed to deserialize a coinbasepro deposit/withdrawal. Check logs for details. Ignoring it.")
			logx.WithContext(ctx).Errorf("coinbasepro: transfer %s: %v", entry.ID, err)
			continue
		}

		movedAsset, ok := accountAssets[entry.AccountID]
		if !ok {
			logx.WithContext(ctx).Infof(
				"coinbasepro: skipping transfer %s, cannot match account id %s to an asset", entry.ID, entry.AccountID)
			continue
		}

		amount, err := parseDecimal("amount", entry.Amount)
		if err != nil {
			p.deps.Messages.AddError(
				"Failed to deserialize a coinbasepro deposit/withdrawal. Check logs for details. Ignoring it.")
			logx.WithContext(ctx).Errorf("coinbasepro: transfer %s: %v", entry.ID, err)
			continue
		}

		var address, transactionID string
		fee := decimal.Zero
		if category == exchange.MovementDeposit {
			address = entry.Details.CryptoAddress
			transactionID = entry.Details.CryptoTransactionHash
		} else {
			address = entry.Details.SentToAddress
			transactionID = entry.Details.CryptoTransactionHash
			fee, err = parseOptionalFee(entry.Details.Fee)
			if err != nil {
				p.deps.Messages.AddError(
					"Failed to deserialize a coinbasepro deposit/withdrawal. Check logs for details. Ignoring it.")
				logx.WithContext(ctx).Errorf("coinbasepro: transfer %s: %v", entry.ID, err)
				continue
			}
		}

		if transactionID != "" && movedAsset.OnEvmChain() {
			transactionID = "0x" + transactionID
		}

		movements = append(movements, exchange.AssetMovement{
			Location:      p.name,
			Category:      category,
			Timestamp:     timestamp,
			Asset:         movedAsset,
			Amount:        amount.Abs(),
			Fee:           fee,
			FeeAsset:      movedAsset,
			Address:       address,
			TransactionID: transactionID,
			Link:          entry.ID,
		})
	}
	return movements, nil
}

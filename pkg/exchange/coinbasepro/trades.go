package coinbasepro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"folio-api/pkg/asset"
	"folio-api/pkg/exchange"
)

// QueryTradeHistory returns the fills executed inside [start, end]. Orders
// are scanned first to learn which products the account traded, then fills
// are fetched per product. Products missing from the catalog are skipped,
// they have been delisted.
func (p *Provider) QueryTradeHistory(ctx context.Context, start, end int64) ([]exchange.Trade, error) {
	if err := p.FirstConnection(ctx); err != nil {
		return nil, err
	}

	orders, err := p.client.newPager("orders", url.Values{"status": {"done"}}).collectPages(ctx)
	if err != nil {
		return nil, err
	}

	var trades []exchange.Trade
	queriedProducts := make(map[string]struct{})
	for _, rawOrder := range orders {
		var order orderEntry
		if err := json.Unmarshal(rawOrder, &order); err != nil || order.ProductID == "" {
			p.deps.Messages.AddError(
				"Skipping coinbasepro trade since it lacks a product_id. Check logs for details.")
			logx.WithContext(ctx).Errorf("coinbasepro: order %s lacks a product_id", order.ID)
			continue
		}

		if _, queried := queriedProducts[order.ProductID]; queried {
			continue
		}
		if !p.knownProduct(order.ProductID) {
			continue
		}
		queriedProducts[order.ProductID] = struct{}{}

		fills, err := p.client.newPager("fills", url.Values{"product_id": {order.ProductID}}).collectPages(ctx)
		if err != nil {
			return nil, err
		}

		baseAsset, quoteAsset, err := p.splitProduct(ctx, order.ProductID)
		if err != nil {
			var pairErr *exchange.UnprocessablePairError
			switch {
			case errors.As(err, &pairErr):
				p.deps.Messages.AddWarning(fmt.Sprintf(
					"Found unprocessable coinbasepro pair %s. Ignoring the trade.", pairErr.Pair))
			case errors.Is(err, asset.ErrUnknownAsset), errors.Is(err, asset.ErrUnsupportedAsset):
				p.deps.Messages.AddWarning(fmt.Sprintf(
					"Found coinbasepro pair %s with unknown asset. Ignoring the trade.", order.ProductID))
			default:
				return nil, err
			}
			continue
		}

		for _, rawFill := range fills {
			trade, ok := p.deserializeFill(ctx, rawFill, baseAsset, quoteAsset, start, end)
			if !ok {
				continue
			}
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

func (p *Provider) knownProduct(productID string) bool {
	p.productsMu.Lock()
	defer p.productsMu.Unlock()
	_, ok := p.products[productID]
	return ok
}

// splitProduct turns a product code such as BTC-USD into resolved base and
// quote assets.
func (p *Provider) splitProduct(ctx context.Context, productID string) (asset.Asset, asset.Asset, error) {
	parts := strings.Split(productID, "-")
	if len(parts) != 2 {
		return asset.Asset{}, asset.Asset{}, &exchange.UnprocessablePairError{Location: location, Pair: productID}
	}
	baseAsset, err := p.deps.Assets.FromExchangeSymbol(ctx, parts[0])
	if err != nil {
		return asset.Asset{}, asset.Asset{}, err
	}
	quoteAsset, err := p.deps.Assets.FromExchangeSymbol(ctx, parts[1])
	if err != nil {
		return asset.Asset{}, asset.Asset{}, err
	}
	return baseAsset, quoteAsset, nil
}

// deserializeFill maps one fill entry into a trade. Fills outside the window
// and malformed entries report false; the latter also notify the sink.
func (p *Provider) deserializeFill(
	ctx context.Context,
	raw json.RawMessage,
	baseAsset, quoteAsset asset.Asset,
	start, end int64,
) (exchange.Trade, bool) {
	fail := func(id string, err error) (exchange.Trade, bool) {
		p.deps.Messages.AddError(
			"Failed to deserialize a coinbasepro trade. Check logs for details. Ignoring it.")
		logx.WithContext(ctx).Errorf("coinbasepro: fill %s: %v", id, err)
		return exchange.Trade{}, false
	}

	var fill fillEntry
	if err := json.Unmarshal(raw, &fill); err != nil {
		return fail("", err)
	}
	if fill.TradeID.String() == "" || fill.OrderID == "" {
		return fail(fill.OrderID, fmt.Errorf("missing trade_id or order_id"))
	}

	timestamp, err := parseTimestamp(fill.CreatedAt)
	if err != nil {
		return fail(fill.OrderID, err)
	}
	if timestamp < start || timestamp > end {
		return exchange.Trade{}, false
	}

	side, err := exchange.ParseTradeSide(fill.Side)
	if err != nil {
		return fail(fill.OrderID, err)
	}
	amount, err := parseDecimal("size", fill.Size)
	if err != nil {
		return fail(fill.OrderID, err)
	}
	rate, err := parseDecimal("price", fill.Price)
	if err != nil {
		return fail(fill.OrderID, err)
	}
	fee, err := parseOptionalFee(fill.Fee)
	if err != nil {
		return fail(fill.OrderID, err)
	}

	// The fee currency is always the quote asset.
	return exchange.Trade{
		Timestamp:  timestamp,
		Location:   p.name,
		BaseAsset:  baseAsset,
		QuoteAsset: quoteAsset,
		Side:       side,
		Amount:     amount,
		Rate:       rate,
		Fee:        fee,
		FeeAsset:   quoteAsset,
		Link:       fill.TradeID.String() + "_" + fill.OrderID,
		Notes:      "",
	}, true
}

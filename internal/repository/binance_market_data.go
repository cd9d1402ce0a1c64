package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"SigPull/internal/domain/models"
	domrepo "SigPull/internal/domain/repository"
	applogger "SigPull/pkg/logger"
)

// BinanceMarketData implements MarketData over Binance spot REST.
// Symbols are bare coin tickers; pairs are formed against USDT.
type BinanceMarketData struct {
	client *binance.Client
	quote  string
	l      *applogger.Logger
}

func NewBinanceMarketData(apiKey, secret string, l *applogger.Logger) *BinanceMarketData {
	return &BinanceMarketData{
		client: binance.NewClient(apiKey, secret),
		quote:  "USDT",
		l:      l,
	}
}

var _ domrepo.MarketData = (*BinanceMarketData)(nil)

// GetOHLCV fetches up to limit closed candles, oldest first.
func (b *BinanceMarketData) GetOHLCV(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	start := time.Now()
	pair := b.pair(symbol)

	klines, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: klines %s %s: %v", domrepo.ErrDataUnavailable, pair, tf, err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("%w: no klines for %s %s", domrepo.ErrDataUnavailable, pair, tf)
	}

	out := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s: %w", pair, err)
		}
		out = append(out, c)
	}

	b.l.Debug("klines fetched",
		applogger.String("pair", pair),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

// GetLatestPrice fetches the current spot price for the symbol's USDT pair.
func (b *BinanceMarketData) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	pair := b.pair(symbol)
	prices, err := b.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: price %s: %v", domrepo.ErrDataUnavailable, pair, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no price for %s", domrepo.ErrDataUnavailable, pair)
	}
	p, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %s: %w", pair, err)
	}
	return p, nil
}

func (b *BinanceMarketData) pair(symbol string) string {
	return strings.ToUpper(symbol) + b.quote
}

func parseKline(k *binance.Kline) (models.Candle, error) {
	var c models.Candle
	var err error
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, err
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, err
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, err
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, err
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, err
	}
	c.Timestamp = time.UnixMilli(k.OpenTime).UTC()
	return c, nil
}

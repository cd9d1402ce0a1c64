package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"SigPull/internal/domain/models"
	domrepo "SigPull/internal/domain/repository"
	"SigPull/internal/service/ratelimit"
	xhttp "SigPull/pkg/http"
	applogger "SigPull/pkg/logger"
)

// CoinGeckoCatalog implements CoinCatalog over the CoinGecko REST API.
// It remembers the symbol->id mapping from the last markets call so batched
// price lookups can be keyed by symbol.
type CoinGeckoCatalog struct {
	client  *xhttp.Client
	baseURL string
	limiter *ratelimit.Limiter
	l       *applogger.Logger

	mu       sync.RWMutex
	symbolID map[string]string
}

func NewCoinGeckoCatalog(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter, l *applogger.Logger) *CoinGeckoCatalog {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGeckoCatalog{
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		baseURL:  strings.TrimRight(baseURL, "/"),
		limiter:  limiter,
		l:        l,
		symbolID: make(map[string]string),
	}
}

var _ domrepo.CoinCatalog = (*CoinGeckoCatalog)(nil)

type cgMarket struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`
	MarketCap      float64 `json:"market_cap"`
	TotalVolume    float64 `json:"total_volume"`
}

// GetTopCoins lists markets ranked by capitalization.
func (c *CoinGeckoCatalog) GetTopCoins(ctx context.Context, limit int) ([]models.Coin, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	var rows []cgMarket
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/coins/markets",
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"order":       {"market_cap_desc"},
			"per_page":    {strconv.Itoa(limit)},
			"page":        {"1"},
			"sparkline":   {"false"},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko markets: %v", domrepo.ErrDataUnavailable, err)
	}

	coins := make([]models.Coin, 0, len(rows))
	c.mu.Lock()
	for _, r := range rows {
		sym := strings.ToUpper(r.Symbol)
		c.symbolID[sym] = r.ID
		coins = append(coins, models.Coin{
			Symbol:         sym,
			ID:             r.ID,
			Name:           r.Name,
			CurrentPrice:   r.CurrentPrice,
			PriceChange24h: r.PriceChange24h,
			MarketCap:      r.MarketCap,
			TotalVolume:    r.TotalVolume,
		})
	}
	c.mu.Unlock()

	c.l.Debug("catalog fetched", applogger.Int("coins", len(coins)))
	return coins, nil
}

// GetSimplePrices fetches current USD prices for symbols in one call.
// Symbols with no known id (never seen in a markets response) are skipped.
func (c *CoinGeckoCatalog) GetSimplePrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	ids := make([]string, 0, len(symbols))
	idToSymbol := make(map[string]string, len(symbols))

	c.mu.RLock()
	for _, sym := range symbols {
		sym = strings.ToUpper(sym)
		if id, ok := c.symbolID[sym]; ok {
			ids = append(ids, id)
			idToSymbol[id] = sym
		}
	}
	c.mu.RUnlock()

	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	var raw map[string]map[string]float64
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/simple/price",
		QueryParams: map[string][]string{
			"ids":           {strings.Join(ids, ",")},
			"vs_currencies": {"usd"},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko prices: %v", domrepo.ErrDataUnavailable, err)
	}

	out := make(map[string]float64, len(raw))
	for id, quote := range raw {
		if sym, ok := idToSymbol[id]; ok {
			if usd, ok := quote["usd"]; ok && usd > 0 {
				out[sym] = usd
			}
		}
	}
	return out, nil
}

// pace enforces the public API rate budget, waiting for a token or the
// context, whichever comes first.
func (c *CoinGeckoCatalog) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	for !c.limiter.Allow("coingecko", 10, 0.5) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil
}

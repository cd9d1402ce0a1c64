package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"SigPull/internal/domain/models"
	drepo "SigPull/internal/domain/repository"
	applogger "SigPull/pkg/logger"
)

// BinancePriceStream implements PriceStream over the Binance combined
// miniTicker WebSocket. Symbols are bare coin tickers paired against USDT.
type BinancePriceStream struct {
	baseURL        string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

func NewBinancePriceStream(baseURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.PriceStream {
	if baseURL == "" {
		baseURL = "wss://stream.binance.com:9443"
	}
	return &BinancePriceStream{
		baseURL:        baseURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect dials the combined stream for all configured symbols.
func (s *BinancePriceStream) Connect(ctx context.Context) error {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(sym)+"usdt@miniTicker")
	}
	u := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("price stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.l.Info("price stream connected", applogger.Strings("symbols", s.symbols))
	return nil
}

type miniTicker struct {
	Symbol    string `json:"s"`
	Close     string `json:"c"`
	EventTime int64  `json:"E"` // ms
}

type combinedFrame struct {
	Stream string     `json:"stream"`
	Data   miniTicker `json:"data"`
}

// Read streams price ticks and errors until the context ends or the
// connection drops.
func (s *BinancePriceStream) Read(ctx context.Context) (<-chan models.PriceTick, <-chan error) {
	ticks := make(chan models.PriceTick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("price stream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("price stream read: %w", err)
					return
				}
				var frame combinedFrame
				if err := json.Unmarshal(b, &frame); err != nil {
					// ignore non-ticker frames
					continue
				}
				if frame.Data.Symbol == "" {
					continue
				}
				price, err := strconv.ParseFloat(frame.Data.Close, 64)
				if err != nil || price <= 0 {
					continue
				}
				tick := models.PriceTick{
					Symbol:    strings.TrimSuffix(frame.Data.Symbol, "USDT"),
					Price:     price,
					Timestamp: time.UnixMilli(frame.Data.EventTime).UTC(),
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and reconnects.
func (s *BinancePriceStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	return s.Connect(ctx)
}

// Close closes the WS connection.
func (s *BinancePriceStream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *BinancePriceStream) IsConnected() bool { return s.connected }

package kraken

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Channel names on the Kraken v1 public websocket.
const (
	ChannelTicker = "ticker"
	ChannelTrade  = "trade"
	ChannelOHLC   = "ohlc"
)

type subscribeReq struct {
	Event        string          `json:"event"`
	Pair         []string        `json:"pair"`
	Subscription subscriptionOpt `json:"subscription"`
}

type subscriptionOpt struct {
	Name     string `json:"name"`
	Interval int    `json:"interval,omitempty"`
	Depth    int    `json:"depth,omitempty"`
}

// controlMsg covers every object-shaped frame the server sends:
// systemStatus, subscriptionStatus, heartbeat, pong, error.
type controlMsg struct {
	Event        string `json:"event"`
	Status       string `json:"status,omitempty"`
	Pair         string `json:"pair,omitempty"`
	ChannelName  string `json:"channelName,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// dataFrame is the array envelope [channelID, payload, channelName, pair].
// Some channels (ohlc) insert extra payload elements; channelName and pair
// are always the last two entries.
type dataFrame struct {
	channelName string
	pair        string
	payload     json.RawMessage
}

var errNotDataFrame = errors.New("not a data frame")

func parseDataFrame(b []byte) (*dataFrame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return nil, errNotDataFrame
	}
	if len(parts) < 4 {
		return nil, fmt.Errorf("short data frame: %d elements", len(parts))
	}
	var name, pair string
	if err := json.Unmarshal(parts[len(parts)-2], &name); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(parts[len(parts)-1], &pair); err != nil {
		return nil, err
	}
	return &dataFrame{channelName: name, pair: pair, payload: parts[1]}, nil
}

// tickerPayload carries the fields we consume from the ticker channel.
// Kraken encodes numbers as strings inside small arrays.
type tickerPayload struct {
	Close []string `json:"c"` // [price, lot volume]
	Open  []string `json:"o"` // [today, last 24h]
}

func (p *tickerPayload) last() (price, change24h float64, err error) {
	if len(p.Close) == 0 {
		return 0, 0, errors.New("ticker payload missing close")
	}
	price, err = strconv.ParseFloat(p.Close[0], 64)
	if err != nil {
		return 0, 0, err
	}
	if len(p.Open) > 1 {
		if open, perr := strconv.ParseFloat(p.Open[1], 64); perr == nil && open > 0 {
			change24h = (price - open) / open * 100
		}
	}
	return price, change24h, nil
}

// tradePayload is a list of prints: [price, volume, time, side, orderType, misc].
type tradePayload [][]json.RawMessage

func (p tradePayload) prints(pair string) []TradeEvent {
	out := make([]TradeEvent, 0, len(p))
	for _, t := range p {
		if len(t) < 3 {
			continue
		}
		var priceStr, volStr, tsStr string
		if json.Unmarshal(t[0], &priceStr) != nil ||
			json.Unmarshal(t[1], &volStr) != nil ||
			json.Unmarshal(t[2], &tsStr) != nil {
			continue
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			continue
		}
		vol, _ := strconv.ParseFloat(volStr, 64)
		tsf, _ := strconv.ParseFloat(tsStr, 64)
		out = append(out, TradeEvent{
			Pair:   pair,
			Price:  price,
			Volume: vol,
			At:     time.Unix(int64(tsf), 0),
		})
	}
	return out
}

// ohlcPayload is [time, etime, open, high, low, close, vwap, volume, count].
type ohlcPayload []json.RawMessage

func (p ohlcPayload) candle(pair string) (CandleEvent, error) {
	if len(p) < 8 {
		return CandleEvent{}, fmt.Errorf("short ohlc payload: %d elements", len(p))
	}
	f := func(i int) float64 {
		var s string
		if json.Unmarshal(p[i], &s) != nil {
			return 0
		}
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	etime := f(1)
	return CandleEvent{
		Pair:   pair,
		Open:   f(2),
		High:   f(3),
		Low:    f(4),
		Close:  f(5),
		Volume: f(7),
		At:     time.Unix(int64(etime), 0),
	}, nil
}

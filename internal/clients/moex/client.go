// Package moex provides a client for the Moscow Exchange ISS API.
package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fincalc/internal/domain"
)

const (
	// DefaultBaseURL is the public ISS endpoint.
	DefaultBaseURL = "https://iss.moex.com/iss"

	dateLayout = "2006-01-02"

	// pageDelay throttles pagination so long backfills stay polite to
	// the public API.
	pageDelay = 250 * time.Millisecond
)

// boardRoute locates a security on the exchange.
type boardRoute struct {
	engine string
	market string
	board  string
}

// Indices live on dedicated boards; everything else trades as a share on
// the main TQBR board.
var boardRoutes = map[string]boardRoute{
	"IMOEX": {engine: "stock", market: "index", board: "SNDX"},
	"MCFTR": {engine: "stock", market: "index", board: "RTSI"},
}

var defaultRoute = boardRoute{engine: "stock", market: "shares", board: "TQBR"}

// catalogue is the fixed set of instruments the application serves.
var catalogue = []domain.Instrument{
	{Ticker: "SBER", Name: "Sberbank"},
	{Ticker: "GAZP", Name: "Gazprom"},
	{Ticker: "LKOH", Name: "Lukoil"},
	{Ticker: "YNDX", Name: "Yandex"},
	{Ticker: "MOEX", Name: "Moscow Exchange"},
	{Ticker: "IMOEX", Name: "MOEX Russia Index"},
	{Ticker: "MCFTR", Name: "MOEX Total Return Index"},
}

// Client for the MOEX ISS history API.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new ISS client. An empty baseURL selects the public
// endpoint.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "moex-iss").Logger(),
	}
}

// Instruments returns the served catalogue.
func (c *Client) Instruments() []domain.Instrument {
	out := make([]domain.Instrument, len(catalogue))
	copy(out, catalogue)
	return out
}

// issResponse mirrors the ISS block layout: a column name list plus rows of
// positional values.
type issResponse struct {
	History struct {
		Columns []string        `json:"columns"`
		Data    [][]interface{} `json:"data"`
	} `json:"history"`
	Cursor struct {
		Columns []string        `json:"columns"`
		Data    [][]interface{} `json:"data"`
	} `json:"history.cursor"`
}

// FetchHistory downloads the daily history for a ticker over the inclusive
// date range, following the ISS cursor across pages.
func (c *Client) FetchHistory(ctx context.Context, ticker string, start, end time.Time) ([]domain.PricePoint, error) {
	route, ok := boardRoutes[ticker]
	if !ok {
		route = defaultRoute
	}

	log := c.log.With().Str("ticker", ticker).Logger()
	log.Debug().
		Str("from", start.Format(dateLayout)).
		Str("to", end.Format(dateLayout)).
		Str("board", route.board).
		Msg("Fetching history")

	var points []domain.PricePoint
	offset := 0
	for {
		page, next, err := c.fetchPage(ctx, ticker, route, start, end, offset)
		if err != nil {
			return nil, err
		}
		points = append(points, page...)

		if next < 0 {
			break
		}
		offset = next

		// Pause between pages; a cancelled context cuts the backfill
		// short instead of sleeping through it.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}

	log.Info().Int("points", len(points)).Msg("History fetched")
	return points, nil
}

// fetchPage requests one cursor page. The second return is the next page
// offset, or -1 when the cursor is exhausted.
func (c *Client) fetchPage(ctx context.Context, ticker string, route boardRoute, start, end time.Time, offset int) ([]domain.PricePoint, int, error) {
	endpoint := fmt.Sprintf("%s/history/engines/%s/markets/%s/boards/%s/securities/%s.json",
		c.baseURL, route.engine, route.market, route.board, url.PathEscape(ticker))

	params := url.Values{}
	params.Set("from", start.Format(dateLayout))
	params.Set("till", end.Format(dateLayout))
	params.Set("start", fmt.Sprintf("%d", offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, -1, fmt.Errorf("ISS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, -1, fmt.Errorf("ISS returned status %d for %s", resp.StatusCode, ticker)
	}

	var body issResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, -1, fmt.Errorf("failed to parse ISS response: %w", err)
	}

	points, err := parseHistory(ticker, body)
	if err != nil {
		return nil, -1, err
	}

	return points, nextOffset(body, offset), nil
}

// parseHistory converts positional ISS rows into price points using the
// column name map.
func parseHistory(ticker string, body issResponse) ([]domain.PricePoint, error) {
	cols := columnIndex(body.History.Columns)

	dateIdx, ok := cols["TRADEDATE"]
	if !ok {
		return nil, fmt.Errorf("ISS response missing TRADEDATE column")
	}
	closeIdx, ok := cols["CLOSE"]
	if !ok {
		return nil, fmt.Errorf("ISS response missing CLOSE column")
	}

	var points []domain.PricePoint
	for _, row := range body.History.Data {
		dateStr, ok := stringAt(row, dateIdx)
		if !ok {
			continue
		}
		tradeDate, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("invalid trade date %q: %w", dateStr, err)
		}

		closePrice, ok := floatAt(row, closeIdx)
		if !ok || closePrice <= 0 {
			// Non-trading rows carry null closes; skip them.
			continue
		}

		p := domain.PricePoint{
			Ticker:    ticker,
			TradeDate: tradeDate,
			Close:     closePrice,
		}
		if idx, ok := cols["OPEN"]; ok {
			p.Open, _ = floatAt(row, idx)
		}
		if idx, ok := cols["HIGH"]; ok {
			p.High, _ = floatAt(row, idx)
		}
		if idx, ok := cols["LOW"]; ok {
			p.Low, _ = floatAt(row, idx)
		}
		if idx, ok := cols["VOLUME"]; ok {
			if v, ok := floatAt(row, idx); ok {
				vol := int64(v)
				p.Volume = &vol
			}
		}
		if idx, ok := cols["VALUE"]; ok {
			if v, ok := floatAt(row, idx); ok {
				p.Value = &v
			}
		}

		points = append(points, p)
	}

	return points, nil
}

// nextOffset reads the history.cursor block: INDEX + PAGESIZE gives the
// next page start, -1 means done.
func nextOffset(body issResponse, current int) int {
	cols := columnIndex(body.Cursor.Columns)
	idxCol, okIdx := cols["INDEX"]
	totalCol, okTotal := cols["TOTAL"]
	sizeCol, okSize := cols["PAGESIZE"]
	if !okIdx || !okTotal || !okSize || len(body.Cursor.Data) == 0 {
		return -1
	}

	row := body.Cursor.Data[0]
	index, okA := floatAt(row, idxCol)
	total, okB := floatAt(row, totalCol)
	pageSize, okC := floatAt(row, sizeCol)
	if !okA || !okB || !okC {
		return -1
	}

	next := int(index) + int(pageSize)
	if next >= int(total) {
		return -1
	}
	// Guard against a cursor that fails to advance.
	if next <= current {
		return -1
	}
	return next
}

func columnIndex(columns []string) map[string]int {
	m := make(map[string]int, len(columns))
	for i, name := range columns {
		m[name] = i
	}
	return m
}

func stringAt(row []interface{}, idx int) (string, bool) {
	if idx >= len(row) {
		return "", false
	}
	s, ok := row[idx].(string)
	return s, ok
}

func floatAt(row []interface{}, idx int) (float64, bool) {
	if idx >= len(row) {
		return 0, false
	}
	f, ok := row[idx].(float64)
	return f, ok
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// EastMoneyProvider fetches index klines from the East Money public
// chart API, the same source the desktop tool used for CSI 300 data.
type EastMoneyProvider struct {
	Client  *http.Client
	BaseURL string

	// SecIDMap maps plain symbols to East Money security ids
	// ("market.code"; 1 is Shanghai, 0 is Shenzhen).
	SecIDMap map[string]string
}

const defaultBaseURL = "https://push2his.eastmoney.com"

// NewEastMoneyProvider builds a provider with sane HTTP timeouts. baseURL
// may be empty to use the public endpoint; tests point it at a stub server.
func NewEastMoneyProvider(baseURL string, timeout time.Duration) *EastMoneyProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EastMoneyProvider{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		SecIDMap: map[string]string{
			"000300": "1.000300", // CSI 300
			"000001": "1.000001", // SSE Composite
			"399001": "0.399001", // SZSE Component
		},
	}
}

func (p *EastMoneyProvider) Name() string { return "eastmoney" }

func (p *EastMoneyProvider) secID(symbol string) string {
	if id, ok := p.SecIDMap[symbol]; ok {
		return id
	}
	// Shanghai codes start with 6 or 0 (indexes); default there.
	if strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "0") {
		return "1." + symbol
	}
	return "0." + symbol
}

// kltCodes maps periods to East Money kline type codes.
var kltCodes = map[models.Period]string{
	models.Period1Min:  "1",
	models.Period5Min:  "5",
	models.Period30Min: "30",
	models.PeriodDaily: "101",
}

// klineResponse is the wire shape of the kline endpoint.
type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// klineColumns is the field order requested via fields2 below.
var klineColumns = []string{"datetime", "open", "close", "high", "low", "volume"}

// FetchRaw issues exactly one request against the kline endpoint and
// returns its rows as a raw table. An empty response is returned as an
// empty table, not an error; classifying that is the fetch task's job.
func (p *EastMoneyProvider) FetchRaw(ctx context.Context, symbol string, period models.Period, rng models.DateRange) (*models.RawTable, error) {
	klt, ok := kltCodes[period]
	if !ok {
		return nil, fmt.Errorf("eastmoney: unsupported period %q", period)
	}

	q := url.Values{}
	q.Set("secid", p.secID(symbol))
	q.Set("klt", klt)
	q.Set("fqt", "1")
	q.Set("beg", compactDate(rng.Start))
	q.Set("end", compactDate(rng.End))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")

	u := p.BaseURL + "/api/qt/stock/kline/get?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eastmoney fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eastmoney read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}

	var out klineResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("eastmoney decode: %w", err)
	}

	table := &models.RawTable{Columns: klineColumns}
	if out.Data == nil {
		return table, nil
	}
	for _, line := range out.Data.Klines {
		cells := strings.Split(line, ",")
		if len(cells) > len(klineColumns) {
			cells = cells[:len(klineColumns)]
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func compactDate(d civil.Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

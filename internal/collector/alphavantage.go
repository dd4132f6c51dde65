package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"QuoteSentinel/internal/model"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage TIME_SERIES_DAILY endpoint.
type AlphaVantageFetcher struct {
	Client  *http.Client
	APIKey  string
	BaseURL string
	Days    int // most recent days kept per call
}

// NewAlphaVantageFetcher creates a new Alpha Vantage fetcher.
func NewAlphaVantageFetcher(apiKey, proxyURL string, days int) *AlphaVantageFetcher {
	return &AlphaVantageFetcher{
		Client:  newHTTPClient(proxyURL),
		APIKey:  apiKey,
		BaseURL: alphaVantageURL,
		Days:    days,
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

type avDaily struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type avResponse struct {
	ErrorMessage string             `json:"Error Message"`
	Note         string             `json:"Note"`
	Information  string             `json:"Information"`
	Series       map[string]avDaily `json:"Time Series (Daily)"`
}

func (f *AlphaVantageFetcher) FetchDaily(ctx context.Context, symbol string) ([]model.Bar, error) {
	bars, err := f.fetch(ctx, symbol)
	if err != nil {
		return nil, upstreamErr(f.Name(), symbol, err)
	}
	return bars, nil
}

func (f *AlphaVantageFetcher) fetch(ctx context.Context, symbol string) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("apikey", f.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}

	var av avResponse
	if err := json.Unmarshal(body, &av); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	switch {
	case av.ErrorMessage != "":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, av.ErrorMessage)
	case av.Note != "":
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, av.Note)
	case av.Information != "":
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, av.Information)
	case len(av.Series) == 0:
		return nil, errors.New("no time series data found")
	}

	bars := make([]model.Bar, 0, len(av.Series))
	for date, d := range av.Series {
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			continue
		}
		b, err := d.bar(date)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", date, err)
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return lastN(bars, f.Days), nil
}

func (d avDaily) bar(date string) (model.Bar, error) {
	var vals [5]float64
	for i, s := range []string{d.Open, d.High, d.Low, d.Close, d.Volume} {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return model.Bar{}, err
		}
		vals[i] = v.InexactFloat64()
	}
	return model.Bar{
		Date:   date,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
		Price:  vals[3],
	}, nil
}

// newHTTPClient builds a client that optionally routes through proxyURL.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// Package prices supplies current quotes for reporting and rules. The
// rebuild core never calls into this package; stale or missing prices can
// never affect lot or disposal state.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/Millstreamu/StockTrak/log"
)

type Quote struct {
	Symbol string
	Price  decimal.Decimal
	AsOf   time.Time
	Source string
	Stale  bool
}

type Provider interface {
	Fetch(ctx context.Context, symbols []string) (map[string]Quote, error)
}

type quoteJson struct {
	Symbol   string `json:"symbol"`
	PriceStr string `json:"price"`
	AsOf     string `json:"asof"`
}

// HTTPProvider fetches one quote per request from a JSON endpoint of the form
// <base>?symbol=CSL.AX. Requests are rate limited so a large symbol list does
// not hammer the provider.
type HTTPProvider struct {
	BaseURL   string
	SuffixMap map[string]string
	Client    *http.Client

	limiter *rate.Limiter
}

func NewHTTPProvider(baseURL string, suffixMap map[string]string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL:   baseURL,
		SuffixMap: suffixMap,
		Client:    &http.Client{Timeout: 20 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}
}

// ProviderSymbol applies the configured exchange suffix, e.g. CSL on ASX
// becomes CSL.AX.
func (p *HTTPProvider) ProviderSymbol(symbol, exchange string) string {
	if suffix, ok := p.SuffixMap[exchange]; ok {
		return symbol + suffix
	}
	return symbol
}

func (p *HTTPProvider) Fetch(ctx context.Context, symbols []string) (map[string]Quote, error) {
	quotes := make(map[string]Quote, len(symbols))
	for _, symbol := range symbols {
		if err := p.limiter.Wait(ctx); err != nil {
			return quotes, err
		}
		q, err := p.fetchOne(ctx, symbol)
		if err != nil {
			log.Fverbosef(os.Stderr, "price fetch for %s failed: %v\n", symbol, err)
			continue
		}
		quotes[symbol] = q
	}
	if len(quotes) == 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("no quotes could be fetched for %d symbols", len(symbols))
	}
	return quotes, nil
}

func (p *HTTPProvider) fetchOne(ctx context.Context, symbol string) (Quote, error) {
	u := fmt.Sprintf("%s?symbol=%s", p.BaseURL, url.QueryEscape(symbol))
	log.Fverbosef(os.Stderr, "getting %s\n", u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("getting quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote for %s: status %s", symbol, resp.Status)
	}

	var body quoteJson
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("decoding quote for %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(body.PriceStr)
	if err != nil {
		return Quote{}, fmt.Errorf("quote for %s has bad price %q: %w", symbol, body.PriceStr, err)
	}
	asOf, err := time.Parse(time.RFC3339, body.AsOf)
	if err != nil {
		asOf = time.Now()
	}
	return Quote{Symbol: symbol, Price: price, AsOf: asOf, Source: p.BaseURL}, nil
}

// Service caches provider quotes for the configured TTL and marks quotes
// older than the stale window. Provider failures fall back to cached quotes
// where available.
type Service struct {
	provider   Provider
	cache      *cache.Cache
	staleAfter time.Duration
	now        func() time.Time
}

func NewService(provider Provider, ttl, staleAfter time.Duration) *Service {
	return &Service{
		provider:   provider,
		cache:      cache.New(ttl, 2*ttl),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (s *Service) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	quotes := make(map[string]Quote, len(symbols))
	var missing []string
	for _, symbol := range symbols {
		if v, ok := s.cache.Get(symbol); ok {
			quotes[symbol] = s.markStaleness(v.(Quote))
		} else {
			missing = append(missing, symbol)
		}
	}
	if len(missing) == 0 {
		return quotes, nil
	}

	fetched, err := s.provider.Fetch(ctx, missing)
	for symbol, q := range fetched {
		s.cache.SetDefault(symbol, q)
		quotes[symbol] = s.markStaleness(q)
	}
	if err != nil && len(quotes) == 0 {
		return nil, err
	}
	return quotes, nil
}

func (s *Service) markStaleness(q Quote) Quote {
	q.Stale = s.now().Sub(q.AsOf) > s.staleAfter
	return q
}

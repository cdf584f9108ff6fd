package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"customs-calc/internal/tariff"
	"customs-calc/pkg/config"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var ErrRateUnavailable = errors.New("exchange rate unavailable")

// RateProvider supplies official UAH exchange rates for a valuation date.
type RateProvider interface {
	GetRates(ctx context.Context, date time.Time) (tariff.RateSet, error)
}

// nbuRate is one element of the NBU exchange endpoint response.
type nbuRate struct {
	R030         int     `json:"r030"`
	Txt          string  `json:"txt"`
	Rate         float64 `json:"rate"`
	CC           string  `json:"cc"`
	ExchangeDate string  `json:"exchangedate"`
}

// RateService queries the National Bank of Ukraine exchange directory.
type RateService struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	logger     *zap.Logger
}

func NewRateService(cfg *config.NBUConfig, logger *zap.Logger) *RateService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RateService{
		baseURL:    cfg.BaseURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		cache:      cache.New(ttl, 2*ttl),
		logger:     logger,
	}
}

// GetRate returns the UAH value of one unit of currency on date.
// Any transport, status or decoding failure is reported as ErrRateUnavailable.
func (s *RateService) GetRate(ctx context.Context, currency tariff.Currency, date time.Time) (float64, error) {
	if currency == tariff.CurrencyUAH {
		return 1.0, nil
	}

	day := date.Format("20060102")
	key := string(currency) + ":" + day
	if v, ok := s.cache.Get(key); ok {
		return v.(float64), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %s on %s: %v", ErrRateUnavailable, currency, day, err)
	}

	params := url.Values{
		"valcode": {string(currency)},
		"date":    {day},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode()+"&json", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("NBU request failed", zap.String("currency", string(currency)), zap.String("date", day), zap.Error(err))
		return 0, fmt.Errorf("%w: %s on %s: %v", ErrRateUnavailable, currency, day, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("NBU returned non-OK status",
			zap.String("currency", string(currency)),
			zap.String("date", day),
			zap.Int("status", resp.StatusCode),
		)
		return 0, fmt.Errorf("%w: %s on %s: status %d", ErrRateUnavailable, currency, day, resp.StatusCode)
	}

	var rates []nbuRate
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return 0, fmt.Errorf("%w: failed to decode response: %v", ErrRateUnavailable, err)
	}
	if len(rates) == 0 || rates[0].Rate <= 0 {
		return 0, fmt.Errorf("%w: no %s rate published for %s", ErrRateUnavailable, currency, day)
	}

	s.cache.Set(key, rates[0].Rate, cache.DefaultExpiration)
	s.logger.Debug("NBU rate fetched",
		zap.String("currency", string(currency)),
		zap.String("date", day),
		zap.Float64("rate", rates[0].Rate),
	)

	return rates[0].Rate, nil
}

// GetRates fetches USD and EUR concurrently. Either failure fails the set.
func (s *RateService) GetRates(ctx context.Context, date time.Time) (tariff.RateSet, error) {
	set := tariff.RateSet{Date: date}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.GetRate(gctx, tariff.CurrencyUSD, date)
		set.USD = r
		return err
	})
	g.Go(func() error {
		r, err := s.GetRate(gctx, tariff.CurrencyEUR, date)
		set.EUR = r
		return err
	})
	if err := g.Wait(); err != nil {
		return tariff.RateSet{}, err
	}

	return set, nil
}

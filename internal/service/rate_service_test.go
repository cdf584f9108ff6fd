package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customs-calc/internal/tariff"
	"customs-calc/pkg/config"
)

func newNBUServer(t *testing.T, handler http.HandlerFunc) (*RateService, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc := NewRateService(&config.NBUConfig{
		BaseURL:  srv.URL,
		Timeout:  200 * time.Millisecond,
		RPS:      100,
		Burst:    10,
		CacheTTL: time.Minute,
	}, zap.NewNop())
	return svc, &hits
}

func nbuHandler(rates map[string]float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cc := q.Get("valcode")
		rate, ok := rates[cc]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprintf(w, `[{"r030":840,"txt":"test","rate":%v,"cc":%q,"exchangedate":"15.06.2025"}]`, rate, cc)
	}
}

var valuationDay = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestRateService_GetRates(t *testing.T) {
	var gotQuery atomic.Value
	svc, _ := newNBUServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("valcode") == "USD" {
			gotQuery.Store(r.URL.RawQuery)
		}
		nbuHandler(map[string]float64{"USD": 41.25, "EUR": 45.5})(w, r)
	})

	set, err := svc.GetRates(context.Background(), valuationDay)
	require.NoError(t, err)

	assert.Equal(t, 41.25, set.USD)
	assert.Equal(t, 45.5, set.EUR)
	assert.Equal(t, valuationDay, set.Date)
	query, _ := gotQuery.Load().(string)
	assert.Contains(t, query, "date=20250615")
	assert.Contains(t, query, "json")
}

func TestRateService_CachesPerCurrencyAndDate(t *testing.T) {
	svc, hits := newNBUServer(t, nbuHandler(map[string]float64{"USD": 41, "EUR": 45}))
	ctx := context.Background()

	_, err := svc.GetRates(ctx, valuationDay)
	require.NoError(t, err)
	_, err = svc.GetRates(ctx, valuationDay)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))

	_, err = svc.GetRates(ctx, valuationDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(hits))
}

func TestRateService_UAHIsOne(t *testing.T) {
	svc, hits := newNBUServer(t, nbuHandler(nil))

	r, err := svc.GetRate(context.Background(), tariff.CurrencyUAH, valuationDay)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestRateService_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty response", nbuHandler(map[string]float64{"USD": 41})},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{not json`)
		}},
		{"zero rate", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"rate":0,"cc":"USD"}]`)
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newNBUServer(t, tt.handler)

			_, err := svc.GetRates(context.Background(), valuationDay)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRateUnavailable)
		})
	}
}

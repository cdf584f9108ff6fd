package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customs-calc/internal/api/handlers"
	"customs-calc/internal/intake"
	"customs-calc/internal/repository"
	"customs-calc/internal/service"
	"customs-calc/internal/tariff"
	"customs-calc/pkg/auth"
	"customs-calc/pkg/config"
)

func newTestHandlers() Handlers {
	logger := zap.NewNop()
	rates := service.NewRateService(&config.NBUConfig{BaseURL: "http://127.0.0.1:0", Timeout: time.Millisecond, RPS: 1, Burst: 1}, logger)
	calc := service.NewCalculationService(tariff.NewEngine(time.Now), rates, nil, repository.NewCalculationMirror(10), time.Second, logger)
	sessions := intake.NewStore(time.Minute, time.Minute, func() *intake.Machine { return intake.NewMachine() })
	dialogue := service.NewDialogueService(sessions, calc, logger)

	return Handlers{
		Calculation: handlers.NewCalculationHandler(calc, 5, false, logger),
		Rate:        handlers.NewRateHandler(calc, logger),
		Dialogue:    handlers.NewDialogueHandler(dialogue, logger),
		Admin:       handlers.NewAdminHandler(calc, logger),
	}
}

func TestSetupRouter(t *testing.T) {
	app := SetupRouter(newTestHandlers(), auth.NewJWTManager("secret", time.Hour), zap.NewNop())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/dialogue/5", http.StatusOK},
		{http.MethodGet, "/api/v1/admin/stats", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/admin/export", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestSetupRouter_AdminDisabledWithoutSecret(t *testing.T) {
	cfg := config.JWTConfig{SecretKey: config.DefaultJWTSecret, Expiration: time.Hour}
	require.False(t, cfg.Configured())

	token, err := auth.NewJWTManager(cfg.SecretKey, cfg.Expiration).GenerateToken(1, auth.RoleAdmin)
	require.NoError(t, err)

	app := SetupRouter(newTestHandlers(), nil, zap.NewNop())

	for _, path := range []string{"/api/v1/admin/stats", "/api/v1/admin/export"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

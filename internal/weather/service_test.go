package weather_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakbaysafe/lakbaysafe/internal/weather"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu         sync.Mutex
	callCount  int
	conditions map[string]string
	err        error
}

func newMockProvider() *mockProvider {
	return &mockProvider{conditions: make(map[string]string)}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetCurrentWeather(_ context.Context, lat, lon float64) (*weather.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++

	if m.err != nil {
		return nil, m.err
	}

	condition := "clear sky"
	if c, ok := m.conditions[pointKey(lat, lon)]; ok {
		condition = c
	}

	return &weather.Observation{
		Lat:         lat,
		Lon:         lon,
		Temperature: 30.0,
		Humidity:    70.0,
		Condition:   condition,
		FetchedAt:   time.Now(),
	}, nil
}

func (m *mockProvider) setCondition(lat, lon float64, condition string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditions[pointKey(lat, lon)] = condition
}

func pointKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f:%.4f", lat, lon)
}

func (m *mockProvider) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func TestService_GetCurrentWeather(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	obs, err := service.GetCurrentWeather(context.Background(), 14.4504, 121.0170)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 14.4504, obs.Lat)
	assert.Equal(t, 121.0170, obs.Lon)
	assert.Equal(t, 30.0, obs.Temperature)
	assert.Equal(t, "clear sky", obs.Condition)
}

func TestService_GetCurrentWeather_Caching(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 30 * time.Minute,
	})

	_, err := service.GetCurrentWeather(context.Background(), 14.4504, 121.0170)
	require.NoError(t, err)

	// Same grid cell, should be served from cache
	_, err = service.GetCurrentWeather(context.Background(), 14.4510, 121.0175)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.getCallCount())

	// Different grid cell triggers a fresh fetch
	_, err = service.GetCurrentWeather(context.Background(), 14.5200, 121.0170)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_GetCurrentWeather_InvalidCoordinates(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Provider: newMockProvider(),
		Logger:   zerolog.Nop(),
	})

	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"lat too high", 91.0, 121.0},
		{"lat too low", -91.0, 121.0},
		{"lon too high", 14.45, 181.0},
		{"lon too low", 14.45, -181.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetCurrentWeather(context.Background(), tt.lat, tt.lon)
			require.Error(t, err)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
		})
	}
}

func TestService_GetCurrentWeather_StaleOnError(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        50 * time.Millisecond,
		StaleIfErrorTTL: 1 * time.Hour,
	})

	obs1, err := service.GetCurrentWeather(context.Background(), 14.4504, 121.0170)
	require.NoError(t, err)
	require.NotNil(t, obs1)

	time.Sleep(80 * time.Millisecond)
	provider.setError(errors.New("api error"))

	obs2, err := service.GetCurrentWeather(context.Background(), 14.4504, 121.0170)
	require.NoError(t, err)
	require.NotNil(t, obs2)
}

func TestService_GetTripConditions_ClearWeather(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	conditions, err := service.GetTripConditions(context.Background(),
		polyline.Coordinate{Lat: 14.4504, Lon: 121.0170},
		polyline.Coordinate{Lat: 14.4380, Lon: 121.0250},
	)
	require.NoError(t, err)
	require.NotNil(t, conditions)

	assert.False(t, conditions.HasRain)
	assert.False(t, conditions.HasFog)
	assert.Equal(t, "clear sky", conditions.Condition)
	assert.Equal(t, 30.0, conditions.Temperature)
	assert.Equal(t, 70.0, conditions.Humidity)
}

func TestService_GetTripConditions_RainAtOneSampleWins(t *testing.T) {
	provider := newMockProvider()
	// Rain at the destination only. Each trip point lands in a distinct
	// grid cell so the destination sample is fetched on its own.
	provider.setCondition(14.4380, 121.0250, "moderate rain")

	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	conditions, err := service.GetTripConditions(context.Background(),
		polyline.Coordinate{Lat: 14.4904, Lon: 121.0170},
		polyline.Coordinate{Lat: 14.4380, Lon: 121.0250},
	)
	require.NoError(t, err)
	require.NotNil(t, conditions)

	assert.True(t, conditions.HasRain)
	assert.Equal(t, "Rain", conditions.Condition)
}

func TestService_GetTripConditions_RainBeatsFog(t *testing.T) {
	provider := newMockProvider()
	provider.setCondition(14.4904, 121.0170, "mist")
	provider.setCondition(14.4380, 121.0250, "thunderstorm")

	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	conditions, err := service.GetTripConditions(context.Background(),
		polyline.Coordinate{Lat: 14.4904, Lon: 121.0170},
		polyline.Coordinate{Lat: 14.4380, Lon: 121.0250},
	)
	require.NoError(t, err)
	require.NotNil(t, conditions)

	assert.True(t, conditions.HasRain)
	assert.True(t, conditions.HasFog)
	assert.Equal(t, "Rain", conditions.Condition)
}

func TestService_GetTripConditions_AllSamplesFail(t *testing.T) {
	provider := newMockProvider()
	provider.setError(errors.New("api down"))

	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	conditions, err := service.GetTripConditions(context.Background(),
		polyline.Coordinate{Lat: 14.4504, Lon: 121.0170},
		polyline.Coordinate{Lat: 14.4380, Lon: 121.0250},
	)
	// Fail-open: no error and no summary
	require.NoError(t, err)
	assert.Nil(t, conditions)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 30 * time.Minute,
	})

	_, err := service.GetCurrentWeather(context.Background(), 14.4504, 121.0170)
	require.NoError(t, err)

	service.InvalidateCache()

	_, err = service.GetCurrentWeather(context.Background(), 14.4504, 121.0170)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_CacheStats(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 30 * time.Minute,
	})

	stats := service.CacheStats()
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, "mock", stats.Provider)

	_, _ = service.GetCurrentWeather(context.Background(), 14.4504, 121.0170)

	stats = service.CacheStats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
}

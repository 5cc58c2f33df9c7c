package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"RelVal/internal/repository"
	"RelVal/internal/service/cache"
	"RelVal/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Data.CSVDir = t.TempDir()
	return cfg
}

func TestInitializeRunnerCSV(t *testing.T) {
	cfg := testConfig(t)
	body := "DATE,Close\n2024-01-02,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Data.CSVDir, "SPY.csv"), []byte(body), 0o644))

	r, cleanup, err := InitializeRunner(cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, r.Analyzer)
	require.NotNil(t, r.Scanner)
}

func TestOptionalProvidersDisabled(t *testing.T) {
	cfg := testConfig(t)
	l, err := ProvideLogger(cfg)
	require.NoError(t, err)

	ch, cleanup, err := ProvideClickHouseClient(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, ch)

	assert.Nil(t, ProvideResultStore(cfg, nil, l))

	p, cleanup, err := ProvideKafkaProducer(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.Nil(t, p)
	assert.Nil(t, ProvideResultPublisher(cfg, nil))

	c, err := ProvideKafkaConsumer(cfg, l, ProvideMetrics(ProvideRegistry()))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestProvidePriceStore(t *testing.T) {
	cfg := testConfig(t)
	l, err := ProvideLogger(cfg)
	require.NoError(t, err)

	ps, err := ProvidePriceStore(cfg, nil, l)
	require.NoError(t, err)
	assert.IsType(t, &repository.CSVPriceStore{}, ps)

	cfg.Data.Source = "clickhouse"
	_, err = ProvidePriceStore(cfg, nil, l)
	assert.Error(t, err)
}

func TestProvideCache(t *testing.T) {
	cfg := testConfig(t)
	l, err := ProvideLogger(cfg)
	require.NoError(t, err)

	c, cleanup, err := ProvideCache(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &cache.TTLCache{}, c)

	cfg.Cache.Backend = "none"
	c, cleanup, err = ProvideCache(cfg, l)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, cache.Noop{}, c)

	mr := miniredis.RunT(t)
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = mr.Addr()
	c, cleanup, err = ProvideCache(cfg, l)
	require.NoError(t, err)
	defer cleanup()
	require.NoError(t, c.SetBytes(context.Background(), "k", []byte("v"), 0))
	assert.True(t, mr.Exists(cfg.Cache.Redis.Prefix+"k"))
}

func TestInitializeApp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0
	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, app)
}

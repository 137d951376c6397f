package layout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/internal/overlay"
	"github.com/mohamedkhairy/market-indicators/internal/storage"
	"github.com/mohamedkhairy/market-indicators/pkg/indicator"
)

func sampleLayout(name string) Layout {
	return Layout{
		Name: name,
		Indicators: []overlay.Spec{
			{ID: "a", Type: indicator.TypeEMA, Visible: true, Config: indicator.Config{"period": 50.0}},
			{ID: "b", Type: indicator.TypeRSI, Visible: false},
		},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	redisStore, err := NewRedisStore(storage.NewMockRedisClient(), "", 0)
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, sampleLayout("swing")))
			require.NoError(t, store.Save(ctx, sampleLayout("intraday")))

			got, err := store.Load(ctx, "swing")
			require.NoError(t, err)
			assert.Equal(t, "swing", got.Name)
			require.Len(t, got.Indicators, 2)
			assert.Equal(t, indicator.TypeEMA, got.Indicators[0].Type)
			assert.Equal(t, 50.0, got.Indicators[0].Config.Float("period"))
			assert.False(t, got.Indicators[1].Visible)
			assert.False(t, got.UpdatedAt.IsZero())

			names, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"intraday", "swing"}, names)

			require.NoError(t, store.Delete(ctx, "swing"))
			require.NoError(t, store.Delete(ctx, "swing"))
			_, err = store.Load(ctx, "swing")
			assert.ErrorIs(t, err, models.ErrLayoutNotFound)

			names, err = store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"intraday"}, names)
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, sampleLayout("main")))

			l := sampleLayout("main")
			l.Indicators = l.Indicators[:1]
			require.NoError(t, store.Save(ctx, l))

			got, err := store.Load(ctx, "main")
			require.NoError(t, err)
			assert.Len(t, got.Indicators, 1)
		})
	}
}

func TestStore_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Save(ctx, Layout{Name: ""}), models.ErrInvalidLayout)
			assert.ErrorIs(t, store.Save(ctx, Layout{Name: "a b"}), models.ErrInvalidLayout)
			assert.ErrorIs(t, store.Save(ctx, Layout{Name: "x", Indicators: []overlay.Spec{{}}}), models.ErrInvalidLayout)
			assert.ErrorIs(t, store.Save(ctx, sampleLayout("names")), models.ErrInvalidLayout)

			names, err := store.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := sampleLayout("main")
	require.NoError(t, store.Save(ctx, l))

	l.Indicators[0].Config["period"] = 10.0
	got, err := store.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Indicators[0].Config.Float("period"))

	got.Indicators[0].Type = indicator.TypeSMA
	again, err := store.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, indicator.TypeEMA, again.Indicators[0].Type)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	mock := storage.NewMockRedisClient()
	store, err := NewRedisStore(mock, "chart:", time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleLayout("main")))
	assert.Contains(t, mock.Data, "chart:main")
	members, err := mock.SetMembers(ctx, "chart:names")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, members)

	assert.ErrorIs(t, store.Save(ctx, sampleLayout("names")), models.ErrInvalidLayout)
}

func TestRedisStore_PrunesExpiredNames(t *testing.T) {
	ctx := context.Background()
	mock := storage.NewMockRedisClient()
	store, err := NewRedisStore(mock, "", 0)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleLayout("main")))
	delete(mock.Data, "layout:main") // simulate TTL expiry

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotContains(t, mock.Sets, "layout:names")
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := NewRedisStore(nil, "", 0)
	assert.Error(t, err)

	mock := storage.NewMockRedisClient()
	store, err := NewRedisStore(mock, "", 0)
	require.NoError(t, err)

	mock.SetErr = errors.New("read only replica")
	assert.ErrorContains(t, store.Save(ctx, sampleLayout("main")), "read only replica")
	mock.SetErr = nil

	require.NoError(t, store.Save(ctx, sampleLayout("main")))
	mock.Data["layout:main"] = `{"name":"main","indicators":[{"visible":true}]}`
	_, err = store.Load(ctx, "main")
	assert.ErrorIs(t, err, models.ErrInvalidLayout)
}

func TestParsePreset(t *testing.T) {
	raw := []byte(`
name: swing
indicators:
  - type: ema
    visible: true
    config:
      period: 50
      color: "#FF6D00"
  - type: macd
    visible: false
`)

	l, err := ParsePreset(raw)
	require.NoError(t, err)
	assert.Equal(t, "swing", l.Name)
	require.Len(t, l.Indicators, 2)
	assert.Equal(t, indicator.TypeEMA, l.Indicators[0].Type)
	assert.Equal(t, 50, l.Indicators[0].Config.Int("period"))
	assert.Equal(t, "#FF6D00", l.Indicators[0].Config.String("color"))
	assert.False(t, l.Indicators[1].Visible)
}

func TestParsePreset_Errors(t *testing.T) {
	_, err := ParsePreset([]byte("indicators: [{visible: true}]"))
	assert.ErrorIs(t, err, models.ErrInvalidLayout)

	_, err = ParsePreset([]byte("indicators: {"))
	assert.ErrorIs(t, err, models.ErrInvalidLayout)

	l, err := ParsePreset([]byte("indicators: []"))
	require.NoError(t, err)
	assert.Equal(t, "preset", l.Name)
}

func TestLoadPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indicators:\n  - type: sma\n    visible: true\n"), 0o600))

	l, err := LoadPreset(path)
	require.NoError(t, err)
	require.Len(t, l.Indicators, 1)

	_, err = LoadPreset(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCaptureAndApply(t *testing.T) {
	candles, err := newCandles(80)
	require.NoError(t, err)

	src := overlay.NewRegistry(indicator.DefaultCatalog(), overlay.WithCandles(candles))
	id, err := src.Add(indicator.TypeEMA)
	require.NoError(t, err)
	_, err = src.UpdateConfig(id, indicator.Config{"period": 30})
	require.NoError(t, err)
	_, err = src.Add(indicator.TypeMACD)
	require.NoError(t, err)

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, Capture("main", src)))

	loaded, err := store.Load(ctx, "main")
	require.NoError(t, err)

	dst := overlay.NewRegistry(indicator.DefaultCatalog(), overlay.WithCandles(candles))
	require.NoError(t, Apply(loaded, dst))

	want, got := src.List(), dst.List()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Config, got[i].Config)
		assert.Equal(t, want[i].Data, got[i].Data)
	}

	bad := Layout{Name: "bad", Indicators: []overlay.Spec{{Type: "ichimoku"}}}
	assert.Error(t, Apply(bad, dst))
	assert.Len(t, dst.List(), 2)
}

func newCandles(n int) ([]models.Candle, error) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		price := 50 + float64(i%11) + float64(i)/4
		out[i] = models.Candle{
			Time:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   price - 0.3,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 500,
		}
	}
	return out, models.CheckOrdered(out)
}

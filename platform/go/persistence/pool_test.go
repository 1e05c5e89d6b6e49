package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolConfigParse(t *testing.T) {
	t.Parallel()

	_, err := PoolConfig{}.parse()
	require.ErrorIs(t, err, ErrNoConnString)

	_, err = PoolConfig{ConnString: "postgres://%zz"}.parse()
	require.Error(t, err)

	cfg, err := PoolConfig{
		ConnString:      "postgres://lc:lc@localhost:5432/leadcapture",
		ApplicationName: "leadcapture-test",
		MaxConns:        7,
	}.parse()
	require.NoError(t, err)
	require.Equal(t, "leadcapture-test", cfg.ConnConfig.RuntimeParams["application_name"])
	require.EqualValues(t, 7, cfg.MaxConns)
}

func TestReadyWithoutPool(t *testing.T) {
	t.Parallel()

	require.Error(t, Ready(context.Background(), nil))
	ClosePool(nil)
}

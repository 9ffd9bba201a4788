package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig_DualMADefaults(t *testing.T) {
	s, err := FromConfig(TypeDualMA, nil)
	require.NoError(t, err)

	ma, ok := s.(*DualMAStrategy)
	require.True(t, ok, "expected *DualMAStrategy, got %T", s)
	assert.Equal(t, DefaultFastWindow, ma.FastWindow)
	assert.Equal(t, DefaultSlowWindow, ma.SlowWindow)
	assert.True(t, ma.FixedSize.Equal(d("1")))
	assert.Equal(t, "DUAL_MA_fast10_slow20_size1", s.ID())
}

func TestFromConfig_DualMAParams(t *testing.T) {
	s, err := FromConfig(TypeDualMA, map[string]float64{"fast_window": 5, "slow_window": 30, "fixed_size": 2})
	require.NoError(t, err)

	ma := s.(*DualMAStrategy)
	assert.Equal(t, 5, ma.FastWindow)
	assert.Equal(t, 30, ma.SlowWindow)
	assert.True(t, ma.FixedSize.Equal(d("2")))
}

func TestFromConfig_ChannelBreakout(t *testing.T) {
	s, err := FromConfig(TypeChannelBreakout, map[string]float64{"window": 15})
	require.NoError(t, err)

	cb, ok := s.(*ChannelBreakoutStrategy)
	require.True(t, ok)
	assert.Equal(t, 15, cb.Window)
	assert.Equal(t, TypeChannelBreakout, s.Name())
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		params map[string]float64
		want   error
	}{
		{"unknown type", "MARTINGALE", nil, ErrUnknownStrategy},
		{"fast not below slow", TypeDualMA, map[string]float64{"fast_window": 20, "slow_window": 10}, ErrInvalidParam},
		{"fractional window", TypeDualMA, map[string]float64{"fast_window": 2.5}, ErrInvalidParam},
		{"negative size", TypeChannelBreakout, map[string]float64{"fixed_size": -1}, ErrInvalidParam},
		{"window too small", TypeChannelBreakout, map[string]float64{"window": 1}, ErrInvalidParam},
		{"unknown key", TypeChannelBreakout, map[string]float64{"windw": 5}, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(tt.typ, tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{TypeChannelBreakout, TypeDualMA}, Types())
}

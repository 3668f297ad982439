package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name   string
		v      float64
		places int32
		want   float64
	}{
		{"sma places", 102.123456, SMAPlaces, 102.1235},
		{"ratio places", 0.0123456789, RatioPlaces, 0.012346},
		{"price places", 123.456, PricePlaces, 123.46},
		{"negative", -0.0000005, RatioPlaces, -0.000001},
		{"already exact", 100, PricePlaces, 100},
		{"nan", math.NaN(), PricePlaces, 0},
		{"inf", math.Inf(1), PricePlaces, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Round(tt.v, tt.places))
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-12.4))
	assert.Equal(t, 100, ClampScore(140))
	assert.Equal(t, 56, ClampScore(55.5))
	assert.Equal(t, 55, ClampScore(55.49))
	assert.Equal(t, 0, ClampScore(math.NaN()))
}

func TestPctChange(t *testing.T) {
	assert.InDelta(t, 0.05, PctChange(105, 100), 1e-12)
	assert.Equal(t, 0.0, PctChange(105, 0))
}

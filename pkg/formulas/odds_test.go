package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name      string
		american  float64
		want      float64
		wantErr   bool
		tolerance float64
	}{
		{
			name:      "positive underdog price",
			american:  150,
			want:      2.50,
			tolerance: 1e-9,
		},
		{
			name:      "negative favorite price",
			american:  -110,
			want:      1.9090909091,
			tolerance: 1e-9,
		},
		{
			name:      "heavy favorite",
			american:  -200,
			want:      1.50,
			tolerance: 1e-9,
		},
		{
			name:      "even money",
			american:  100,
			want:      2.00,
			tolerance: 1e-9,
		},
		{
			name:     "zero is not a price",
			american: 0,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmericanToDecimal(tt.american)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDecimalToAmerican_RoundTrip(t *testing.T) {
	// Round-trip through decimal should recover the American price.
	prices := []float64{-10000, -450, -200, -110, -105, 100, 120, 150, 300, 2500}

	for _, price := range prices {
		decimal, err := AmericanToDecimal(price)
		assert.NoError(t, err)

		back, err := DecimalToAmerican(decimal)
		assert.NoError(t, err)
		assert.InDelta(t, price, back, 1e-6, "round-trip for %v", price)
	}
}

func TestDecimalToAmerican_Invalid(t *testing.T) {
	for _, d := range []float64{1.0, 0.5, 0.0, -2.0} {
		_, err := DecimalToAmerican(d)
		assert.Error(t, err, "decimal odds %v should be rejected", d)
	}
}

func TestImpliedProbability(t *testing.T) {
	assert.InDelta(t, 0.5, ImpliedProbability(2.0), 1e-9)
	assert.InDelta(t, 0.4, ImpliedProbability(2.5), 1e-9)
	assert.Equal(t, 0.0, ImpliedProbability(1.0))
	assert.Equal(t, 0.0, ImpliedProbability(0.5))
}

func TestEVPercent(t *testing.T) {
	tests := []struct {
		name        string
		decimal     float64
		probability float64
		want        float64
		tolerance   float64
	}{
		{
			name:        "positive edge",
			decimal:     2.0,
			probability: 0.55,
			want:        10.0, // (0.55*2 - 1) * 100
			tolerance:   1e-9,
		},
		{
			name:        "negative edge",
			decimal:     1.909090909,
			probability: 0.50,
			want:        -4.5454545, // (0.5*1.909 - 1) * 100
			tolerance:   1e-4,
		},
		{
			name:        "probability clamped high",
			decimal:     2.0,
			probability: 1.5,
			want:        98.0, // clamped to 0.99
			tolerance:   1e-9,
		},
		{
			name:        "no payout odds lose full stake",
			decimal:     1.0,
			probability: 0.9,
			want:        -100.0,
			tolerance:   1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EVPercent(tt.decimal, tt.probability), tt.tolerance)
		})
	}
}

func TestEVPercent_SignMatchesEdge(t *testing.T) {
	// EV is positive exactly when p*d > 1.
	probs := []float64{0.01, 0.1, 0.35, 0.5, 0.65, 0.9, 0.99}
	odds := []float64{1.05, 1.5, 1.91, 2.0, 2.5, 5.0}

	for _, p := range probs {
		for _, d := range odds {
			ev := EVPercent(d, p)
			if p*d > 1.0 {
				assert.Greater(t, ev, 0.0, "p=%v d=%v", p, d)
			} else {
				assert.LessOrEqual(t, ev, 0.0, "p=%v d=%v", p, d)
			}
		}
	}
}

func TestKellyFraction(t *testing.T) {
	tests := []struct {
		name        string
		decimal     float64
		probability float64
		want        float64
		tolerance   float64
	}{
		{
			name:        "clear edge",
			decimal:     2.0,
			probability: 0.55,
			want:        0.10, // (1*0.55 - 0.45) / 1
			tolerance:   1e-9,
		},
		{
			name:        "no edge returns zero",
			decimal:     2.0,
			probability: 0.50,
			want:        0.0,
			tolerance:   1e-9,
		},
		{
			name:        "negative edge floored at zero",
			decimal:     1.5,
			probability: 0.40,
			want:        0.0,
			tolerance:   1e-9,
		},
		{
			name:        "no payout returns zero",
			decimal:     1.0,
			probability: 0.90,
			want:        0.0,
			tolerance:   1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, KellyFraction(tt.decimal, tt.probability), tt.tolerance)
		})
	}
}

func TestKellyFraction_NeverNegative(t *testing.T) {
	for _, p := range []float64{0.01, 0.2, 0.5, 0.8, 0.99} {
		for _, d := range []float64{1.01, 1.5, 2.0, 3.0, 10.0} {
			f := KellyFraction(d, p)
			assert.GreaterOrEqual(t, f, 0.0, "p=%v d=%v", p, d)
			if p*d <= 1.0 {
				assert.Equal(t, 0.0, f, "no edge should mean no stake, p=%v d=%v", p, d)
			}
		}
	}
}

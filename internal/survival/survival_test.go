package survival

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit_ProductLimit(t *testing.T) {
	// Durations 1, 2, 2 (censored), 3, 5 (censored).
	c, err := Fit([]float64{3, 1, 2, 2, 5}, []bool{true, true, true, false, false})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2, 3, 5}, c.Times)
	want := []float64{1, 0.8, 0.8 * (1 - 1.0/4), 0.8 * 0.75 * (1 - 1.0/2), 0.3}
	require.Len(t, c.Survival, len(want))
	for i := range want {
		assert.InDelta(t, want[i], c.Survival[i], 1e-12, "t=%v", c.Times[i])
	}
}

func TestFit_EventsAtZero(t *testing.T) {
	c, err := Fit([]float64{0, 0, 1, 2}, []bool{true, false, true, true})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, c.Times)
	assert.InDelta(t, 0.75, c.Survival[0], 1e-12)
	assert.InDelta(t, 0.75*0.5, c.Survival[1], 1e-12)
	assert.InDelta(t, 0.0, c.Survival[2], 1e-12)
}

func TestFit_AllCensored(t *testing.T) {
	c, err := Fit([]float64{1, 2, 3}, []bool{false, false, false})
	require.NoError(t, err)
	for _, s := range c.Survival {
		assert.Equal(t, 1.0, s)
	}
	assert.Equal(t, NotReached, c.Median())
	assert.Equal(t, "not reached", c.Median().String())
	assert.Nil(t, c.Median().Ptr())
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit(nil, nil)
	assert.ErrorContains(t, err, "no observations")

	_, err = Fit([]float64{1}, []bool{true, false})
	assert.ErrorContains(t, err, "event flags")

	_, err = Fit([]float64{-1}, []bool{true})
	assert.ErrorContains(t, err, "invalid duration")

	_, err = Fit([]float64{math.NaN()}, []bool{true})
	assert.Error(t, err)
}

func TestFit_Monotone(t *testing.T) {
	var d []float64
	var e []bool
	for i := range 200 {
		d = append(d, float64(i%37)*0.5)
		e = append(e, i%3 != 0)
	}
	c, err := Fit(d, e)
	require.NoError(t, err)
	for i := 1; i < c.Len(); i++ {
		assert.Greater(t, c.Times[i], c.Times[i-1])
		assert.LessOrEqual(t, c.Survival[i], c.Survival[i-1])
	}
}

func TestAUC_HandComputedTrapezoid(t *testing.T) {
	c := Curve{
		Times:    []float64{0, 6, 12, 24, 40},
		Survival: []float64{1, 0.8, 0.6, 0.3, 0.1},
	}
	// (1+.8)/2*6 + (.8+.6)/2*6 + (.6+.3)/2*12 = 5.4 + 4.2 + 5.4
	assert.InDelta(t, 15.0, c.AUC(36), 1e-12)
	// Truncation at a breakpoint keeps that point.
	assert.InDelta(t, 9.6, c.AUC(12), 1e-12)
}

func TestAUC_TooFewPoints(t *testing.T) {
	assert.Zero(t, Curve{}.AUC(36))
	assert.Zero(t, Curve{Times: []float64{0}, Survival: []float64{1}}.AUC(36))
	assert.Zero(t, Curve{Times: []float64{0, 40}, Survival: []float64{1, 0}}.AUC(36))
}

func TestTruncate(t *testing.T) {
	c := Curve{Times: []float64{0, 1, 36, 37}, Survival: []float64{1, .9, .5, .4}}
	tr := c.Truncate(36)
	assert.Equal(t, []float64{0, 1, 36}, tr.Times)
	assert.Equal(t, []float64{1, .9, .5}, tr.Survival)
}

func TestAt(t *testing.T) {
	c := Curve{Times: []float64{0, 28, 56, 1000}, Survival: []float64{1, .9, .7, .2}}
	assert.Equal(t, 1.0, c.At(-1))
	assert.Equal(t, 1.0, c.At(0))
	assert.Equal(t, 1.0, c.At(27.9))
	assert.Equal(t, .9, c.At(28))
	assert.Equal(t, .7, c.At(36*25))
	assert.Equal(t, .7, c.At(999.9))
	assert.Equal(t, .2, c.At(1000))
	assert.Equal(t, .2, c.At(36*30))
	assert.Equal(t, .2, c.At(5000))
}

func TestMedian(t *testing.T) {
	c := Curve{Times: []float64{0, 1, 2, 3}, Survival: []float64{1, .6, .5, .2}}
	m := c.Median()
	assert.True(t, m.Reached)
	assert.Equal(t, 2.0, m.Time)
	assert.Equal(t, "2.0", m.String())
	require.NotNil(t, m.Ptr())
	assert.Equal(t, 2.0, *m.Ptr())
}

func TestScale(t *testing.T) {
	c := Curve{Times: []float64{0, 30, 60}, Survival: []float64{1, .5, .25}}
	s := c.Scale(1.0 / 30)
	assert.InDeltaSlice(t, []float64{0, 1, 2}, s.Times, 1e-12)
	assert.Equal(t, c.Survival, s.Survival)
	assert.Equal(t, []float64{0, 30, 60}, c.Times)
}

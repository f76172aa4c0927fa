package feed

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

const (
	MinTemperatureC = -18.0
	MaxTemperatureC = -16.0
)

// Source produces the next temperature sample in °C.
type Source interface {
	Next() float64
}

// UniformSource draws uniformly from [Min, Max] and rounds to one decimal place.
type UniformSource struct {
	Min, Max float64
	// Float64 returns a value in [0, 1); defaults to math/rand/v2.
	Float64 func() float64
}

func NewUniformSource() *UniformSource {
	return &UniformSource{Min: MinTemperatureC, Max: MaxTemperatureC, Float64: rand.Float64}
}

func (s *UniformSource) Next() float64 {
	draw := s.Float64
	if draw == nil {
		draw = rand.Float64
	}
	v := s.Min + draw()*(s.Max-s.Min)
	return roundTenth(v)
}

func roundTenth(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// Package market holds the simulated assets and the engine that clears agent orders into prices.
package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/gitwitcho/var-agent-model-sub001/internal/distribution"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrInvalidAsset = errors.New("invalid asset")
)

// AssetSpec describes an asset at tick 0 and the noise that moves it afterwards.
type AssetSpec struct {
	ID           string
	Liquidity    float64
	InitialPrice float64
	InitialValue float64 // reference value at tick 0; InitialPrice when 0
	PriceNoise   distribution.Sampler
	ValueNoise   distribution.Sampler
}

// Asset is one traded security. Only the engine writes its series.
type Asset struct {
	id         string
	liquidity  float64
	logPrice   *timeseries.Series
	price      *timeseries.Series
	logRef     *timeseries.Series
	priceNoise distribution.Sampler
	valueNoise distribution.Sampler
}

func (a *Asset) ID() string { return a.id }

func (a *Asset) Liquidity() float64 { return a.liquidity }

// PriceAt returns the price at tick t, or at tick 0 for negative t.
func (a *Asset) PriceAt(t int) float64 {
	if t < 0 {
		t = 0
	}
	return a.price.At(t)
}

// NextLogPrice is the linear impact rule: the log price moves by the net signed order
// divided by liquidity, plus noise.
func NextLogPrice(prev, totalOrder, liquidity, noise float64) float64 {
	return prev + totalOrder/liquidity + noise
}

func (a *Asset) advanceReference(tick int) error {
	prev, err := a.logRef.Get(tick - 1)
	if err != nil {
		return err
	}
	return a.logRef.Set(tick, prev+a.valueNoise.Next())
}

func (a *Asset) formPrice(tick int, totalOrder float64) error {
	prev, err := a.logPrice.Get(tick - 1)
	if err != nil {
		return err
	}
	lp := NextLogPrice(prev, totalOrder, a.liquidity, a.priceNoise.Next())
	if err := a.logPrice.Set(tick, lp); err != nil {
		return err
	}
	return a.price.Set(tick, math.Exp(lp))
}

// Market is the set of assets of one run. It implements strategy.MarketView.
type Market struct {
	assets []*Asset
	byID   map[string]*Asset
}

// New seeds every asset's series with its tick 0 values.
func New(specs []AssetSpec) (*Market, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no assets: %w", ErrInvalidAsset)
	}
	m := &Market{byID: make(map[string]*Asset, len(specs))}
	for i, s := range specs {
		switch {
		case s.ID == "":
			return nil, fmt.Errorf("assets[%d].id is empty: %w", i, ErrInvalidAsset)
		case m.byID[s.ID] != nil:
			return nil, fmt.Errorf("assets[%d].id=%q is a duplicate: %w", i, s.ID, ErrInvalidAsset)
		case !(s.Liquidity > 0):
			return nil, fmt.Errorf("asset %s: liquidity=%v must be > 0: %w", s.ID, s.Liquidity, ErrInvalidAsset)
		case !(s.InitialPrice > 0):
			return nil, fmt.Errorf("asset %s: initialPrice=%v must be > 0: %w", s.ID, s.InitialPrice, ErrInvalidAsset)
		case s.PriceNoise == nil || s.ValueNoise == nil:
			return nil, fmt.Errorf("asset %s: missing noise sampler: %w", s.ID, ErrInvalidAsset)
		}
		value := s.InitialValue
		if value <= 0 {
			value = s.InitialPrice
		}
		a := &Asset{
			id:         s.ID,
			liquidity:  s.Liquidity,
			logPrice:   timeseries.New(s.ID + "/log-price"),
			price:      timeseries.New(s.ID + "/price"),
			logRef:     timeseries.New(s.ID + "/log-reference"),
			priceNoise: s.PriceNoise,
			valueNoise: s.ValueNoise,
		}
		a.logPrice.Append(math.Log(s.InitialPrice))
		a.price.Append(s.InitialPrice)
		a.logRef.Append(math.Log(value))
		m.assets = append(m.assets, a)
		m.byID[s.ID] = a
	}
	return m, nil
}

func (m *Market) Asset(id string) (*Asset, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", id, ErrUnknownAsset)
	}
	return a, nil
}

// Assets returns the asset identifiers in configuration order.
func (m *Market) Assets() []string {
	ids := make([]string, len(m.assets))
	for i, a := range m.assets {
		ids[i] = a.id
	}
	return ids
}

func (m *Market) Price(id string) (*timeseries.Series, error) {
	a, err := m.Asset(id)
	if err != nil {
		return nil, err
	}
	return a.price, nil
}

func (m *Market) LogPrice(id string) (*timeseries.Series, error) {
	a, err := m.Asset(id)
	if err != nil {
		return nil, err
	}
	return a.logPrice, nil
}

func (m *Market) LogReference(id string) (*timeseries.Series, error) {
	a, err := m.Asset(id)
	if err != nil {
		return nil, err
	}
	return a.logRef, nil
}

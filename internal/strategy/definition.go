// Package strategy turns a stored indicator configuration into trade signals.
package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JabirHus/NCTB/internal/exception"
	"gopkg.in/yaml.v3"
)

const (
	NameRSI           = "RSI"
	NameMACD          = "MACD"
	NameBollinger     = "Bollinger"
	NameStochastic    = "Stochastic"
	NameMovingAverage = "MovingAverage"
)

// Setting is the stored form of one indicator.
type Setting struct {
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	Parameters map[string]int `json:"parameters" yaml:"parameters"`
}

// Definition maps indicator name to its setting. The JSON and YAML forms are
// the persisted schema:
//
//	{"RSI": {"enabled": true, "parameters": {"period": 14, "undersold": 30, "oversold": 70}}}
type Definition map[string]Setting

func (d Definition) Validate() error {
	_, err := d.Indicators()
	return err
}

// Indicators returns the enabled indicators ordered by name.
func (d Definition) Indicators() ([]Indicator, error) {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Indicator
	var problems []string
	for _, name := range names {
		setting := d[name]
		ind, err := build(name, setting.Parameters)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if setting.Enabled {
			out = append(out, ind)
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", exception.ErrStrategyInvalid, strings.Join(problems, "; "))
	}
	return out, nil
}

// EnabledCount returns the number of enabled indicators.
func (d Definition) EnabledCount() int {
	n := 0
	for _, s := range d {
		if s.Enabled {
			n++
		}
	}
	return n
}

func ParseJSON(data []byte) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", exception.ErrStrategyInvalid, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func ParseYAML(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", exception.ErrStrategyInvalid, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func (d Definition) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// Default is the RSI + MACD setup used when no strategy has been stored.
func Default() Definition {
	return Definition{
		NameRSI: {
			Enabled:    true,
			Parameters: map[string]int{"period": 14, "undersold": 30, "oversold": 70},
		},
		NameMACD: {
			Enabled:    true,
			Parameters: map[string]int{"fast": 12, "slow": 26, "signal": 9},
		},
	}
}

func build(name string, params map[string]int) (Indicator, error) {
	p := paramReader{name: name, params: params}

	var ind Indicator
	switch name {
	case NameRSI:
		ind = RSI{
			Period:    p.required("period"),
			Undersold: p.required("undersold"),
			Oversold:  p.required("oversold"),
		}
	case NameMACD:
		ind = MACD{
			Fast:   p.required("fast"),
			Slow:   p.required("slow"),
			Signal: p.required("signal"),
		}
	case NameBollinger:
		ind = Bollinger{
			Period:    p.required("period"),
			Deviation: p.required("deviation"),
			Shift:     p.optional("shift"),
		}
	case NameStochastic:
		ind = Stochastic{
			K:       p.required("k"),
			D:       p.required("d"),
			Slowing: p.required("slowing"),
		}
	case NameMovingAverage:
		ind = MovingAverage{
			Period: p.required("period"),
			Shift:  p.optional("shift"),
		}
	default:
		return nil, fmt.Errorf("%s: %w", name, exception.ErrUnknownIndicator)
	}

	if err := p.err(); err != nil {
		return nil, err
	}
	if err := ind.check(); err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return ind, nil
}

type paramReader struct {
	name     string
	params   map[string]int
	problems []string
}

func (p *paramReader) required(key string) int {
	v, ok := p.params[key]
	if !ok {
		p.problems = append(p.problems, fmt.Sprintf("%s.%s is missing", p.name, key))
		return 0
	}
	if v <= 0 {
		p.problems = append(p.problems, fmt.Sprintf("%s.%s must be a positive integer, got %d", p.name, key, v))
	}
	return v
}

// optional parameters default to zero when absent.
func (p *paramReader) optional(key string) int {
	v, ok := p.params[key]
	if !ok {
		return 0
	}
	if v <= 0 {
		p.problems = append(p.problems, fmt.Sprintf("%s.%s must be a positive integer, got %d", p.name, key, v))
	}
	return v
}

func (p *paramReader) err() error {
	if len(p.problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(p.problems, ", "))
}

package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// State is a single value held by the state store.
type State struct {
	Val any       `json:"val"`
	Ack bool      `json:"ack"`
	Ts  time.Time `json:"ts"`
}

// StateValue is the result of a store read: either a present State or absent.
type StateValue struct {
	state *State
}

func Present(s State) StateValue {
	return StateValue{state: &s}
}

func Absent() StateValue {
	return StateValue{}
}

func (v StateValue) IsPresent() bool {
	return v.state != nil
}

func (v StateValue) State() (State, bool) {
	if v.state == nil {
		return State{}, false
	}
	return *v.state, true
}

// Val returns the raw value, nil when absent.
func (v StateValue) Val() any {
	if v.state == nil {
		return nil
	}
	return v.state.Val
}

func (v StateValue) Float() (float64, bool) {
	if v.state == nil {
		return 0, false
	}
	return toFloat(v.state.Val)
}

// Int truncates numeric values toward zero.
func (v StateValue) Int() (int, bool) {
	f, ok := v.Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func (v StateValue) FloatOr(def float64) float64 {
	if f, ok := v.Float(); ok {
		return f
	}
	return def
}

func (v StateValue) IntOr(def int) int {
	if i, ok := v.Int(); ok {
		return i
	}
	return def
}

func (v StateValue) Bool() (bool, bool) {
	if v.state == nil {
		return false, false
	}
	switch b := v.state.Val.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(b) {
		case "true", "on", "1":
			return true, true
		case "false", "off", "0":
			return false, true
		}
		return false, false
	}
	if f, ok := toFloat(v.state.Val); ok {
		return f != 0, true
	}
	return false, false
}

func (v StateValue) Text() (string, bool) {
	if v.state == nil {
		return "", false
	}
	switch s := v.state.Val.(type) {
	case string:
		return s, true
	case nil:
		return "", false
	case bool:
		return strconv.FormatBool(s), true
	}
	if f, ok := toFloat(v.state.Val); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

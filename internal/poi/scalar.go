package poi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Scalar is a value that producers deliver either as a number or as a string
// (socket counts, outputs such as "50 kW", manufacturer names)
type Scalar struct {
	Str   string
	Num   float64
	IsNum bool
}

// Number creates a numeric scalar
func Number(f float64) *Scalar { return &Scalar{Num: f, IsNum: true} }

// Text creates a string scalar
func Text(s string) *Scalar { return &Scalar{Str: s} }

// TagValue renders the scalar as an OSM tag value. Whole numbers lose their
// fraction, NaN and empty strings report ok=false.
func (s *Scalar) TagValue() (string, bool) {
	if s == nil {
		return "", false
	}
	if !s.IsNum {
		return s.Str, s.Str != ""
	}
	if math.IsNaN(s.Num) || math.IsInf(s.Num, 0) {
		return "", false
	}
	if s.Num == math.Trunc(s.Num) && math.Abs(s.Num) < 1e15 {
		return strconv.FormatInt(int64(s.Num), 10), true
	}
	return strconv.FormatFloat(s.Num, 'f', -1, 64), true
}

// UnmarshalJSON accepts numbers and strings
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s.IsNum = false
		return json.Unmarshal(data, &s.Str)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("scalar must be a number or string: %w", err)
	}
	s.Num, s.IsNum = f, true
	return nil
}

// MarshalJSON mirrors UnmarshalJSON
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.IsNum {
		return json.Marshal(s.Num)
	}
	return json.Marshal(s.Str)
}

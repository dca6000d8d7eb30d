package features

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FeatureVector is an ordered, immutable mapping from feature name to value.
type FeatureVector struct {
	names  []string
	values map[string]float64
}

// NewFeatureVector builds a vector from parallel name and value slices.
// Later duplicates overwrite earlier values but keep the first position.
func NewFeatureVector(names []string, values []float64) FeatureVector {
	b := newBuilder(len(names))
	for i, n := range names {
		if i < len(values) {
			b.set(n, values[i])
		}
	}
	return b.build()
}

// Get returns the named value and whether it is present.
func (v FeatureVector) Get(name string) (float64, bool) {
	x, ok := v.values[name]
	return x, ok
}

// Value returns the named value or 0.
func (v FeatureVector) Value(name string) float64 {
	return v.values[name]
}

// Len returns the number of features.
func (v FeatureVector) Len() int {
	return len(v.names)
}

// Names returns feature names in insertion order.
func (v FeatureVector) Names() []string {
	return append([]string(nil), v.names...)
}

// Values returns a copy of the name to value map.
func (v FeatureVector) Values() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for k, x := range v.values {
		out[k] = x
	}
	return out
}

// Slice returns values ordered by names; missing names yield 0.
func (v FeatureVector) Slice(names []string) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = v.values[n]
	}
	return out
}

// Equal reports whether both vectors hold the same names in the same order
// with identical values.
func (v FeatureVector) Equal(o FeatureVector) bool {
	if len(v.names) != len(o.names) {
		return false
	}
	for i, n := range v.names {
		if o.names[i] != n || o.values[n] != v.values[n] {
			return false
		}
	}
	return true
}

// MarshalJSON writes the vector as an object in feature order.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range v.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(v.values[n], 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type builder struct {
	names  []string
	values map[string]float64
}

func newBuilder(capacity int) *builder {
	return &builder{
		names:  make([]string, 0, capacity),
		values: make(map[string]float64, capacity),
	}
}

func (b *builder) set(name string, value float64) {
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = value
}

func (b *builder) setInt(name string, value int) {
	b.set(name, float64(value))
}

func (b *builder) build() FeatureVector {
	return FeatureVector{names: b.names, values: b.values}
}

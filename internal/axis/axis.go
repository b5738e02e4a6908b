package axis

import (
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/vec"
)

var (
	// ErrUnknownAxis is returned by Parse for a name outside the fixed lookup.
	ErrUnknownAxis = errors.New("unknown axis type")

	// ErrDegenerateRange is returned when a range maps to a zero-width or
	// non-finite interval, so no finite scale exists.
	ErrDegenerateRange = errors.New("degenerate axis range")

	// ErrInvalidResolution is returned when the pixel count is not positive.
	ErrInvalidResolution = errors.New("invalid axis resolution")
)

// Kind identifies an axis policy. The zero Kind is linear.
type Kind uint8

const (
	KindLinear Kind = iota
	KindLog
)

// Axis is a coordinate-mapping policy between data space and the linearized
// space used for pixel placement. Axis values carry only their kind, so two
// axes compare equal with == exactly when they are the same policy.
type Axis struct {
	kind Kind
}

var (
	Linear = Axis{kind: KindLinear}
	Log    = Axis{kind: KindLog}
)

var lookup = map[string]Axis{
	"linear": Linear,
	"log":    Log,
}

// Parse resolves an axis policy by name ("linear" or "log").
func Parse(name string) (Axis, error) {
	a, ok := lookup[name]
	if !ok {
		return Axis{}, fmt.Errorf("%w: %q", ErrUnknownAxis, name)
	}
	return a, nil
}

// Names returns the accepted axis type names.
func Names() []string {
	return []string{"linear", "log"}
}

// Kind reports the axis policy.
func (a Axis) Kind() Kind { return a.kind }

func (a Axis) String() string {
	switch a.kind {
	case KindLinear:
		return "linear"
	case KindLog:
		return "log"
	default:
		return fmt.Sprintf("Axis(%d)", a.kind)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Mapper transforms a data-space value into linearized space. Non-positive
// inputs under the log policy yield whatever math.Log10 yields.
func (a Axis) Mapper(x float64) float64 {
	if a.kind == KindLog {
		return math.Log10(x)
	}
	return x
}

// InverseMapper is the left inverse of Mapper.
func (a Axis) InverseMapper(x float64) float64 {
	if a.kind == KindLog {
		return math.Pow(10, x)
	}
	return x
}

// ScaleAndTranslation returns (s, t) such that Mapper(r.Start)*s+t == 0 and
// Mapper(r.End)*s+t == n-1.
func (a Axis) ScaleAndTranslation(r Range, n int) (s, t float64, err error) {
	if n < 1 {
		return 0, 0, fmt.Errorf("%w: %d pixels", ErrInvalidResolution, n)
	}
	start, end := a.Mapper(r.Start), a.Mapper(r.End)
	width := end - start
	if width == 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return 0, 0, fmt.Errorf("%w: %s axis over [%g, %g]", ErrDegenerateRange, a, r.Start, r.End)
	}
	s = float64(n-1) / width
	t = 0 - start*s
	return s, t, nil
}

// ComputeIndex returns the data-space coordinates of pixel centers 0..n-1
// for the scale and translation produced by ScaleAndTranslation.
func (a Axis) ComputeIndex(n int, s, t float64) []float64 {
	if n < 1 {
		return nil
	}
	px := vec.Linspace(0, float64(n-1), n)
	for i, p := range px {
		px[i] = a.InverseMapper((p - t) / s)
	}
	return px
}

// Project builds the Projection of r onto n pixels.
func (a Axis) Project(r Range, n int) (Projection, error) {
	s, t, err := a.ScaleAndTranslation(r, n)
	if err != nil {
		return Projection{}, err
	}
	return Projection{Axis: a, Range: r, S: s, T: t, N: n}, nil
}

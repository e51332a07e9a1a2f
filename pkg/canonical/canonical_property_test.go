//go:build property
// +build property

package canonical

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestEncodeRoundTrip checks the testable property from §8:
// canonical(canonical_decode(canonical(v))) == canonical(v).
func TestEncodeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("canonical encoding round-trips through decode", prop.ForAll(
		func(keys, values []string) bool {
			obj := make(map[string]interface{})
			for i := 0; i < len(keys) && i < len(values); i++ {
				if keys[i] != "" {
					obj[keys[i]] = values[i]
				}
			}

			first, err := Encode(obj)
			if err != nil {
				return true
			}
			decoded, err := Decode(first)
			if err != nil {
				return false
			}
			second, err := Encode(decoded)
			if err != nil {
				return false
			}
			return string(first) == string(second)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestEncodeKeyOrderIndependence checks that key insertion order never
// affects the canonical byte encoding.
func TestEncodeKeyOrderIndependence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("encoding is independent of map construction order", prop.ForAll(
		func(a, b, c string) bool {
			forward := map[string]interface{}{"a": a, "b": b, "c": c}
			reversed := map[string]interface{}{"c": c, "b": b, "a": a}

			encForward, err1 := Encode(forward)
			encReversed, err2 := Encode(reversed)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return string(encForward) == string(encReversed)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

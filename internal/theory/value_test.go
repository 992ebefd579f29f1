package theory

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestZeroValueIsTheoreticalZero(t *testing.T) {
	var v Value
	if v.IsKnown() || v.Inner() != 0 {
		t.Fatalf("unexpected zero value: %s", v)
	}
}

func TestArithmeticPropagatesTagPessimistically(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Value
		known bool
	}{
		{name: "known+known", a: Known(1), b: Known(2), known: true},
		{name: "known+theoretical", a: Known(1), b: Theoretical(2), known: false},
		{name: "theoretical+known", a: Theoretical(1), b: Known(2), known: false},
		{name: "theoretical+theoretical", a: Theoretical(1), b: Theoretical(2), known: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, got := range []Value{tc.a.Add(tc.b), tc.a.Sub(tc.b), tc.a.Mul(tc.b)} {
				if got.IsKnown() != tc.known {
					t.Fatalf("tag mismatch for %s: got known=%v", got, got.IsKnown())
				}
			}
			if got := tc.a.Add(tc.b).Inner(); got != 3 {
				t.Fatalf("add: got %v", got)
			}
			if got := tc.a.Sub(tc.b).Inner(); got != -1 {
				t.Fatalf("sub: got %v", got)
			}
			if got := tc.a.Mul(tc.b).Inner(); got != 2 {
				t.Fatalf("mul: got %v", got)
			}
		})
	}
}

func TestKnownOrCollapsesOnlyTheoretical(t *testing.T) {
	double := func(x float64) float64 { return 2 * x }
	if got := Known(3).KnownOr(double); got != 3 {
		t.Fatalf("known value changed: %v", got)
	}
	if got := Theoretical(3).KnownOr(double); got != 6 {
		t.Fatalf("theoretical value not collapsed: %v", got)
	}
}

func TestJSONRoundTripKeepsTag(t *testing.T) {
	for _, in := range []Value{Known(1.5), Theoretical(-0.25)} {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out Value
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: in=%s out=%s", in, out)
		}
	}

	var bare Value
	if err := json.Unmarshal([]byte(`0.75`), &bare); err != nil {
		t.Fatalf("unmarshal bare: %v", err)
	}
	if bare != Known(0.75) {
		t.Fatalf("bare number should decode as known: %s", bare)
	}

	var doc struct {
		E Value `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"e":null}`), &doc); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if doc.E != Theoretical(0) {
		t.Fatalf("null should decode as theoretical zero: %s", doc.E)
	}
}

func TestYAMLAcceptsScalarAndMapping(t *testing.T) {
	var doc struct {
		A Value `yaml:"a"`
		B Value `yaml:"b"`
	}
	src := "a: 0.5\nb:\n  value: 0.25\n  theoretical: true\n"
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.A != Known(0.5) || doc.B != Theoretical(0.25) {
		t.Fatalf("unexpected values: a=%s b=%s", doc.A, doc.B)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again struct {
		A Value `yaml:"a"`
		B Value `yaml:"b"`
	}
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatalf("unmarshal again: %v", err)
	}
	if again != doc {
		t.Fatalf("yaml round trip mismatch: %+v vs %+v", again, doc)
	}

	var nulls struct {
		A Value `yaml:"a"`
		B Value `yaml:"b"`
	}
	if err := yaml.Unmarshal([]byte("a: ~\nb: null\n"), &nulls); err != nil {
		t.Fatalf("unmarshal nulls: %v", err)
	}
	if nulls.A != Theoretical(0) || nulls.B != Theoretical(0) {
		t.Fatalf("null should decode as theoretical zero: a=%s b=%s", nulls.A, nulls.B)
	}

	var direct Value
	if err := direct.UnmarshalYAML(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}); err != nil {
		t.Fatalf("unmarshal null node: %v", err)
	}
	if direct != Theoretical(0) {
		t.Fatalf("null node should decode as theoretical zero: %s", direct)
	}
}

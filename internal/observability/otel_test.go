package observability

import (
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	cases := []struct {
		raw  string
		want map[string]string
	}{
		{"", nil},
		{"api-key=abc", map[string]string{"api-key": "abc"}},
		{" a = 1 ,b=2,broken,=x,c=", map[string]string{"a": "1", "b": "2"}},
	}
	for _, tc := range cases {
		if got := parseHeaders(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parseHeaders(%q): got=%v want=%v", tc.raw, got, tc.want)
		}
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v): got=%v want=%v", in, got, want)
		}
	}
}

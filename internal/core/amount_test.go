package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{"12.34", "12.34", nil},
		{"12,34", "12.34", nil},
		{"-200", "-200", nil},
		{"+50", "50", nil},
		{"0", "", ErrZeroAmount},
		{"0,00", "", ErrZeroAmount},
		{"", "", ErrInvalidAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("case %d (%q): got err %v, want %v", i, tc.in, err, tc.err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("case %d (%q): unexpected error %v", i, tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("case %d (%q): got %s, want %s", i, tc.in, got, tc.want)
		}
	}
}

package domain

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		err  bool
	}{
		{raw: "0", want: "0"},
		{raw: "000123", want: "123"},
		{raw: "340282366920938463463374607431768211456", want: "340282366920938463463374607431768211456"},
		{raw: "", err: true},
		{raw: "-1", err: true},
		{raw: "+1", err: true},
		{raw: "1.5", err: true},
		{raw: "1e9", err: true},
		{raw: " 1", err: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.raw)
		if tt.err {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseAmount(%q): expected ErrInvalidAmount, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestDropStatus_Order(t *testing.T) {
	next, ok := DropStatusDraft.Next()
	if !ok || next != DropStatusTokenInfoCreated {
		t.Errorf("DRAFT.Next() = %s, %v", next, ok)
	}
	if _, ok := DropStatusLaunched.Next(); ok {
		t.Error("LAUNCHED must have no successor")
	}
	if DropStatus("BOGUS").IsValid() {
		t.Error("unknown status reported valid")
	}
	if DropStatusConfigCreated.Rank() <= DropStatusTokenInfoCreated.Rank() {
		t.Error("status ranks out of order")
	}
}

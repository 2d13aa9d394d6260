package types

import (
	"encoding/json"
	"testing"
)

func TestParsePercent(t *testing.T) {
	tests := []struct {
		input   string
		want    Percent
		wantErr bool
	}{
		{"5", 500, false},
		{"5%", 500, false},
		{"2.5", 250, false},
		{"12.75%", 1275, false},
		{"100", 10000, false},
		{"0", 0, false},
		{"", 0, true},
		{"1.234", 0, true},
		{"-5", 0, true},
		{"five", 0, true},
		{"184467440737095517", 0, true},
		{"92233720368547758%", 0, true},
		{"92233720368547757.99", 9223372036854775799, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePercent(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParsePercent(%q): got %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name string
		pct  Percent
		base Money
		want Money
	}{
		{"5% of 50.00", Pct(5), 5000, 250},
		{"10% of 50.00", Pct(10), 5000, 500},
		{"0% of 50.00", 0, 5000, 0},
		{"100% of 50.00", BasisPoints, 5000, 5000},
		{"half rounds up", Pct(5), 10, 1},         // 0.5 cent
		{"below half rounds down", Pct(4), 10, 0}, // 0.4 cent
		{"2.5% of 33.33", 250, 3333, 83},          // 83.325 cents
		{"negative half rounds away", Pct(5), -10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pct.Of(tt.base); got != tt.want {
				t.Errorf("%v.Of(%v): got %d, want %d", tt.pct, tt.base, got, tt.want)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		num, den Money
		want     Percent
	}{
		{"zero denominator", 0, 0, 0},
		{"one third", 5000, 15000, 3333},
		{"all", 5000, 5000, BasisPoints},
		{"almost all stays below 100", 9999, 10000, 9999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ratio(tt.num, tt.den); got != tt.want {
				t.Errorf("Ratio: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPercentString(t *testing.T) {
	tests := map[Percent]string{
		500:   "5%",
		250:   "2.5%",
		1275:  "12.75%",
		10000: "100%",
		0:     "0%",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("String(%d): got %s, want %s", int64(p), got, want)
		}
	}
}

func TestPercentJSON(t *testing.T) {
	data, err := json.Marshal(Percent(250))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"2.5%"` {
		t.Errorf("got %s", data)
	}

	var p Percent
	if err := json.Unmarshal([]byte(`10`), &p); err != nil {
		t.Fatal(err)
	}
	if p != Pct(10) {
		t.Errorf("got %d, want %d", p, Pct(10))
	}
}

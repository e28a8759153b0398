package normalize

import (
	"testing"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"euro comma", "24,99 €", "24.99", true},
		{"plain dot", "12.50", "12.5", true},
		{"currency prefix", "EUR 8,00", "8", true},
		{"thousands dot german", "1.234,56", "1234.56", true},
		{"thousands comma english", "1,234.56", "1234.56", true},
		{"integer", "15", "15", true},
		{"not available", "N/A", "", false},
		{"empty", "", "", false},
		{"words only", "ask seller", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParsePrice(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && got.String() != tt.want {
				t.Fatalf("ParsePrice(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in   string
		want market.Condition
	}{
		{"New", market.ConditionMint},
		{"like new", market.ConditionNearMint},
		{" Wie neu ", market.ConditionNearMint},
		{"Very Fine", market.ConditionExcellent},
		{"sehr gut", market.ConditionVeryGood},
		{"gut", market.ConditionGood},
		{"akzeptabel", market.ConditionFair},
		{"poor", market.ConditionPoor},
		{"something odd", market.ConditionGood},
		{"", market.ConditionGood},
	}

	for _, tt := range tests {
		if got := ParseCondition(tt.in); got != tt.want {
			t.Errorf("ParseCondition(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		micro   uint64
		display string
	}{
		{"Micro", Micro(1), 1, "0.000001"},
		{"Tokens", Tokens(1), 1_000_000, "1.000000"},
		{"Fraction", Micro(2_500_000), 2_500_000, "2.500000"},
		{"Zero", Amount(0), 0, "0.000000"},
		{"Max offering price", Tokens(1_000_000), 1_000_000_000_000, "1000000.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.amount.Uint64() != tt.micro {
				t.Errorf("Uint64: got %d, want %d", tt.amount.Uint64(), tt.micro)
			}
			if tt.amount.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.amount.String(), tt.display)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() (Amount, error)
		expected Amount
		err      error
	}{
		{"Add", func() (Amount, error) { return Micro(100).Add(Micro(200)) }, Micro(300), nil},
		{"Add zero", func() (Amount, error) { return Micro(100).Add(0) }, Micro(100), nil},
		{"Add overflow", func() (Amount, error) { return Amount(math.MaxUint64).Add(1) }, Amount(math.MaxUint64), ErrAmountOverflow},
		{"Sub", func() (Amount, error) { return Micro(500).Sub(Micro(200)), nil }, Micro(300), nil},
		{"Sub clamps", func() (Amount, error) { return Micro(100).Sub(Micro(200)), nil }, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.op()
			if !errors.Is(err, tt.err) {
				t.Fatalf("err: got %v, want %v", err, tt.err)
			}
			if result != tt.expected {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAmountCovers(t *testing.T) {
	tests := []struct {
		name     string
		have     Amount
		required Amount
		want     bool
	}{
		{"Equal", Tokens(1), Tokens(1), true},
		{"More", Tokens(2), Tokens(1), true},
		{"Less", Micro(999_999), Tokens(1), false},
		{"Zero required", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.have.Covers(tt.required); got != tt.want {
				t.Errorf("Covers: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAmountJSON(t *testing.T) {
	a := Micro(1_500_000)

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	expected := `{"micro":1500000,"display":"1.500000"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	var fromObject Amount
	if err := json.Unmarshal(data, &fromObject); err != nil {
		t.Fatalf("Unmarshal object error: %v", err)
	}
	if fromObject != a {
		t.Errorf("object decode: got %v, want %v", fromObject, a)
	}

	var fromNumber Amount
	if err := json.Unmarshal([]byte(`42`), &fromNumber); err != nil {
		t.Fatalf("Unmarshal number error: %v", err)
	}
	if fromNumber != Micro(42) {
		t.Errorf("number decode: got %v, want %v", fromNumber, Micro(42))
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Amount
		expected Amount
		err      error
	}{
		{"Empty", nil, 0, nil},
		{"Single", []Amount{Micro(100)}, Micro(100), nil},
		{"Multiple", []Amount{Micro(100), Micro(200), Micro(300)}, Micro(600), nil},
		{"Overflow", []Amount{Amount(math.MaxUint64), Micro(1)}, Amount(math.MaxUint64), ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Sum(tt.values...)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err: got %v, want %v", err, tt.err)
			}
			if result != tt.expected {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		addr Address
		zero bool
	}{
		{"", true},
		{"   ", true},
		{"acct_alice", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.addr), func(t *testing.T) {
			if got := tt.addr.IsZero(); got != tt.zero {
				t.Errorf("IsZero(%q): got %v, want %v", tt.addr, got, tt.zero)
			}
		})
	}
}

func TestEntity(t *testing.T) {
	var never Entity
	if never.Exists() {
		t.Error("zero Entity should not exist")
	}

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEntity(created)
	if !e.Exists() {
		t.Error("stamped Entity should exist")
	}

	later := created.Add(time.Hour)
	e.Touch(later)
	if !e.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt: got %v, want %v", e.UpdatedAt, later)
	}
	if !e.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v", e.CreatedAt)
	}
	if got := e.Age(later); got != time.Hour {
		t.Errorf("Age: got %v, want %v", got, time.Hour)
	}
}

func BenchmarkAmountAdd(b *testing.B) {
	a1 := Micro(100)
	a2 := Micro(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a1.Add(a2)
	}
}

func BenchmarkAmountString(b *testing.B) {
	a := Micro(4_900_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.String()
	}
}

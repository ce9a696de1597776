package types

import (
	"errors"
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		want    int64
		wantErr error
	}{
		{"simple", 100, 200, 300, nil},
		{"negative", -5, 3, -2, nil},
		{"max boundary", math.MaxInt64 - 1, 1, math.MaxInt64, nil},
		{"overflow", math.MaxInt64, 1, 0, ErrOverflow},
		{"underflow", math.MinInt64, -1, 0, ErrUnderflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckedAdd(tt.a, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCheckedSub(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		want    int64
		wantErr error
	}{
		{"simple", 500, 200, 300, nil},
		{"to negative", 1, 2, -1, nil},
		{"underflow", math.MinInt64, 1, 0, ErrUnderflow},
		{"overflow", math.MaxInt64, -1, 0, ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckedSub(tt.a, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCheckedMul(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		want    int64
		wantErr error
	}{
		{"simple", 30, 86400, 2592000, nil},
		{"zero", 0, math.MaxInt64, 0, nil},
		{"overflow", math.MaxInt64, 2, 0, ErrOverflow},
		{"negative overflow", math.MinInt64, -1, 0, ErrOverflow},
		{"underflow", math.MaxInt64, -2, 0, ErrUnderflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckedMul(tt.a, tt.b)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name          string
		amount        Amount
		bps           BasisPoints
		wantRecipient Amount
		wantOwner     Amount
	}{
		{"fifteen percent", 1000000, 1500, 150000, 850000},
		{"zero bps", 1000, 0, 0, 1000},
		{"full bps", 1000, 10000, 1000, 0},
		{"floors recipient", 999, 3333, 332, 667},
		{"one unit", 1, 9999, 0, 1},
		{"zero amount", 0, 5000, 0, 0},
		{"max amount half", MaxAmount, 5000, MaxAmount / 2, MaxAmount - MaxAmount/2},
		{"max amount full", MaxAmount, 10000, MaxAmount, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, o, err := Split(tt.amount, tt.bps)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r != tt.wantRecipient || o != tt.wantOwner {
				t.Errorf("got (%d, %d), want (%d, %d)", r, o, tt.wantRecipient, tt.wantOwner)
			}
		})
	}
}

func TestSplitConservesAmount(t *testing.T) {
	amounts := []Amount{0, 1, 7, 9999, 10001, 123456789, math.MaxInt64 / 3, MaxAmount - 1, MaxAmount}
	for _, amount := range amounts {
		for bps := BasisPoints(0); bps <= MaxBasisPoints; bps += 37 {
			r, o, err := Split(amount, bps)
			if err != nil {
				t.Fatalf("Split(%d, %d): %v", amount, bps, err)
			}
			if r+o != amount {
				t.Fatalf("Split(%d, %d): %d + %d != %d", amount, bps, r, o, amount)
			}
			if r > amount || r < 0 || o < 0 {
				t.Fatalf("Split(%d, %d): shares out of range (%d, %d)", amount, bps, r, o)
			}
		}
	}
}

func TestSplitRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		bps    BasisPoints
	}{
		{"negative amount", -1, 100},
		{"negative bps", 100, -1},
		{"bps above max", 100, 10001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Split(tt.amount, tt.bps); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPeriodFromDays(t *testing.T) {
	got, err := PeriodFromDays(30)
	if err != nil || got != 2592000 {
		t.Errorf("PeriodFromDays(30): got (%d, %v), want 2592000", got, err)
	}

	if _, err := PeriodFromDays(math.MaxInt64 / 1000); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestTimestampAddSeconds(t *testing.T) {
	ts := Timestamp(1_700_000_000)
	next, err := ts.AddSeconds(2592000)
	if err != nil || next != 1_702_592_000 {
		t.Errorf("AddSeconds: got (%d, %v)", next, err)
	}

	if _, err := Timestamp(math.MaxInt64).AddSeconds(1); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestEntityTouch(t *testing.T) {
	e := NewEntity(100)
	e.Touch(50)
	if e.UpdatedAt != 100 {
		t.Errorf("UpdatedAt went backwards: %d", e.UpdatedAt)
	}
	e.Touch(200)
	if e.UpdatedAt != 200 || e.CreatedAt != 100 {
		t.Errorf("got created=%d updated=%d", e.CreatedAt, e.UpdatedAt)
	}
}

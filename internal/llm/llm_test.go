package llm

import (
	"errors"
	"testing"
)

func TestParseIndex(t *testing.T) {
	tests := []struct {
		name     string
		response string
		n        int
		want     int
		wantErr  bool
	}{
		{name: "plain number", response: "3", n: 10, want: 3},
		{name: "number with whitespace", response: "  7\n", n: 10, want: 7},
		{name: "leading digits", response: "2番の組み合わせが最適です", n: 10, want: 2},
		{name: "labelled answer", response: "検討した結果、答え: 4", n: 10, want: 4},
		{name: "labelled selection", response: "選択: 8 が適切", n: 10, want: 8},
		{name: "any in-range digit", response: "候補の中では12、いや5が良い", n: 10, want: 5},
		{name: "out of range falls through", response: "99", n: 10, wantErr: true},
		{name: "no digits", response: "どれも良い組み合わせです", n: 10, wantErr: true},
		{name: "empty pool", response: "0", n: 0, wantErr: true},
		{name: "zero index", response: "0", n: 5, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIndex(tt.response, tt.n)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseIndex(%q) = %d, want error", tt.response, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIndex(%q): %v", tt.response, err)
			}
			if got != tt.want {
				t.Errorf("ParseIndex(%q) = %d, want %d", tt.response, got, tt.want)
			}
		})
	}
}

func TestParseIndex_ErrNoIndex(t *testing.T) {
	_, err := ParseIndex("判断できません", 5)
	if !errors.Is(err, ErrNoIndex) {
		t.Fatalf("err = %v, want ErrNoIndex", err)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := New("palm", Options{}); err == nil {
		t.Fatal("unknown provider should error")
	}
}

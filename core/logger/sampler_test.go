package logger

import "testing"

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	var passed []int
	for i := 0; i < 10; i++ {
		if s.Allow() {
			passed = append(passed, i)
		}
	}
	want := []int{0, 1, 5, 6}
	if len(passed) != len(want) {
		t.Fatalf("passed = %v, want %v", passed, want)
	}
	for i := range want {
		if passed[i] != want[i] {
			t.Fatalf("passed = %v, want %v", passed, want)
		}
	}

	s.Set(0, 0)
	for i := 0; i < 3; i++ {
		if !s.Allow() {
			t.Fatal("zero ratio must let everything through")
		}
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := []struct {
		in       string
		num, den int
	}{
		{"", 0, 0},
		{"1/50", 1, 50},
		{" 3 / 10 ", 3, 10},
		{"20", 1, 20},
		{"-4", 0, 0},
		{"x/2", 0, 0},
		{"often", 0, 0},
	}
	for _, tc := range cases {
		num, den := parseRatio(tc.in)
		if num != tc.num || den != tc.den {
			t.Errorf("parseRatio(%q) = %d/%d, want %d/%d", tc.in, num, den, tc.num, tc.den)
		}
	}
}

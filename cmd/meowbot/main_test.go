package main

import "testing"

func TestRunFlags(t *testing.T) {
	if err := run([]string{"--version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if err := run([]string{"--help"}); err != nil {
		t.Fatalf("help: %v", err)
	}
	if err := run([]string{"--no-such-flag"}); err == nil {
		t.Fatal("unknown flag accepted")
	}
}

package main

import "testing"

func TestPostureFlagRegistration(t *testing.T) {
	tests := []struct {
		name string
		has  bool
	}{
		{"simulate", true},
		{"serve", true},
		{"campaign", false},
	}
	for _, tc := range tests {
		cmd, _, err := rootCmd.Find([]string{tc.name})
		if err != nil {
			t.Fatalf("find %s: %v", tc.name, err)
		}
		if got := cmd.Flags().Lookup("posture") != nil; got != tc.has {
			t.Errorf("%s registers --posture = %v, want %v", tc.name, got, tc.has)
		}
	}
}

package main

import (
	"reflect"
	"testing"
)

func TestCORSOrigins(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"*"}},
		{"https://a.example.com", []string{"https://a.example.com"}},
		{"https://a.example.com, https://b.example.com", []string{"https://a.example.com", "https://b.example.com"}},
		{" , ", []string{"*"}},
	}
	for _, tt := range tests {
		if got := corsOrigins(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("corsOrigins(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

package textutil

import "testing"

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Water Cycle", "water_cycle"},
		{"  lesson-01.final  ", "lesson-01_final"},
		{"Canción del Agua", "cancion_del_agua"},
		{"a / b : c", "a_b_c"},
		{"???", ""},
		{"", ""},
		{"--edge--", "edge"},
		{"日本語 abc", "abc"},
	}
	for _, tc := range tests {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

package database

import "testing"

func TestShouldMigrate(t *testing.T) {
	tests := []struct {
		name  string
		mode  string
		force bool
		want  bool
	}{
		{name: "debug migrates by default", mode: "debug", want: true},
		{name: "test migrates by default", mode: "test", want: true},
		{name: "release skips by default", mode: "release", want: false},
		{name: "release with force flag", mode: "release", force: true, want: true},
		{name: "debug with force flag", mode: "debug", force: true, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldMigrate(tc.mode, tc.force); got != tc.want {
				t.Errorf("shouldMigrate(%q, %v) = %v, want %v", tc.mode, tc.force, got, tc.want)
			}
		})
	}
}

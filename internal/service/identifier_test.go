package service

import "testing"

func TestExtractPOIID(t *testing.T) {
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"pages/detail?poiid=12345&x=1", "12345", true},
		{"pages/detail?x=1&poiid=7", "7", true},
		{"pages/detail?poiid=1&poiid=2", "1", true},
		{"pages/detail", "", false},
		{"pages/detail?poiid=abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ExtractPOIID(tt.path)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractPOIID(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

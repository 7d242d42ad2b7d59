package export

import "testing"

func intPtr(v int) *int { return &v }

func TestHeuristicDetector_Blocked(t *testing.T) {
	tests := []struct {
		name   string
		status *int
		errMsg string
		want   bool
	}{
		{"status zero no message", intPtr(0), "", true},
		{"no status failed to fetch", nil, "TypeError: Failed to fetch", true},
		{"status zero overrides message", intPtr(0), "Not found", true},
		{"real 404", intPtr(404), "Not found", false},
		{"real 500", intPtr(500), "Internal server error", false},
		{"no status connection refused", nil, "dial tcp 127.0.0.1:5678: connect: connection refused", false},
		{"no status no message", nil, "", false},
		{"message embedded", nil, "fetch error: Failed to fetch (network)", true},
	}

	det := HeuristicDetector{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := det.Blocked(tt.status, tt.errMsg); got != tt.want {
				t.Errorf("Blocked(%v, %q) = %v, want %v", tt.status, tt.errMsg, got, tt.want)
			}
		})
	}
}

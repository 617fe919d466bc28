package utils

import "fmt"

// FormatElapsed renders seconds as HH:MM:SS. Hours are not wrapped at 24.
// Negative input is treated as zero.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

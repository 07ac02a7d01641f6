package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatDuration converts time.Duration to ffmpeg timestamp format
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	// Round before splitting so 59.9996s carries into the minute
	ms := d.Round(time.Millisecond).Milliseconds()
	hours := ms / 3_600_000
	minutes := ms / 60_000 % 60
	secs := ms % 60_000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs/1000, secs%1000)
}

// FormatSeconds renders a timestamp in seconds as MM:SS.s for logs and manifests
func FormatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	tenths := int64(math.Round(s * 10))
	return fmt.Sprintf("%02d:%02d.%d", tenths/600, tenths%600/10, tenths%10)
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

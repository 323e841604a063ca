package audio

import "fmt"

// SecondsToMin renders seconds as m:ss, the format used in captions and
// queue listings.
func SecondsToMin(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// SpeedPosition converts an elapsed position at normal speed into the
// position and its m:ss rendering at the given playback speed, preserving
// the apparent position across a speed change.
func SpeedPosition(played int, speed float64) (string, int) {
	if speed <= 0 {
		speed = 1.0
	}
	converted := int(float64(played) / speed)
	return SecondsToMin(converted), converted
}

package arena

// Style ratings, lowest to highest. The meter decays over time so a rating
// has to be sustained, not just reached.
const (
	RatingC   = "C"
	RatingB   = "B"
	RatingA   = "A"
	RatingS   = "S"
	RatingSSS = "SSS"
)

const (
	styleDecayPerSec = 15.0
	styleCapPoints   = 2000.0
)

// StyleMeter accrues points from executed actions and hidden combo bonuses
// and bleeds them away while the fighter is passive.
type StyleMeter struct {
	points float64
}

// Add accrues points, clamped to the meter cap.
func (s *StyleMeter) Add(points float64) {
	s.points += points
	if s.points > styleCapPoints {
		s.points = styleCapPoints
	}
}

// Decay bleeds the meter by dt seconds of passivity.
func (s *StyleMeter) Decay(dt float64) {
	s.points -= styleDecayPerSec * dt
	if s.points < 0 {
		s.points = 0
	}
}

// Points returns the current meter value.
func (s *StyleMeter) Points() float64 {
	return s.points
}

// Rating maps the meter to its letter grade.
func (s *StyleMeter) Rating() string {
	switch {
	case s.points >= 1000:
		return RatingSSS
	case s.points >= 500:
		return RatingS
	case s.points >= 250:
		return RatingA
	case s.points >= 100:
		return RatingB
	default:
		return RatingC
	}
}

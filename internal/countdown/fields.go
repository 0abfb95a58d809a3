package countdown

import "fmt"

const (
	// MaxSeconds caps every manual edit of the remaining time (5 hours).
	MaxSeconds = 5 * 3600
	// AddSeconds is what AddTime adds. It is not capped by MaxSeconds.
	AddSeconds = 10 * 60

	maxHoursField = 23
)

// Field identifies one of the three editable display fields.
type Field int

const (
	Hours Field = iota
	Minutes
	Seconds
)

func (f Field) String() string {
	switch f {
	case Hours:
		return "hours"
	case Minutes:
		return "minutes"
	case Seconds:
		return "seconds"
	default:
		return "unknown"
	}
}

// HMS is a remaining time split into its display fields.
type HMS struct {
	H, M, S int
}

// Split converts total seconds into display fields. Negative totals are
// treated as zero.
func Split(total int) HMS {
	if total < 0 {
		total = 0
	}
	return HMS{
		H: total / 3600,
		M: (total % 3600) / 60,
		S: total % 60,
	}
}

func (h HMS) Total() int {
	return h.H*3600 + h.M*60 + h.S
}

func (h HMS) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", h.H, h.M, h.S)
}

// adjust moves one field by delta. Hours saturate at [0, 23]; minutes and
// seconds wrap modulo 60 without carrying into the next field.
func (h HMS) adjust(f Field, delta int) HMS {
	switch f {
	case Hours:
		h.H += delta
		if h.H < 0 {
			h.H = 0
		}
		if h.H > maxHoursField {
			h.H = maxHoursField
		}
	case Minutes:
		h.M = wrap60(h.M + delta)
	case Seconds:
		h.S = wrap60(h.S + delta)
	}
	return h
}

func wrap60(v int) int {
	v %= 60
	if v < 0 {
		v += 60
	}
	return v
}

// Format renders total seconds as HH:MM:SS.
func Format(total int) string {
	return Split(total).String()
}

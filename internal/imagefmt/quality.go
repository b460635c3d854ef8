package imagefmt

import "fmt"

// Quality is an encoder quality setting drawn from a fixed set. The zero
// value means "no quality" and is only meaningful as a batch override.
type Quality int

const (
	QualityNone    Quality = 0
	DefaultQuality Quality = 100
)

var qualityOptions = []Quality{100, 90, 80, 75, 50}

// QualityOptions returns the selectable qualities, highest first.
func QualityOptions() []Quality {
	out := make([]Quality, len(qualityOptions))
	copy(out, qualityOptions)
	return out
}

// Valid reports whether q is one of the selectable qualities.
func (q Quality) Valid() bool {
	for _, o := range qualityOptions {
		if o == q {
			return true
		}
	}
	return false
}

// ParseQuality validates an integer coming from a boundary. Zero is accepted
// and returned as QualityNone.
func ParseQuality(v int) (Quality, error) {
	q := Quality(v)
	if q == QualityNone || q.Valid() {
		return q, nil
	}
	return QualityNone, fmt.Errorf("quality %d is not one of %v", v, qualityOptions)
}

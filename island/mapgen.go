package island

import (
	"fmt"
	"math"
	"strings"

	"github.com/ojrac/opensimplex-go"
)

// Generation thresholds on the normalized elevation.
const (
	noiseScale    = 0.18
	seaLevel      = 0.35
	lowlandLevel  = 0.55
	highlandLevel = 0.75
)

// Generate returns a geography string for a rows x cols island using the
// default land codes. Elevation comes from OpenSimplex noise, lowered towards
// the edges so the land forms an island; the border is always water.
func Generate(rows, cols int, seed int64) (string, error) {
	if rows < 3 || cols < 3 {
		return "", fmt.Errorf("%w: need at least 3x3 cells, got %dx%d", ErrMapTooSmall, rows, cols)
	}
	noise := opensimplex.NewNormalized(seed)

	var sb strings.Builder
	sb.Grow(rows * (cols + 1))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r == 0 || c == 0 || r == rows-1 || c == cols-1 {
				sb.WriteByte('W')
				continue
			}
			e := noise.Eval2(float64(c)*noiseScale, float64(r)*noiseScale)
			sb.WriteByte(landFor(e * falloff(r, c, rows, cols)))
		}
		if r < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// falloff is 1 in the middle of the map and drops towards 0 at the edges.
func falloff(r, c, rows, cols int) float64 {
	dy := (float64(r) - float64(rows-1)/2) / (float64(rows-1) / 2)
	dx := (float64(c) - float64(cols-1)/2) / (float64(cols-1) / 2)
	d := math.Max(math.Abs(dx), math.Abs(dy))
	return 1 - math.Pow(d, 3)
}

func landFor(e float64) byte {
	switch {
	case e < seaLevel:
		return 'W'
	case e < lowlandLevel:
		return 'L'
	case e < highlandLevel:
		return 'H'
	default:
		return 'D'
	}
}

package detection

import (
	"math"
	"sort"

	"github.com/menta2k/facemask/pkg/types"
)

// NMS performs non-maximum suppression: of any two faces whose boxes overlap
// by more than iouThreshold, the one with the lower confidence is dropped.
// Surviving faces keep their input order.
func NMS(faces []types.FaceDetection, iouThreshold float64) []types.FaceDetection {
	if len(faces) < 2 {
		return faces
	}

	// Visit by score (descending)
	order := make([]int, len(faces))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return faces[order[i]].Confidence > faces[order[j]].Confidence
	})

	keep := make([]bool, len(faces))
	for i := range keep {
		keep[i] = true
	}

	for a := 0; a < len(order); a++ {
		i := order[a]
		if !keep[i] {
			continue
		}
		for b := a + 1; b < len(order); b++ {
			j := order[b]
			if !keep[j] {
				continue
			}
			if IoU(faces[i].Box, faces[j].Box) > iouThreshold {
				keep[j] = false
			}
		}
	}

	result := make([]types.FaceDetection, 0, len(faces))
	for i, face := range faces {
		if keep[i] {
			result = append(result, face)
		}
	}
	return result
}

// IoU calculates intersection over union of two boxes
func IoU(a, b types.Box) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.Width, b.X+b.Width)
	y2 := math.Min(a.Y+a.Height, b.Y+b.Height)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Width*a.Height + b.Width*b.Height - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

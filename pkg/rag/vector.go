package rag

import (
	"fmt"
	"strconv"
	"strings"
)

// VectorLiteral formats v as a pgvector text literal, e.g. [0.1,-2,3.5].
func VectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.Grow(len(v)*10 + 2)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// CheckDimensions fails with ErrDimensionMismatch unless len(v) == dimensions.
func CheckDimensions(v []float32, dimensions int) error {
	if len(v) != dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dimensions)
	}
	return nil
}

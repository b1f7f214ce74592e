package types

import "fmt"

// Vector is the embedding of one chunk, or of a query when ChunkID is empty
type Vector struct {
	ChunkID string
	Values  []float32
	Dim     int
	Model   string // provider/model identity the vector was produced with
}

// NewVector builds a Vector whose Dim matches its values
func NewVector(chunkID string, values []float32, model string) Vector {
	return Vector{
		ChunkID: chunkID,
		Values:  values,
		Dim:     len(values),
		Model:   model,
	}
}

// Validate checks the declared dimension against the values
func (v *Vector) Validate() error {
	if v.Dim <= 0 {
		return fmt.Errorf("%w: vector for chunk %q has no dimensions", ErrDimensionMismatch, v.ChunkID)
	}
	if len(v.Values) != v.Dim {
		return fmt.Errorf("%w: vector for chunk %q declares %d dims, has %d",
			ErrDimensionMismatch, v.ChunkID, v.Dim, len(v.Values))
	}
	return nil
}

package embedding

import "errors"

// ErrEmptyEmbedding indicates the backend returned no vector for the input.
var ErrEmptyEmbedding = errors.New("embedding: backend returned no vectors")

// ErrCountMismatch indicates the backend returned a different number of
// vectors than texts submitted.
var ErrCountMismatch = errors.New("embedding: vector count does not match input count")

package domain

// EmbeddingDim is the fixed dimensionality of document embedding vectors.
const EmbeddingDim = 1536

// Record is a search result row keyed by requested field name, plus
// "similarity_score" when semantic search was active. Vector-typed values are
// normalized to []float32 and point-typed values to [2]float64 regardless of
// which table the column came from.
type Record map[string]any

// SimilarityScoreField is the reserved projection name for the computed
// semantic similarity score.
const SimilarityScoreField = "similarity_score"

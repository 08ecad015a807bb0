package domain

// PipelineConfig holds the chunking, retrieval and generation knobs of the evidence pipeline.
type PipelineConfig struct {
	ChunkSize           int
	ChunkOverlap        int
	MinUnitLength       int
	TopK                int
	MaxTopK             int
	SimilarityFloor     float64
	ConfidenceThreshold float64
	Temperature         float32
	MaxQuestionLength   int
	EmbedConcurrency    int
	DefaultLanguage     string
}

// DefaultPipelineConfig returns the defaults the assistant ships with.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:           500,
		ChunkOverlap:        80,
		MinUnitLength:       6,
		TopK:                5,
		MaxTopK:             15,
		SimilarityFloor:     0.35,
		ConfidenceThreshold: 0.35,
		Temperature:         0.1,
		MaxQuestionLength:   1000,
		EmbedConcurrency:    DefaultBatchConcurrency,
		DefaultLanguage:     "fr",
	}
}

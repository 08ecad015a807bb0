package db

// KNNQuery asks for the K nearest hashes to Vector.
type KNNQuery struct {
	IndexName    string
	VectorField  string // "vector" when empty
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is one page of hits plus the engine's total.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. For KNN queries Score is the raw vector distance
// reported by the engine, smaller is nearer.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// GroupCount is one row of a GROUPBY ... REDUCE COUNT aggregation.
type GroupCount struct {
	Value string
	Count int
}

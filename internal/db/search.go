package db

// TagFilter restricts a search to documents whose tag field holds any of Values.
type TagFilter struct {
	Field  string
	Values []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // index alias of the vector field
	Filters      []TagFilter
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for paginated listing.
type ListQuery struct {
	IndexName    string
	Query        string // "*" when empty
	Offset       int
	Limit        int
	SortBy       string
	Desc         bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit.
// For KNN queries Distance holds the raw metric value reported by the index.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}

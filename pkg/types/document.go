package types

// Document is one entry of a ranked retrieval result set.
type Document struct {
	Path       string
	SymbolName string // symbol the matched chunk belongs to, if any
	Content    string
	StartLine  int
	EndLine    int

	Rank  int     // 1-based position in the merged result set
	Score float64 // similarity of the best contributing hit; 0 for graph-expanded entries

	// Related marks documents pulled in via graph expansion rather than
	// direct vector similarity.
	Related bool
}

// RetrievalResult is the merged, deduplicated output of a related-code query.
type RetrievalResult struct {
	Documents []Document
	// Paths is the set of files that contributed to the result, hits and
	// expansions alike, in rank order.
	Paths []string
}

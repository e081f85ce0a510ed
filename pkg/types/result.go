package types

// WeightedSearchResult is one ranked hit from the fusion engine. It keeps
// the raw per-collection distances alongside the normalized scores so
// callers can inspect how the total was composed. Built transiently per
// query; never persisted.
type WeightedSearchResult struct {
	// Identification
	Identity string
	Rank     int // Position in result set (1-based)

	// Metadata snapshot stored with the hit, if the metadata collection
	// had a record for this identity.
	Metadata *FileMetadata

	// Raw cosine distances in [0, 2]. A collection with no hit for this
	// identity reports distance 1 (orthogonal).
	RawMetadataDistance float64
	RawContentDistance  float64

	// Weighted, normalized similarity contributions in [0, 1].
	MetadataScore float64
	ContentScore  float64

	// TotalScore is the fused ranking score in [0, 1].
	TotalScore float64
}

// Validate checks if the search result is valid.
func (r *WeightedSearchResult) Validate() error {
	if r.Identity == "" {
		return ErrMissingIdentity
	}
	if r.Rank < 1 {
		return ErrInvalidRank
	}
	if r.TotalScore < 0 || r.TotalScore > 1 {
		return ErrInvalidScore
	}
	return nil
}

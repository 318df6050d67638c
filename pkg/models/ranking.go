package models

// RankingRequest asks for an ordering of CandidateItems for TargetUserID.
type RankingRequest struct {
	TargetUserID   string                 `json:"user_id" validate:"required"`
	CandidateItems []string               `json:"candidate_items" validate:"required,min=1,max=500,dive,required"`
	Context        map[string]interface{} `json:"context,omitempty"`
}

// RankingResult is a reordering of the request candidates. Scores is aligned with RankedItems.
type RankingResult struct {
	UserID      string    `json:"user_id"`
	RankedItems []string  `json:"ranked_items"`
	Scores      []float64 `json:"scores"`
	Explanation string    `json:"explanation"`
}

// BatchRankingRequest groups independent ranking requests. Entries are not validated up front;
// an invalid entry fails on its own.
type BatchRankingRequest struct {
	Requests []RankingRequest `json:"requests" validate:"required,min=1,max=50"`
}

// BatchRankingEntry carries either a result or the error code for one request of a batch.
type BatchRankingEntry struct {
	UserID string         `json:"user_id"`
	Result *RankingResult `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type BatchRankingResponse struct {
	Results []BatchRankingEntry `json:"results"`
}

// ItemFeatures are the content attributes of an item as returned by the catalog.
type ItemFeatures struct {
	ItemID       string  `json:"item_id" db:"item_id"`
	Category     string  `json:"category" db:"category"`
	Brand        string  `json:"brand" db:"brand"`
	Price        float64 `json:"price" db:"price"`
	Popularity   float64 `json:"popularity" db:"popularity"`
	QualityScore float64 `json:"quality_score" db:"quality_score"`
}

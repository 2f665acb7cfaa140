package types

// RetrieveRequest is the input contract for a retrieval call.
type RetrieveRequest struct {
	Question          string `json:"question"`
	StableID          string `json:"stableId,omitempty"`
	K                 int    `json:"k,omitempty"`
	UseAdvancedSearch bool   `json:"useAdvancedSearch,omitempty"`
}

// RetrieveResponse is the output contract. On success Passages and Cached are
// set. When a downstream dependency failed and the request degraded instead
// of erroring, Fallback is true and Error describes the degradation.
type RetrieveResponse struct {
	Passages []RetrievedPassage `json:"passages"`
	Cached   bool               `json:"cached"`
	Fallback bool               `json:"fallback,omitempty"`
	Error    string             `json:"error,omitempty"`
}

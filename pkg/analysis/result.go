package analysis

// Decision values a valuation can land on.
const (
	DecisionBuy  = "BUY"
	DecisionSell = "SELL"
	DecisionHold = "HOLD"
	DecisionPass = "PASS"
)

// Vote is one model's contribution to the consensus.
type Vote struct {
	ProviderName   string  `json:"provider_name"`
	Icon           string  `json:"icon"`
	Weight         float64 `json:"weight"`
	Success        bool    `json:"success"`
	EstimatedValue float64 `json:"estimated_value"`
	Decision       string  `json:"decision"`
	Confidence     float64 `json:"confidence"`
	ResponseTimeMs int64   `json:"response_time_ms"`
}

// ConsensusResult is the canonical valuation shape handed to callers.
// Produced exactly once per completed submission, always by Normalize, so
// every field is populated regardless of what the upstream returned.
type ConsensusResult struct {
	ID                  string   `json:"id"`
	ItemName            string   `json:"item_name"`
	EstimatedValue      float64  `json:"estimated_value"`
	Decision            string   `json:"decision"`
	Confidence          float64  `json:"confidence"`
	ReasoningSummary    string   `json:"reasoning_summary"`
	ContributingFactors []string `json:"contributing_factors"`
	Votes               []Vote   `json:"votes"`
}

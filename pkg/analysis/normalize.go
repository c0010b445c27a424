package analysis

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const placeholderReasoning = "No detailed reasoning was provided for this valuation."

const defaultVoteIcon = "🤖"

// Normalize coerces a raw upstream result into the canonical shape. It is
// total: it never returns an error, and unparsable input yields a fully
// defaulted placeholder rather than a failure. Field names vary across
// upstream versions, so every lookup walks the known spellings.
func Normalize(raw []byte) *ConsensusResult {
	fields := map[string]interface{}{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &fields)
	}
	// Some upstream versions wrap the payload one level down.
	if inner, ok := fields["result"].(map[string]interface{}); ok {
		fields = inner
	}

	res := &ConsensusResult{
		ID:               pickString(fields, "id", "result_id", "resultId"),
		ItemName:         pickString(fields, "itemName", "item_name", "name"),
		Decision:         canonicalDecision(pickString(fields, "decision", "consensus_decision", "consensusDecision")),
		ReasoningSummary: pickString(fields, "reasoningSummary", "summary_reasoning", "reasoning"),
	}
	res.EstimatedValue, _ = pickFloat(fields, "estimatedValue", "estimated_value", "final_value", "value")
	if conf, ok := pickFloat(fields, "confidence", "consensus_confidence"); ok {
		res.Confidence = conf
	} else {
		res.Confidence = 0.5
	}

	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.ItemName == "" {
		res.ItemName = "Unknown Item"
	}
	if res.Decision == "" {
		res.Decision = DecisionSell
	}
	if res.ReasoningSummary == "" {
		res.ReasoningSummary = placeholderReasoning
	}

	res.ContributingFactors = normalizeFactors(fields)
	res.Votes = normalizeVotes(fields)
	return res
}

func normalizeFactors(fields map[string]interface{}) []string {
	factors := []string{}
	for _, entry := range pickSlice(fields, "contributingFactors", "valuation_factors", "factors") {
		switch v := entry.(type) {
		case string:
			if v != "" {
				factors = append(factors, v)
			}
		case map[string]interface{}:
			if s := pickString(v, "factor", "description", "name", "text"); s != "" {
				factors = append(factors, s)
			}
		}
	}
	return factors
}

func normalizeVotes(fields map[string]interface{}) []Vote {
	raw := pickSlice(fields, "votes", "model_votes", "modelVotes", "modelResults", "model_results")
	votes := make([]Vote, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		votes = append(votes, normalizeVote(m))
	}
	return votes
}

func normalizeVote(m map[string]interface{}) Vote {
	v := Vote{
		ProviderName: pickString(m, "providerName", "provider_name", "provider", "model", "name"),
		Icon:         pickString(m, "icon"),
		Decision:     canonicalDecision(pickString(m, "decision")),
	}
	v.EstimatedValue, _ = pickFloat(m, "estimatedValue", "estimated_value", "estimate", "value")
	if w, ok := pickFloat(m, "weight"); ok {
		v.Weight = w
	} else {
		v.Weight = 1
	}
	if c, ok := pickFloat(m, "confidence"); ok {
		v.Confidence = c
	} else {
		v.Confidence = 0.5
	}
	if s, ok := pickBool(m, "success"); ok {
		v.Success = s
	} else {
		v.Success = true
	}
	if ms, ok := pickFloat(m, "responseTimeMs", "response_time_ms"); ok {
		v.ResponseTimeMs = int64(ms)
	}

	if v.ProviderName == "" {
		v.ProviderName = "unknown-model"
	}
	if v.Icon == "" {
		v.Icon = defaultVoteIcon
	}
	if v.Decision == "" {
		v.Decision = DecisionSell
	}
	return v
}

func canonicalDecision(s string) string {
	switch d := strings.ToUpper(strings.TrimSpace(s)); d {
	case DecisionBuy, DecisionSell, DecisionHold, DecisionPass:
		return d
	}
	return ""
}

func pickString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func pickFloat(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func pickBool(m map[string]interface{}, keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := m[k].(bool); ok {
			return b, true
		}
	}
	return false, false
}

func pickSlice(m map[string]interface{}, keys ...string) []interface{} {
	for _, k := range keys {
		if s, ok := m[k].([]interface{}); ok {
			return s
		}
	}
	return nil
}

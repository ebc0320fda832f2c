package report

import (
	"github.com/tomyedwab/toolprobe/history"
	"github.com/tomyedwab/toolprobe/streamjson"
)

// ExtractUsage reads token usage and cost from the first result message
// that reports them. Messages without usage leave the totals at zero.
func ExtractUsage(messages []streamjson.Message) history.TokenUsage {
	usage := history.TokenUsage{}

	for _, msg := range messages {
		v := asView(msg)
		if v.str("type", "") != "result" {
			continue
		}

		found := false
		if u := v.object("usage"); u != nil {
			usage.InputTokens = int(u.integer("input_tokens", 0))
			usage.OutputTokens = int(u.integer("output_tokens", 0))
			usage.CacheCreationTokens = int(u.integer("cache_creation_input_tokens", 0))
			usage.CacheReadTokens = int(u.integer("cache_read_input_tokens", 0))
			found = true
		}
		if cost, ok := v.float("total_cost_usd"); ok {
			usage.CostUSD = cost
			found = true
		}
		if found {
			break
		}
	}

	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	return usage
}

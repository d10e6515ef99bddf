package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/itr-cli/internal/model"
	"github.com/sells-group/itr-cli/internal/processor"
	"github.com/sells-group/itr-cli/pkg/anthropic"
)

// searchLimit caps how many matches a search tool returns to the
// model; full result sets for broad patterns would drown the context.
const searchLimit = 20

// toolDefs declares the four operations offered to the model.
func toolDefs() []anthropic.ToolDef {
	return []anthropic.ToolDef{
		{
			Name: "query_subsystem_itrs",
			Description: "Get comprehensive ITR status for a subsystem: total, open, completed, " +
				"not started and ongoing counts, per-type breakdown, and completion rate. " +
				"Use for any question about ITR counts or progress in a specific subsystem.",
			InputSchema: map[string]any{
				"subsystem_id": map[string]any{
					"type":        "string",
					"description": `The exact SubSystem ID to query, e.g. "7-1100-P-01-05"`,
				},
			},
			Required: []string{"subsystem_id"},
		},
		{
			Name: "search_subsystems",
			Description: "Find subsystems whose ID or description contains a pattern " +
				"(case-insensitive). An empty pattern lists all subsystems. " +
				"Use to discover valid subsystem IDs before querying.",
			InputSchema: map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": `Substring to match, e.g. "7-1100" or "pump". Empty matches all.`,
				},
			},
		},
		{
			Name: "search_systems",
			Description: "Find systems whose ID or description contains a pattern " +
				"(case-insensitive), with the subsystems under each. " +
				"An empty pattern lists all systems.",
			InputSchema: map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Substring to match against system IDs or descriptions. Empty matches all.",
				},
			},
		},
		{
			Name: "manage_cache",
			Description: "Inspect or refresh the dataset cache. " +
				`Action "status" reports record count, cache age, and validity; ` +
				`"reload" forces a fresh load from the workbook.`,
			InputSchema: map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{"status", "reload"},
				},
			},
			Required: []string{"action"},
		},
	}
}

// searchResult is the envelope for both search tools, sized for model
// consumption.
type searchResult struct {
	Pattern   string `json:"pattern"`
	Found     int    `json:"found"`
	Matches   any    `json:"matches"`
	Truncated string `json:"truncated,omitempty"`
	Guidance  string `json:"guidance,omitempty"`
}

// notFoundResult is the structured answer for an unknown subsystem. It
// is a normal result, not a tool error; the model relays the
// suggestions to the user.
type notFoundResult struct {
	Error       string   `json:"error"`
	SubsystemID string   `json:"subsystem_id"`
	Suggestions []string `json:"suggestions,omitempty"`
	Guidance    string   `json:"guidance"`
}

// dispatch executes one tool invocation against the processor and
// packages the outcome as a tool result.
func (a *Agent) dispatch(ctx context.Context, use anthropic.ToolUse) anthropic.ToolResult {
	zap.L().Debug("tool dispatch", zap.String("tool", use.Name), zap.ByteString("input", use.Input))

	payload, err := a.execute(ctx, use)
	if err != nil {
		return anthropic.ToolResult{
			ToolUseID: use.ID,
			Content:   fmt.Sprintf(`{"error":%q}`, err.Error()),
			IsError:   true,
		}
	}
	return anthropic.ToolResult{ToolUseID: use.ID, Content: payload}
}

func (a *Agent) execute(ctx context.Context, use anthropic.ToolUse) (string, error) {
	switch use.Name {
	case "query_subsystem_itrs":
		var in struct {
			SubsystemID string `json:"subsystem_id"`
		}
		if err := json.Unmarshal(use.Input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}

		breakdown, err := a.proc.GetITRStatus(ctx, in.SubsystemID)
		var notFound *processor.NotFoundError
		if errors.As(err, &notFound) {
			return marshal(notFoundResult{
				Error:       notFound.Error(),
				SubsystemID: notFound.SubsystemID,
				Suggestions: notFound.Suggestions,
				Guidance:    "Use search_subsystems to find valid subsystem IDs",
			})
		}
		if err != nil {
			return "", err
		}
		return marshal(breakdown)

	case "search_subsystems":
		var in struct {
			Pattern string `json:"pattern"`
		}
		if err := json.Unmarshal(use.Input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}

		matches, err := a.proc.SearchSubsystems(ctx, in.Pattern)
		if err != nil {
			return "", err
		}
		return marshal(envelope(in.Pattern, len(matches), truncateSubsystems(matches),
			"Use query_subsystem_itrs to get ITR details for any subsystem"))

	case "search_systems":
		var in struct {
			Pattern string `json:"pattern"`
		}
		if err := json.Unmarshal(use.Input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}

		matches, err := a.proc.SearchSystems(ctx, in.Pattern)
		if err != nil {
			return "", err
		}
		return marshal(envelope(in.Pattern, len(matches), truncateSystems(matches),
			"Use search_subsystems or query_subsystem_itrs to drill into a system's subsystems"))

	case "manage_cache":
		var in struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(use.Input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}

		status, err := a.proc.ManageCache(ctx, in.Action)
		if err != nil {
			return "", err
		}
		return marshal(status)

	default:
		return "", fmt.Errorf("unknown tool %q", use.Name)
	}
}

func envelope(pattern string, found int, matches any, guidance string) searchResult {
	r := searchResult{
		Pattern:  pattern,
		Found:    found,
		Matches:  matches,
		Guidance: guidance,
	}
	if n := resultCount(matches); found > n {
		r.Truncated = fmt.Sprintf("Showing first %d of %d matches", n, found)
	}
	return r
}

func resultCount(matches any) int {
	switch m := matches.(type) {
	case []model.SubsystemMatch:
		return len(m)
	case []model.SystemMatch:
		return len(m)
	default:
		return 0
	}
}

func truncateSubsystems(matches []model.SubsystemMatch) []model.SubsystemMatch {
	if len(matches) > searchLimit {
		return matches[:searchLimit]
	}
	return matches
}

func truncateSystems(matches []model.SystemMatch) []model.SystemMatch {
	if len(matches) > searchLimit {
		return matches[:searchLimit]
	}
	return matches
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(raw), nil
}

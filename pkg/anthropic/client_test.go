package anthropic

import (
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSDKMessage_TextBlocks(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:         "msg_test_123",
		Model:      "claude-sonnet-4-5-20250929",
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Hello "},
			{Type: "text", Text: "world"},
		},
		Usage: sdk.Usage{
			InputTokens:  100,
			OutputTokens: 50,
		},
	}

	resp := fromSDKMessage(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_123", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "Hello world", resp.Text)
	assert.Empty(t, resp.ToolUses)
	assert.Equal(t, int64(100), resp.Usage.InputTokens)
	assert.Equal(t, int64(50), resp.Usage.OutputTokens)
}

func TestFromSDKMessage_ToolUseBlock(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:         "msg_tool",
		StopReason: "tool_use",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Let me look that up."},
			{
				Type:  "tool_use",
				ID:    "toolu_01",
				Name:  "query_subsystem_itrs",
				Input: json.RawMessage(`{"subsystem_id":"7-1100-P-01-05"}`),
			},
		},
	}

	resp := fromSDKMessage(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "tool_use", resp.StopReason)
	assert.Equal(t, "Let me look that up.", resp.Text)
	require.Len(t, resp.ToolUses, 1)
	assert.Equal(t, "toolu_01", resp.ToolUses[0].ID)
	assert.Equal(t, "query_subsystem_itrs", resp.ToolUses[0].Name)

	var input map[string]string
	require.NoError(t, json.Unmarshal(resp.ToolUses[0].Input, &input))
	assert.Equal(t, "7-1100-P-01-05", input["subsystem_id"])
}

func TestToSDKTools(t *testing.T) {
	tools := toSDKTools([]ToolDef{
		{
			Name:        "search_subsystems",
			Description: "Find subsystems by pattern",
			InputSchema: map[string]any{
				"pattern": map[string]any{"type": "string"},
			},
			Required: []string{"pattern"},
		},
	})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "search_subsystems", tools[0].OfTool.Name)
	assert.Equal(t, []string{"pattern"}, tools[0].OfTool.InputSchema.Required)
}

func TestToSDKMessages_RoleMapping(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "How many open ITRs in S-1?"},
		{Role: "assistant", ToolUses: []ToolUse{{ID: "toolu_01", Name: "query_subsystem_itrs", Input: json.RawMessage(`{}`)}}},
		{Role: "user", ToolResults: []ToolResult{{ToolUseID: "toolu_01", Content: `{"total":5}`}}},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
}

package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/report"
)

// handleStats processes papersift_stats tool calls.
func handleStats(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input StatsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Path == "" {
		return errorResult(ErrEmptyPath)
	}

	records, err := paper.LoadList(input.Path)
	if err != nil {
		return errorResult(err)
	}

	stats := report.Compute(records)
	if input.HideListing {
		stats.Groups = nil
	}

	result, output, err := jsonResult(stats)
	if output.outcome == "" {
		output.papers = len(records)
	}

	return result, output, err
}

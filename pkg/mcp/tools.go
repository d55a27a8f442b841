package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/papersift/pkg/observability"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/categorize"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/resolve"
)

// Tool name constants.
const (
	ToolNameStatus = "papersift_status"
	ToolNameStats  = "papersift_stats"
)

// Sentinel errors for tool input validation.
var (
	// ErrUnknownStage indicates the stage is neither filter nor categorize.
	ErrUnknownStage = resolve.ErrUnknownStage
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
)

// Input types (auto-generate JSON schemas via struct tags).

// StatusInput is the input schema for the papersift_status tool.
type StatusInput struct {
	Stage    string `json:"stage"              jsonschema:"resumable stage: filter or categorize"`
	Out      string `json:"out,omitempty"      jsonschema:"primary output file of the run (default depends on stage)"`
	Rejected string `json:"rejected,omitempty" jsonschema:"filter only: rejected output file (default stage-2-rejected.json)"`
}

// StatsInput is the input schema for the papersift_stats tool.
type StatsInput struct {
	Path        string `json:"path"                   jsonschema:"categorized paper list (stage-3 output)"`
	HideListing bool   `json:"hide_listing,omitempty" jsonschema:"omit the per-category paper listing"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`

	outcome string
	papers  int
}

func statusStage(input StatusInput) string { return input.Stage }

// statsStage attributes stats calls to the stage whose output they read.
func statsStage(StatsInput) string { return categorize.Stage }

// outcomeOf maps a tool error to its metric outcome.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrUnknownStage):
		return observability.OutcomeUnknownStage
	case errors.Is(err, os.ErrNotExist):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrEmptyPath), errors.Is(err, paper.ErrInvalidInput):
		return observability.OutcomeInvalidInput
	default:
		return observability.OutcomeError
	}
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{outcome: outcomeOf(err)}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

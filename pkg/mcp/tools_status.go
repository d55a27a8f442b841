package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/papersift/pkg/driver"
	"github.com/Sumatoshi-tech/papersift/pkg/paper"
	"github.com/Sumatoshi-tech/papersift/pkg/persist"
	"github.com/Sumatoshi-tech/papersift/pkg/stage/resolve"
)

// StatusOutput is the papersift_status result.
type StatusOutput struct {
	*driver.Status

	Resumable bool `json:"resumable"`
}

// handleStatus processes papersift_status tool calls.
func (s *Server) handleStatus(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input StatusInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	outputs, err := resolve.Outputs(input.Stage, input.Out, input.Rejected)
	if err != nil {
		return errorResult(err)
	}

	cfg := driver.Config[paper.Paper]{
		Stage:    input.Stage,
		Outputs:  outputs,
		StateDir: s.deps.CheckpointDir,
	}

	if s.deps.Compress {
		cfg.Codec = persist.NewLZ4Codec(persist.NewJSONCodec())
	}

	status, err := driver.Inspect(cfg)
	if err != nil {
		return errorResult(fmt.Errorf("inspect %s: %w", input.Stage, err))
	}

	result, output, err := jsonResult(StatusOutput{Status: status, Resumable: status.Resumable()})
	if output.outcome == "" && status.Progress != nil {
		output.papers = status.Progress.TotalRecords()
	}

	return result, output, err
}

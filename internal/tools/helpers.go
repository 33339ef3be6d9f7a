// Package tools implements the MCP tool handlers of the planning engine.
//
// Each tool receives its dependencies through its struct and exposes a
// Definition for registration and a Handle compatible with mcp-go's
// CallToolRequest signature. Input problems the caller can fix come back
// as tool errors; only infrastructure failures are returned as Go errors.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/propgate/internal/coverage"
	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/spec"
)

var timeNow = time.Now

// requestDescription is shared by every tool that takes a request
// document.
const requestDescription = "Property package request as YAML or JSON: components, phases, " +
	"state_definition, coverage_mode, required_properties, deferrals, equilibrium " +
	"{required, pairs, form}, eos_by_phase, transport_included, base_units, approach."

// parseSpec decodes and normalizes the 'request' argument. A nil result
// with a non-nil tool result means the input was rejected.
func parseSpec(req mcp.CallToolRequest) (*spec.Specification, *mcp.CallToolResult) {
	doc := req.GetString("request", "")
	if doc == "" {
		return nil, mcp.NewToolResultError("'request' is required")
	}
	raw, err := spec.ParseRequest([]byte(doc))
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	s, err := spec.Normalize(raw)
	if err != nil {
		return nil, mcp.NewToolResultError("normalizing request: " + err.Error())
	}
	return s, nil
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// isUserError reports whether err is caused by the caller's input rather
// than by the engine's infrastructure.
func isUserError(err error) bool {
	var (
		incomplete *spec.IncompleteSpecError
		ref        *spec.InvalidReferenceError
		value      *spec.InvalidValueError
		eq         *mapper.IncompatibleEquilibriumConfig
		override   *mapper.OverrideError
		deferral   *coverage.EquilibriumCoverageViolation
	)
	return errors.As(err, &incomplete) ||
		errors.As(err, &ref) ||
		errors.As(err, &value) ||
		errors.As(err, &eq) ||
		errors.As(err, &override) ||
		errors.As(err, &deferral) ||
		errors.Is(err, ledger.ErrFabricatedProvenance) ||
		errors.Is(err, ledger.ErrWouldDowngrade) ||
		errors.Is(err, ledger.ErrSupersedeRationale) ||
		errors.Is(err, ledger.ErrInvalidRecord)
}

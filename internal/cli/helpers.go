package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/weft/internal/compiler"
	"github.com/aretw0/weft/pkg/authoring"
	"github.com/aretw0/weft/pkg/domain"
)

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeExecute: func(_ context.Context, e *domain.NodeEvent) {
			logger.Debug("node executed", "graph", e.Graph, "entity", uint64(e.Entity),
				"node_id", uint32(e.NodeID), "type", e.NodeType, "result", e.Result.String())
		},
		OnNodeError: func(_ context.Context, e *domain.NodeEvent, err error) {
			logger.Error("node failed", "graph", e.Graph, "entity", uint64(e.Entity),
				"node_id", uint32(e.NodeID), "type", e.NodeType, "err", err)
		},
		OnFrameAborted: func(_ context.Context, e *domain.FrameEvent) {
			logger.Warn("frame aborted", "graph", e.Graph, "entity", uint64(e.Entity),
				"frame", e.Frame, "executed", e.Executed)
		},
	}
}

// GraphKey names the stored definition of a graph file: its base name
// without extension.
func GraphKey(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Compile compiles the authoring graph at path with the engine's settings.
// Diagnostics are returned in the result; an error means the graph could
// not be read or has error diagnostics.
func Compile(ctx context.Context, eng *Engine, path string) (*compiler.Result, error) {
	g, err := authoring.LoadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := eng.Compile(ctx, g)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return res, fmt.Errorf("%w: %s: %v", domain.ErrInvalidGraph, path, err)
	}
	return res, nil
}

// LoadDefinition reads path as a compiled definition when it is one, and
// compiles it as an authoring graph otherwise.
func LoadDefinition(ctx context.Context, eng *Engine, path string) (*domain.GraphDefinition, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		def, derr := domain.UnmarshalDefinition(data)
		if derr == nil {
			return def, nil
		}
		if isCompiled(data) {
			return nil, fmt.Errorf("failed to decode %s: %w", path, derr)
		}
	}
	res, err := Compile(ctx, eng, path)
	if err != nil {
		return nil, err
	}
	return res.Definition, nil
}

// isCompiled tells compiled definitions from authoring graphs by their
// top-level hash and data table.
func isCompiled(data []byte) bool {
	var probe map[string]json.RawMessage
	if json.Unmarshal(data, &probe) != nil {
		return false
	}
	_, hash := probe["hash"]
	_, slots := probe["data"]
	return hash && slots
}

// PrintDiagnostics writes one line per diagnostic to stderr.
func PrintDiagnostics(res *compiler.Result) {
	if res == nil {
		return
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintln(os.Stderr, d.Error())
	}
}

// IsInvalidGraph reports whether err comes from error diagnostics.
func IsInvalidGraph(err error) bool {
	return errors.Is(err, domain.ErrInvalidGraph)
}

package preflight

import (
	"context"

	"reelfactory/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunLocal executes the filesystem checks for the given config.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results,
			CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
			CheckFreeSpace("Media disk", cfg.Paths.MediaDir, MinFreeBytes),
		)
	}
	return results
}

// RunAll executes the local checks followed by the service checks. Only the
// LLM check touches the network.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(cfg)
	results = append(results,
		CheckLLM(ctx, "LLM", cfg.LLM),
		CheckGemini(ctx, cfg.Gemini),
		CheckPublisher(ctx, cfg.Publisher),
	)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

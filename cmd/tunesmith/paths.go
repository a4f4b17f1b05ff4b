package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	envCheckpoint = "TUNESMITH_CHECKPOINT"
	envCorpus     = "TUNESMITH_CORPUS"
)

// resolveCheckpoint picks the checkpoint from the flag, then the
// environment, then the config file.
func resolveCheckpoint(flag string, cfg Config) (string, error) {
	if p := firstNonEmpty(flag, os.Getenv(envCheckpoint), cfg.Checkpoint); p != "" {
		return filepath.Clean(p), nil
	}
	return "", fmt.Errorf("--checkpoint is required unless %s is set", envCheckpoint)
}

// resolveCorpus follows the same order as resolveCheckpoint. An empty result
// is valid: the alphabet then comes from the checkpoint.
func resolveCorpus(flag string, cfg Config) string {
	if p := firstNonEmpty(flag, os.Getenv(envCorpus), cfg.Corpus); p != "" {
		return filepath.Clean(p)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// writeOutput creates parent directories as needed.
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

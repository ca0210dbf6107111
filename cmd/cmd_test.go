package cmd

import (
	"bytes"
	"sort"
	"strings"
	"testing"
)

func TestExecuteGenerateReachesEndTokenAndPrintsOutput(t *testing.T) {
	root := NewCLI()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"generate", "--prompt", "1,2,3", "--end-id", "0", "--max-new-tokens", "4", "--vocab", "8"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if strings.TrimSpace(out.String()) == "" {
		t.Error("generate produced no output")
	}
	if !strings.HasSuffix(strings.TrimSpace(out.String()), ",0") {
		t.Errorf("generate output %q does not end with the end token 0", out.String())
	}
}

func TestExecuteConfigPrintsSortedKeys(t *testing.T) {
	root := NewCLI()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !strings.Contains(out.String(), "INFER_BEAM_WIDTH") {
		t.Errorf("config output missing INFER_BEAM_WIDTH, got %q", out.String())
	}

	var keys []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		keys = append(keys, strings.Fields(line)[0])
	}
	if !sort.StringsAreSorted(keys) {
		t.Errorf("config keys not printed in sorted order: %v", keys)
	}
}

func TestExecuteUnknownCommandReturnsError(t *testing.T) {
	root := NewCLI()
	root.SetArgs([]string{"no-such-command"})
	if err := root.Execute(); err == nil {
		t.Error("Execute with an unknown subcommand: want error, got nil")
	}
}

func TestAppendEnvDocsAddsEnvironmentSection(t *testing.T) {
	root := NewCLI()
	if !strings.Contains(root.UsageTemplate(), "Environment Variables") {
		t.Error("UsageTemplate() missing the appended Environment Variables section")
	}
}

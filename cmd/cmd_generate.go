package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvidia/batchdecode/config"
	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/sampling"
	"github.com/nvidia/batchdecode/scheduler"
	"github.com/nvidia/batchdecode/session"
)

// newGenerateCmd wires a fake engine, a scheduler, and a session driver
// together for local experimentation, mirroring the teacher's
// cmd_generate.go generate subcommand narrowed from an HTTP client call to
// an in-process driver (SPEC_FULL.md §4.J/§4.G).
func newGenerateCmd() *cobra.Command {
	var (
		prompt       string
		endID        int32
		maxNewTokens int
		vocab        int
	)

	c := &cobra.Command{
		Use:   "generate",
		Short: "Run a single generation request against a deterministic fake engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			promptIDs, err := parseTokenList(prompt)
			if err != nil {
				return err
			}

			beamWidth := config.BeamWidth()

			desc := engine.Descriptor{
				NumLayers:   1,
				NumHeads:    1,
				NumKVHeads:  1,
				HeadSize:    4,
				VocabSize:   vocab,
				VocabPadded: vocab,
				DType:       engine.DTypeF32,
			}
			fake := engine.NewFake(desc, deterministicScript(1, beamWidth, vocab, endID, maxNewTokens))

			sched := scheduler.Setup(1, beamWidth, len(promptIDs)+maxNewTokens, engine.DTypeF32, nil)
			cfg := (&sampling.Batch{
				BeamWidth:   []sampling.Value[int]{sampling.Set(beamWidth)},
				Temperature: []sampling.Value[float32]{sampling.Set(config.Temperature())},
				TopK:        []sampling.Value[int]{sampling.Set(config.TopK())},
				TopP:        []sampling.Value[float32]{sampling.Set(config.TopP())},
			}).Resolve(0)

			if err := sched.NewRequest(0, scheduler.Request{
				Prompt:       promptIDs,
				EndID:        endID,
				MaxNewTokens: maxNewTokens,
				BeamWidth:    beamWidth,
			}, cfg); err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			driver := session.New(fake, sched, nil)
			err = driver.Generate(context.Background(), maxNewTokens, func(step int) []int32 {
				return promptIDs
			}, 1, beamWidth, nil)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			for _, ids := range sched.GetFinalOutputIds() {
				fmt.Fprintln(cmd.OutOrStdout(), formatTokenList(ids))
			}
			return nil
		},
	}

	c.Flags().StringVar(&prompt, "prompt", "1,2,3", "comma-separated prompt token ids")
	c.Flags().Int32Var(&endID, "end-id", 0, "end-of-sequence token id")
	c.Flags().IntVar(&maxNewTokens, "max-new-tokens", 8, "maximum tokens to generate")
	c.Flags().IntVar(&vocab, "vocab", 32, "fake engine vocabulary size")

	return c
}

// deterministicScript builds a fixed logits sequence that always favors
// endID, so `generate` terminates promptly without a real model.
func deterministicScript(batchSize, beamWidth, vocab int, endID int32, steps int) []engine.Logits {
	script := make([]engine.Logits, steps)
	for s := 0; s < steps; s++ {
		values := make([]float32, batchSize*beamWidth*vocab)
		l := engine.Logits{BatchSize: batchSize, BeamWidth: beamWidth, VocabPadded: vocab, Values: values}
		for b := 0; b < batchSize; b++ {
			for beam := 0; beam < beamWidth; beam++ {
				row := l.Row(b, beam)
				for i := range row {
					row[i] = -1
				}
				if int(endID) < len(row) {
					row[endID] = 10
				}
			}
		}
		script[s] = l
	}
	return script
}

func parseTokenList(s string) ([]int32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q: %w", p, err)
		}
		ids = append(ids, int32(n))
	}
	return ids, nil
}

func formatTokenList(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}

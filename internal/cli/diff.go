package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/equivalence"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

type diffResult struct {
	RegistrationID string                `json:"registration_id"`
	Baseline       []string              `json:"baseline"`
	Working        []string              `json:"working"`
	Delta          models.SelectionDelta `json:"delta"`
	BaselineSKS    int                   `json:"baseline_sks"`
	Applied        bool                  `json:"applied"`
}

func newDiffCmd(global *globalOptions) *cobra.Command {
	var add, remove []string
	var apply bool

	cmd := &cobra.Command{
		Use:   "diff REGISTRATION_ID",
		Short: "Show the equivalence change that a selection would submit",
		Long: `Load a registration's saved equivalents, select and deselect subjects, and print
the minimal change against what is saved. With --apply the change is submitted.

Adding a subject that is already saved, or removing one that is not, has no effect.`,
		Example: `  # Preview replacing S1 with S7
  equivctl diff 6f1c0c3e --add S7 --remove S1

  # Submit it
  equivctl diff 6f1c0c3e --add S7 --remove S1 --apply`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logr := global.logger()
			defer logr.Sync() //nolint:errcheck
			client := global.client(logr)

			reg, err := client.FindByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load registration: %w", err)
			}

			rec := equivalence.NewReconciler(client, logr)
			rec.Initialize(reg)
			for _, id := range splitIDs(add) {
				if !rec.IsSelected(id) {
					rec.Toggle(id)
				}
			}
			for _, id := range splitIDs(remove) {
				if rec.IsSelected(id) {
					rec.Toggle(id)
				}
			}

			state := rec.State()
			result := diffResult{
				RegistrationID: reg.ID,
				Baseline:       state.Baseline,
				Working:        state.Working,
				Delta:          state.Delta,
				BaselineSKS:    equivalence.TotalCredits(equivalence.NewSelection(state.Baseline...), reg.EquivalentSubjects()),
			}

			if apply && state.HasChanges {
				if _, err := rec.Save(cmd.Context()); err != nil {
					return fmt.Errorf("submit equivalence change: %w", err)
				}
				result.Applied = true
			}

			if global.asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printDiff(cmd, result)
		},
	}

	cmd.Flags().StringSliceVar(&add, "add", nil, "Subject IDs to select")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Subject IDs to deselect")
	cmd.Flags().BoolVar(&apply, "apply", false, "Submit the change to the portal")

	return cmd
}

func splitIDs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printDiff(cmd *cobra.Command, r diffResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "registration %s: %d saved equivalents, %d SKS\n", r.RegistrationID, len(r.Baseline), r.BaselineSKS)
	if r.Delta.Empty() {
		_, err := fmt.Fprintln(w, "no changes")
		return err
	}
	for _, id := range r.Delta.ToAdd {
		fmt.Fprintf(w, "+ %s\n", id)
	}
	for _, id := range r.Delta.ToRemove {
		fmt.Fprintf(w, "- %s\n", id)
	}
	if r.Applied {
		_, err := fmt.Fprintln(w, "applied")
		return err
	}
	_, err := fmt.Fprintln(w, "not applied (use --apply to submit)")
	return err
}

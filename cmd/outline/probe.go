package main

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docoutline/internal/app"
	"github.com/spf13/cobra"
)

func probeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Load the semantic model, run one inference and report the tier documents would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			core, err := app.New(cfg, opts.logger())
			if err != nil {
				return err
			}
			defer core.Close()

			st := core.Controller.Decide(cmd.Context(), true)
			out := map[string]any{
				"model":  cfg.ModelName,
				"tier":   st.Tier.String(),
				"reason": st.Reason,
			}
			if info := core.ModelInfo(); info != nil {
				out["loaded"] = info.Loaded()
				out["stats"] = info.Stats().Snapshot()
			}
			b, _ := json.MarshalIndent(out, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

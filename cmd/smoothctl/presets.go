package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPresetsCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the configured presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := global.load(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tALGORITHM\tPARAMETERS\tDESCRIPTION")
			for _, name := range cfg.PresetNames() {
				preset, _ := cfg.Preset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, preset.Algorithm, formatParameters(preset.Parameters), preset.Description)
			}
			return w.Flush()
		},
	}
}

func formatParameters(values map[string]interface{}) string {
	if len(values) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%s=%v", k, values[k])
	}
	return out
}

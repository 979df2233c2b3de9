package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var techJSON bool

var techCmd = &cobra.Command{
	Use:   "tech",
	Short: "Technology registry",
	Long:  `Commands for inspecting the layer table and waveguide types of a technology`,
}

var techLayersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List the layer table",
	Args:  cobra.NoArgs,
	RunE:  runTechLayers,
}

var techWaveguidesCmd = &cobra.Command{
	Use:   "waveguides",
	Short: "List the waveguide types",
	Args:  cobra.NoArgs,
	RunE:  runTechWaveguides,
}

func init() {
	rootCmd.AddCommand(techCmd)
	techCmd.AddCommand(techLayersCmd)
	techCmd.AddCommand(techWaveguidesCmd)
	techCmd.PersistentFlags().BoolVar(&techJSON, "json", false, "output as JSON")
}

func runTechLayers(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	layers := e.tech.Layers()
	if techJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(layers)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tLAYER\tDESCRIPTION\n")
	for _, l := range layers {
		fmt.Fprintf(tw, "%s\t%d/%d\t%s\n", l.Name, l.Number, l.Datatype, l.Description)
	}
	return tw.Flush()
}

type waveguideRow struct {
	Name     string   `json:"name"`
	Width    float64  `json:"width"`
	Radius   float64  `json:"radius"`
	Bend     string   `json:"bend"`
	Compound bool     `json:"compound,omitempty"`
	Layers   []string `json:"layers,omitempty"`
}

func runTechWaveguides(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	var rows []waveguideRow
	for _, name := range e.tech.Waveguides() {
		wt, err := e.tech.Waveguide(name)
		if err != nil {
			return err
		}
		row := waveguideRow{Name: wt.Name, Width: wt.Width, Radius: wt.Radius, Bend: wt.Style.String(), Compound: wt.IsCompound()}
		for _, l := range wt.Layers {
			row.Layers = append(row.Layers, l.Layer)
		}
		rows = append(rows, row)
	}
	if techJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tWIDTH\tRADIUS\tBEND\n")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%s\n", r.Name, r.Width, r.Radius, r.Bend)
	}
	return tw.Flush()
}

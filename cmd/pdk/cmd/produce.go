package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/devrec"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/layout"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/lysexp"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/paramlit"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pcell"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pdkerr"
	"github.com/OpenTraceLab/OpenTracePDK/pkg/pin"
)

var (
	produceParams []string
	produceOutput string
)

var produceCmd = &cobra.Command{
	Use:   "produce <component>",
	Short: "Produce a component and dump it",
	Long: `Produces one component with the given parameter overrides and writes the
cell tree as an s-expression dump.

Values use literal syntax: numbers, true/false, lists such as [1, 2] and
point lists such as [(0,0), (10,0)]. Anything else is taken as text.

A failed produce still writes the cell, which then holds the error marker.

Examples:
  pdk produce Waveguide_Straight --param length=20
  pdk produce Ring_Single_Bus --param radius=10 --param gap=0.2 -o ring.lys
  pdk produce Waveguide --param 'path=[(0,0), (20,0), (20,20)]'`,
	Args: cobra.ExactArgs(1),
	RunE: runProduce,
}

func init() {
	rootCmd.AddCommand(produceCmd)
	produceCmd.Flags().StringArrayVarP(&produceParams, "param", "p", nil, "parameter override name=value (repeatable)")
	produceCmd.Flags().StringVarP(&produceOutput, "output", "o", "", "output file (default stdout)")
}

func parseOverrides(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("parameter %q is not name=value: %w", a, pdkerr.ErrParameterDomain)
		}
		out[name] = paramlit.ParseOrString(value)
	}
	return out, nil
}

func runProduce(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	overrides, err := parseOverrides(produceParams)
	if err != nil {
		return err
	}
	ctx, err := e.newContext()
	if err != nil {
		return err
	}
	cell, produceErr := e.lib.Create(ctx, args[0], overrides)
	var pe *pcell.ProduceError
	if produceErr != nil && !errors.As(produceErr, &pe) {
		return produceErr
	}

	if produceOutput == "" {
		if err := lysexp.Write(cmd.OutOrStdout(), cell); err != nil {
			return err
		}
		return produceErr
	}
	f, err := os.Create(produceOutput)
	if err != nil {
		return err
	}
	if err := lysexp.Write(f, cell); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	summarize(cmd.OutOrStdout(), cell)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", produceOutput)
	return produceErr
}

// summarize prints the pins and device record of a cell.
func summarize(w io.Writer, cell *layout.Cell) {
	ly := cell.Layout()
	fmt.Fprintf(w, "Cell %s\n", cell.Name())
	if bb := cell.BBox(); !bb.IsEmpty() {
		fmt.Fprintf(w, "  BBox: (%.3f, %.3f) - (%.3f, %.3f) µm\n",
			ly.ToMicrons(bb.Min.X), ly.ToMicrons(bb.Min.Y), ly.ToMicrons(bb.Max.X), ly.ToMicrons(bb.Max.Y))
	}
	for _, p := range pin.FindAll(cell) {
		fmt.Fprintf(w, "  Pin %-8s %-10s (%.3f, %.3f) %3d° w=%.3f\n",
			p.Name, p.Kind, ly.ToMicrons(p.Pos.X), ly.ToMicrons(p.Pos.Y), p.Angle, ly.ToMicrons(p.Width))
	}
	if rec, err := devrec.Extract(cell); err == nil {
		fmt.Fprintf(w, "  Component: %s\n", rec.Component)
		if len(rec.Params) > 0 {
			fmt.Fprintf(w, "  %s\n", rec.SpiceLine())
		}
	}
}

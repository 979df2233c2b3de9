package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTracePDK/pkg/paramlit"
)

var cellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Component library",
	Long:  `Commands for listing the parametric components and their parameter schemas`,
}

var cellsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the components",
	Args:  cobra.NoArgs,
	RunE:  runCellsList,
}

var cellsDescribeCmd = &cobra.Command{
	Use:   "describe <component>",
	Short: "Show the parameters of a component",
	Long: `Prints the parameter schema of a component: name, type, default and
bounds. With --json the full descriptor is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runCellsDescribe,
}

var describeJSON bool

func init() {
	rootCmd.AddCommand(cellsCmd)
	cellsCmd.AddCommand(cellsListCmd)
	cellsCmd.AddCommand(cellsDescribeCmd)
	cellsDescribeCmd.Flags().BoolVar(&describeJSON, "json", false, "output as JSON")
}

func runCellsList(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, name := range e.lib.Names() {
		d, err := e.lib.Describe(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", d.Name, d.Description)
	}
	return tw.Flush()
}

func runCellsDescribe(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	d, err := e.lib.Describe(args[0])
	if err != nil {
		return err
	}
	if describeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s", d.Name)
	if d.Description != "" {
		fmt.Fprintf(out, " - %s", d.Description)
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tTYPE\tDEFAULT\tLABEL\n")
	for _, p := range d.Params {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Type, paramlit.Format(p.Default), p.Label)
	}
	return tw.Flush()
}

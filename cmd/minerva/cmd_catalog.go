package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/m3rciful/minerva/internal/catalog"
)

var catalogPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the catalog topics and check the catalog file",
	Long: `Loads the embedded catalog, or the file given with --file, validates it and prints
every topic with its shortcut, keywords and URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			reg *catalog.Registry
			err error
		)
		if catalogPath != "" {
			reg, err = catalog.Load(catalogPath)
		} else {
			reg, err = catalog.Default()
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		head := color.New(color.Bold)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		head.Fprintln(w, "#\tKEY\tTITLE\tDOC\tURL")
		for _, t := range reg.Topics() {
			doc := "page"
			if t.IsDocument() {
				doc = "pdf"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Shortcut, t.Key, t.Title, doc, t.URL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if verboseCatalog {
			for _, t := range reg.Topics() {
				fmt.Fprintf(out, "\n%s: %v\n", color.CyanString(string(t.Key)), t.Keywords)
			}
		}
		return nil
	},
}

var verboseCatalog bool

func init() {
	catalogCmd.Flags().StringVarP(&catalogPath, "file", "f", "", "catalog YAML file to check instead of the embedded one")
	catalogCmd.Flags().BoolVarP(&verboseCatalog, "keywords", "k", false, "also print the keywords of each topic")
}

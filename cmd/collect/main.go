package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/LJTian/TejoMag/internal/app"
	"github.com/LJTian/TejoMag/internal/category"
	"github.com/LJTian/TejoMag/internal/config"
	"github.com/LJTian/TejoMag/internal/pipeline"
	"github.com/spf13/cobra"
)

// 手动触发采集的命令行入口
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "collect",
		Short:        "TejoMag news ingestion",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newSourcesCmd(), newCategoriesCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var sources []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion pass and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var sum pipeline.RunSummary
			if len(sources) > 0 {
				sum, err = a.Pipeline.RunSources(cmd.Context(), sources...)
				if err != nil {
					return err
				}
			} else {
				sum = a.Pipeline.Run(cmd.Context())
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			printSummary(cmd, sum)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "only run the named sources")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")
	return cmd
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List enabled sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgs, err := config.LoadSources(config.Load().SourcesFile)
			if err != nil {
				return err
			}
			for _, sc := range cfgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-5s %-40s langs=%s limit=%d\n",
					sc.Name, sc.Kind, sc.Homepage, strings.Join(sc.Languages, ","), sc.ArticleLimit)
			}
			return nil
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List category labels and keyword counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := category.LoadFile(config.Load().CategoriesFile)
			if err != nil {
				return err
			}
			for _, c := range t.Categories {
				var parts []string
				for _, lang := range t.Languages() {
					parts = append(parts, fmt.Sprintf("%s=%d", lang, len(c.Keywords[lang])))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", c.Label, strings.Join(parts, " "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-14s (default)\n", t.Default)
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, sum pipeline.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s  %s -> %s\n", sum.RunID,
		sum.StartedAt.Format("15:04:05"), sum.FinishedAt.Format("15:04:05"))
	for _, r := range sum.Sources {
		line := fmt.Sprintf("  %-16s discovered=%d persisted=%d skipped=%d discarded=%d failed=%d",
			r.Name, r.Discovered, r.Persisted, r.Skipped, r.Discarded, r.Failed)
		if r.Error != "" {
			line += "  error=" + r.Error
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "total persisted=%d skipped=%d discarded=%d failed=%d\n",
		sum.Persisted, sum.Skipped, sum.Discarded, sum.Failed)
	if sum.Failed > 0 {
		log.Printf("collect: %d articles failed", sum.Failed)
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-swms/internal/app"
	"github.com/goliatone/go-swms/internal/server"
	"github.com/goliatone/go-swms/pkg/export/register"
	pkgmodel "github.com/goliatone/go-swms/pkg/model"
	"github.com/goliatone/go-swms/pkg/orchestrator"
	"github.com/goliatone/go-swms/pkg/risk"
	"github.com/goliatone/go-swms/pkg/validation"
)

func (c *cli) renderCmd() *cobra.Command {
	var output, renderer, title string
	cmd := &cobra.Command{
		Use:   "render <request.json|request.yaml>",
		Short: "Render a SWMS document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := pkgmodel.LoadSectionsFile(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(app.WithoutJobs())
			if err != nil {
				return err
			}
			defer closeApp(a)

			result, err := a.Orchestrator.Generate(cmd.Context(), orchestrator.Request{
				Sections: sections,
				Renderer: renderer,
				Title:    title,
			})
			if err != nil {
				return err
			}
			if err := c.writeOutput(cmd.OutOrStdout(), output, result.Output); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s written by %s (%d bytes)\n", output, result.Renderer, len(result.Output))
				for _, failure := range result.Failures {
					fmt.Fprintf(cmd.ErrOrStderr(), "  skipped %s\n", failure.Error())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "swms.pdf", "output file, - for stdout")
	cmd.Flags().StringVarP(&renderer, "renderer", "r", "", "pin a renderer (external, chromium, primitive, html)")
	cmd.Flags().StringVar(&title, "title", "", "document title override")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "register <request.json|request.yaml>",
		Short: "Export the risk register workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := pkgmodel.LoadSectionsFile(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(app.WithoutJobs())
			if err != nil {
				return err
			}
			defer closeApp(a)

			doc, err := a.Assembler.Assemble(cmd.Context(), sections)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), register.Rows(doc))
			}
			workbook, err := register.Export(doc)
			if err != nil {
				return err
			}
			return c.writeOutput(cmd.OutOrStdout(), output, workbook)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "risk-register.xlsx", "output file, - for stdout")
	return cmd
}

func (c *cli) scoreCmd() *cobra.Command {
	var trade, category string
	var controls int
	cmd := &cobra.Command{
		Use:   "score <task description>",
		Short: "Score a task and show how the score was reached",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			scorer, err := app.NewScorer(cfg.Risk)
			if err != nil {
				return err
			}
			task := strings.Join(args, " ")
			hazard := risk.ParseCategory(category)
			breakdown := scorer.Explain(task, trade, hazard)
			residual := risk.Residual(breakdown.Score, controls)

			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"task":      task,
					"trade":     trade,
					"category":  hazard,
					"breakdown": breakdown,
					"residual":  residual,
				})
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Factor", "Value"})
			tw.AppendRows([]table.Row{
				{"Category", hazard},
				{"Base", breakdown.Base},
				{"Trade multiplier", breakdown.TradeMultiplier},
				{"Keyword multiplier", breakdown.KeywordMultiplier},
				{"Jitter", breakdown.Jitter},
			})
			tw.AppendSeparator()
			tw.AppendRow(table.Row{"Initial", fmt.Sprintf("%d (%s)", breakdown.Score.Int(), breakdown.Score.Level())})
			tw.AppendRow(table.Row{fmt.Sprintf("Residual, %d controls", controls), fmt.Sprintf("%d (%s)", residual.Int(), residual.Level())})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&trade, "trade", "", "trade performing the task")
	cmd.Flags().StringVar(&category, "category", "", "hazard category")
	cmd.Flags().IntVar(&controls, "controls", 0, "number of control measures")
	return cmd
}

func (c *cli) tiersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "Show the renderer fallback chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(app.WithoutJobs())
			if err != nil {
				return err
			}
			defer closeApp(a)

			tiers := a.Orchestrator.Tiers()
			if c.jsonOutput {
				type tierView struct {
					Name    string `json:"name"`
					Timeout string `json:"timeout"`
				}
				views := make([]tierView, 0, len(tiers))
				for _, tier := range tiers {
					views = append(views, tierView{Name: tier.Name(), Timeout: tier.Timeout.String()})
				}
				return printJSON(cmd.OutOrStdout(), views)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"#", "Renderer", "Timeout"})
			for i, tier := range tiers {
				tw.AppendRow(table.Row{i + 1, tier.Name(), tier.Timeout})
			}
			tw.Render()
			return nil
		},
	}
}

func (c *cli) jobsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent render jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer closeApp(a)

			items, err := a.Jobs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"ID", "Project", "Status", "Renderer", "Created"})
			for _, job := range items {
				tw.AppendRow(table.Row{job.ID, job.Project, job.Status, job.Renderer, job.CreatedAt.Format(time.RFC3339)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum jobs listed")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer closeApp(a)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, a)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = c.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <request.json|request.yaml>",
		Short: "Check a render request against the section contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result := validation.ValidateRequest(raw)
			if c.jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else if len(result.Issues) > 0 {
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Section", "Field", "Problem"})
				for _, issue := range result.Issues {
					tw.AppendRow(table.Row{issue.Section, issue.Field, issue.Message})
				}
				tw.Render()
			}
			if !result.Valid {
				return fmt.Errorf("%s: %d contract issues", args[0], len(result.Issues))
			}
			if !c.jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			}
			return nil
		},
	}
}

func (c *cli) contractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contract",
		Short: "Print the OpenAPI components describing accepted sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pkgmodel.ContractDocument()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(doc)
			return err
		},
	}
}

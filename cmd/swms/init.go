package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-swms/internal/prompt"
	"github.com/goliatone/go-swms/pkg/risk"
	"github.com/goliatone/go-swms/pkg/validation"
)

func (c *cli) initCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Build a render request interactively",
		Long: `init walks through the project, activity, emergency, plant and PPE
sections and writes a YAML request that render and serve accept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			tables := risk.DefaultTables()
			if cfg.Risk.TablesFile != "" {
				if tables, err = risk.LoadTablesFile(cfg.Risk.TablesFile); err != nil {
					return err
				}
			}

			wizard := prompt.NewWizard(newDriver(cmd.ErrOrStderr()), prompt.WithTables(tables))
			req, err := wizard.Run(cmd.Context())
			if err != nil {
				return err
			}
			data, err := req.Marshal()
			if err != nil {
				return err
			}
			if result := validation.ValidateRequest(data); !result.Valid {
				return fmt.Errorf("init: request failed validation: %+v", result.Issues)
			}
			if err := c.writeOutput(cmd.OutOrStdout(), output, data); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "swms-request.yaml", "request file to write (- for stdout)")
	return cmd
}

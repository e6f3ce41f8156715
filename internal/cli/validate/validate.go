// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package validate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/lexica/internal/cli/app"
	"github.com/platform-engineering-labs/lexica/internal/cli/cmd"
	"github.com/platform-engineering-labs/lexica/internal/cli/display"
	"github.com/platform-engineering-labs/lexica/internal/cli/printer"
	"github.com/platform-engineering-labs/lexica/internal/compiler/diagnostics"
	"github.com/platform-engineering-labs/lexica/internal/logging"
	"github.com/platform-engineering-labs/lexica/internal/util"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

type ValidateOptions struct {
	Root           string
	OutputConsumer printer.Consumer
	OutputSchema   string
	Strict         bool
}

func validateValidateOptions(opts *ValidateOptions) error {
	if opts.Root == "" {
		return cmd.FlagErrorf("project root is required")
	}
	if opts.OutputConsumer != printer.ConsumerHuman && opts.OutputConsumer != printer.ConsumerMachine {
		return cmd.FlagErrorf("output-consumer must be 'human' or 'machine'")
	}
	if opts.OutputConsumer == printer.ConsumerMachine {
		if opts.OutputSchema != "json" && opts.OutputSchema != "yaml" {
			return cmd.FlagErrorf("output-schema must be 'json' or 'yaml' for machine consumer")
		}
	}
	return nil
}

func ValidateCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "validate",
		Short: "Compile a project and run every diagnostic pass",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(util.ExpandHomePath("~/.pel/lexica/log/client.log"), logging.NoLoggingLevel)
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &ValidateOptions{}
			opts.Root = command.Flags().Arg(0)
			consumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(consumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")
			opts.Strict, _ = command.Flags().GetBool("strict")

			return runValidate(command, opts)
		},
		Annotations: map[string]string{
			"type":     "Project",
			"examples": "{{.Name}} {{.Command}} ./infra  |  {{.Name}} {{.Command}} --strict ./infra",
			"args":     "<project root>",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine result output (json | yaml)")
	command.Flags().Bool("strict", false, "fail on error-severity findings")

	return command
}

type validateReport struct {
	BuildID    string                `json:"buildID"`
	LoadErrors []string              `json:"loadErrors,omitempty"`
	Findings   []diagnostics.Finding `json:"findings"`
}

func runValidate(command *cobra.Command, opts *ValidateOptions) error {
	if err := validateValidateOptions(opts); err != nil {
		return err
	}

	a, err := app.NewApp()
	if err != nil {
		return err
	}

	result, findings, err := a.Validate(command.Context(), opts.Root)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if opts.OutputConsumer == printer.ConsumerMachine {
		report := &validateReport{
			BuildID:  result.BuildID,
			Findings: findings,
		}
		for _, loadErr := range result.LoadErrors {
			report.LoadErrors = append(report.LoadErrors, loadErr.Error())
		}
		if err := printer.NewMachineReadablePrinter[validateReport](os.Stdout, opts.OutputSchema).Print(report); err != nil {
			return err
		}
		return strictFailure(opts, findings)
	}

	display.PrintBanner()
	for _, loadErr := range result.LoadErrors {
		display.Warning(loadErr.Error())
	}

	if len(findings) == 0 {
		display.Success("No findings.")
		return nil
	}

	for _, finding := range findings {
		msg := finding.Message
		if finding.Entity != "" {
			msg = finding.Entity + ": " + msg
		}
		switch finding.Severity {
		case lexicon.SeverityError:
			display.Error(msg)
		case lexicon.SeverityWarning:
			display.Warning(msg)
		default:
			fmt.Println(display.Grey("Note: " + msg))
		}
	}

	return strictFailure(opts, findings)
}

func strictFailure(opts *ValidateOptions, findings []diagnostics.Finding) error {
	if !opts.Strict {
		return nil
	}
	for _, finding := range findings {
		if finding.Severity == lexicon.SeverityError {
			return fmt.Errorf("validation found errors")
		}
	}
	return nil
}

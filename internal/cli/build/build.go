// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/lexica/internal/cli/app"
	"github.com/platform-engineering-labs/lexica/internal/cli/cmd"
	"github.com/platform-engineering-labs/lexica/internal/cli/display"
	"github.com/platform-engineering-labs/lexica/internal/cli/printer"
	"github.com/platform-engineering-labs/lexica/internal/logging"
	"github.com/platform-engineering-labs/lexica/internal/util"
	"github.com/platform-engineering-labs/lexica/pkg/lexicon"
)

type BuildOptions struct {
	Root           string
	OutDir         string
	OutputConsumer printer.Consumer
	OutputSchema   string
	Colorize       bool
	Strict         bool
}

func validateBuildOptions(opts *BuildOptions) error {
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

func BuildCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "build",
		Short: "Compile a project into its lexicon output documents",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(util.ExpandHomePath("~/.pel/lexica/log/client.log"), logging.NoLoggingLevel)
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &BuildOptions{}
			opts.Root = command.Flags().Arg(0)
			opts.OutDir, _ = command.Flags().GetString("out")
			consumer, _ := command.Flags().GetString("output-consumer")
			opts.OutputConsumer = printer.Consumer(consumer)
			opts.OutputSchema, _ = command.Flags().GetString("output-schema")
			opts.Colorize, _ = command.Flags().GetBool("colorize")
			opts.Strict, _ = command.Flags().GetBool("strict")

			return runBuild(command, opts)
		},
		Annotations: map[string]string{
			"type":     "Project",
			"examples": "{{.Name}} {{.Command}} .  |  {{.Name}} {{.Command}} --strict ./infra",
			"args":     "<project root>",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	command.Flags().String("out", "", "Directory to write documents to (defaults to the project root)")
	command.Flags().String("output-consumer", string(printer.ConsumerHuman), "Consumer of the command result (human | machine)")
	command.Flags().String("output-schema", "json", "The schema to use for the machine result output (json | yaml)")
	command.Flags().Bool("colorize", true, "colorize document previews (human consumer only)")
	command.Flags().Bool("strict", false, "fail on error-severity diagnostics")

	return command
}

// buildReport is the machine-consumer shape of one build.
type buildReport struct {
	BuildID     string               `json:"buildID"`
	Entities    int                  `json:"entities"`
	Documents   []string             `json:"documents"`
	LoadErrors  []string             `json:"loadErrors,omitempty"`
	Diagnostics []lexicon.Diagnostic `json:"diagnostics,omitempty"`
}

func runBuild(command *cobra.Command, opts *BuildOptions) error {
	if err := validateBuildOptions(opts); err != nil {
		return err
	}

	a, err := app.NewApp()
	if err != nil {
		return err
	}

	result, err := a.Build(command.Context(), opts.Root)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = opts.Root
	}
	written, err := writeDocuments(a, result.Documents, outDir)
	if err != nil {
		return err
	}

	if opts.Strict {
		for _, diag := range result.Diagnostics {
			if diag.Severity == lexicon.SeverityError {
				return fmt.Errorf("diagnostic error on %s: %s", diag.Entity, diag.Message)
			}
		}
	}

	if opts.OutputConsumer == printer.ConsumerMachine {
		report := &buildReport{
			BuildID:     result.BuildID,
			Entities:    result.Namespace.Len(),
			Documents:   written,
			Diagnostics: result.Diagnostics,
		}
		for _, loadErr := range result.LoadErrors {
			report.LoadErrors = append(report.LoadErrors, loadErr.Error())
		}
		return printer.NewMachineReadablePrinter[buildReport](os.Stdout, opts.OutputSchema).Print(report)
	}

	display.PrintBanner()
	fmt.Print(display.Gold("Building project:") + "\n  " + display.Green("Root: ") + opts.Root + "\n\n")

	for _, loadErr := range result.LoadErrors {
		display.Warning(loadErr.Error())
	}
	for _, diag := range result.Diagnostics {
		printDiagnostic(diag)
	}

	for _, path := range written {
		fmt.Println(display.Green("Wrote: ") + path)
	}
	if opts.Colorize && len(written) > 0 {
		fmt.Println()
		for lexName, docs := range result.Documents {
			lex, err := a.Registry.Lookup(lexName)
			if err != nil {
				return err
			}
			format := strings.TrimPrefix(filepath.Ext(lex.FileExtension()), ".")
			for _, doc := range docs {
				fmt.Println(display.Goldf("%s/%s:", lexName, doc.Name))
				fmt.Println(printer.Highlight(doc.Content, format))
			}
		}
	}

	display.Success(fmt.Sprintf("Build %s finished: %d entities, %d documents", result.BuildID, result.Namespace.Len(), len(written)))
	return nil
}

func writeDocuments(a *app.App, documents map[string][]lexicon.Document, outDir string) ([]string, error) {
	if err := util.EnsureFolderHierarchy(outDir); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	for lexName, docs := range documents {
		lex, err := a.Registry.Lookup(lexName)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			path := filepath.Join(outDir, doc.Name+lex.FileExtension())
			if err := os.WriteFile(path, []byte(doc.Content), 0644); err != nil {
				return nil, fmt.Errorf("write %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func printDiagnostic(diag lexicon.Diagnostic) {
	msg := diag.Message
	if diag.Entity != "" {
		msg = diag.Entity + ": " + msg
	}
	switch diag.Severity {
	case lexicon.SeverityError:
		display.Error(msg)
	case lexicon.SeverityWarning:
		display.Warning(msg)
	default:
		fmt.Println(display.Grey("Note: " + msg))
	}
}

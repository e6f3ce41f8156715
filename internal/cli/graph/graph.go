// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package graph

import (
	"fmt"
	"strings"

	"github.com/ddddddO/gtree"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/lexica/internal/cli/app"
	"github.com/platform-engineering-labs/lexica/internal/cli/cmd"
	"github.com/platform-engineering-labs/lexica/internal/cli/display"
	"github.com/platform-engineering-labs/lexica/internal/compiler"
	"github.com/platform-engineering-labs/lexica/internal/logging"
	"github.com/platform-engineering-labs/lexica/internal/util"
)

type GraphOptions struct {
	Root string
}

func validateGraphOptions(opts *GraphOptions) error {
	if opts.Root == "" {
		return cmd.FlagErrorf("project root is required")
	}
	return nil
}

func GraphCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "graph",
		Short: "Show the project's dependency graph",
		PreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupClientLogging(util.ExpandHomePath("~/.pel/lexica/log/client.log"), logging.NoLoggingLevel)
		},
		RunE: func(command *cobra.Command, args []string) error {
			opts := &GraphOptions{Root: command.Flags().Arg(0)}
			return runGraph(command, opts)
		},
		Annotations: map[string]string{
			"type":     "Project",
			"examples": "{{.Name}} {{.Command}} ./infra",
			"args":     "<project root>",
		},
		SilenceErrors: true,
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	return command
}

func runGraph(command *cobra.Command, opts *GraphOptions) error {
	if err := validateGraphOptions(opts); err != nil {
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

	display.PrintBanner()
	for _, loadErr := range result.LoadErrors {
		display.Warning(loadErr.Error())
	}

	tree, err := renderTree(result)
	if err != nil {
		return err
	}
	fmt.Print(tree)

	table, err := renderTable(result)
	if err != nil {
		return err
	}
	fmt.Print(table)

	for _, cycle := range result.Graph.Cycles() {
		display.Warning("dependency cycle: " + strings.Join(cycle, " -> "))
	}

	return nil
}

// renderTree shows the emission order with each entity's direct dependencies
// nested underneath it.
func renderTree(result *compiler.Result) (string, error) {
	root := gtree.NewRoot(display.Gold("emission order"))
	for _, name := range result.Order {
		node := root.Add(display.Green(name))
		for _, dep := range result.Graph.DependenciesOf(name) {
			node.Add(display.Grey("after ") + display.LightBlue(dep))
		}
	}

	var buf strings.Builder
	if err := gtree.OutputFromRoot(&buf, root); err != nil {
		return "", fmt.Errorf("render dependency tree: %v", err)
	}
	return buf.String() + "\n", nil
}

func renderTable(result *compiler.Result) (string, error) {
	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})))

	table.Header(display.LightBlue("Entity"), "Kind", "Lexicon", "Type", display.Grey("Depends on"))

	var data [][]any
	for _, name := range result.Namespace.Names() {
		e, ok := result.Namespace.Entity(name)
		if !ok {
			continue
		}
		data = append(data, []any{
			display.LightBlue(name),
			string(e.Kind()),
			e.Lexicon(),
			e.Type(),
			display.Grey(strings.Join(result.Graph.DependenciesOf(name), ", ")),
		})
	}

	if len(data) == 0 {
		return display.Gold("No entities found.\n"), nil
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("error formatting dependency table: %v", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("error rendering dependency table: %v", err)
	}
	return buf.String(), nil
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/lexica"
	"github.com/platform-engineering-labs/lexica/internal/cli/cmd"
)

func VersionCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(command *cobra.Command, args []string) {
			fmt.Printf("lexica version: %s\ngo version: %s\n", lexica.Version, runtime.Version())
		},
		Annotations: map[string]string{
			"type": "Tooling",
		},
	}

	command.SetUsageTemplate(cmd.SimpleCmdUsageTemplate)

	return command
}

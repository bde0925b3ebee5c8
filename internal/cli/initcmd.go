package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"studyhall/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample config file",
		Args:  cobra.MaximumNArgs(1),
		Run:   runInit,
	}

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			exitErr("init", err)
		}
	}

	if err := config.CreateSample(path); err != nil {
		exitErr("init", err)
	}
	fmt.Println(path)
}

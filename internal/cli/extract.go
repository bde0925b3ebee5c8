package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "extract <lecture-key>",
		Short: "Extract key concepts from a stored lecture",
		Args:  cobra.ExactArgs(1),
		Run:   runExtract,
	}

	RootCmd.AddCommand(cmd)
}

func runExtract(cmd *cobra.Command, args []string) {
	a := newApp()
	defer a.close()

	result, err := a.gw.Extract(cmd.Context(), localRequest(), args[0])
	if err != nil {
		exitErr("extract", err)
	}

	if formatFlag == "json" {
		b, _ := json.Marshal(map[string]string{"key": args[0], "concepts": result})
		fmt.Println(string(b))
		return
	}
	fmt.Println(result)
}

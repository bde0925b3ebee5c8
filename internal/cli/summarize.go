package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "summarize <lecture-key>",
		Short: "Summarize a stored lecture",
		Long:  "Produce a Markdown summary of the stored lecture text. Long documents are split into chunks, summarized concurrently, and combined.",
		Args:  cobra.ExactArgs(1),
		Run:   runSummarize,
	}

	RootCmd.AddCommand(cmd)
}

func runSummarize(cmd *cobra.Command, args []string) {
	a := newApp()
	defer a.close()

	result, err := a.gw.Summarize(cmd.Context(), localRequest(), args[0])
	if err != nil {
		exitErr("summarize", err)
	}

	if formatFlag == "json" {
		b, _ := json.Marshal(map[string]string{"key": args[0], "summary": result})
		fmt.Println(string(b))
		return
	}
	fmt.Println(result)
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show <lecture-key>",
		Short: "Print a lecture's raw text or chat history",
		Run:   runShow,
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().Bool("history", false, "Print the chat history instead of the raw text")

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) {
	key := args[0]
	history, _ := cmd.Flags().GetBool("history")

	if history {
		cfg := loadConfig()
		s := openStore(cfg)
		defer s.Close()

		messages, err := s.History(cmd.Context(), key)
		if err != nil {
			exitErr("show", err)
		}
		if formatFlag == "json" {
			b, _ := json.MarshalIndent(messages, "", "  ")
			fmt.Println(string(b))
			return
		}
		for _, m := range messages {
			fmt.Printf("%s: %s\n", m.Role, m.Content)
		}
		return
	}

	a := newApp()
	defer a.close()

	text, err := a.gw.RawText(cmd.Context(), localRequest(), key)
	if err != nil {
		exitErr("show", err)
	}
	if formatFlag == "json" {
		b, _ := json.Marshal(map[string]string{"key": key, "raw_text": text})
		fmt.Println(string(b))
		return
	}
	fmt.Println(text)
}

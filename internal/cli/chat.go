package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat <lecture-key> [message]",
		Short: "Ask a question against a stored lecture",
		Long:  "Send one chat turn to a lecture's assistant. The full prior history is replayed as context. Message can be a positional arg or piped via stdin.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	key := args[0]
	message := readContent(args[1:])
	if strings.TrimSpace(message) == "" {
		exitErr("chat", fmt.Errorf("message is required (positional arg or stdin)"))
	}

	a := newApp()
	defer a.close()

	reply, err := a.gw.Chat(cmd.Context(), localRequest(), key, message)
	if err != nil {
		exitErr("chat", err)
	}

	if formatFlag == "json" {
		b, _ := json.Marshal(map[string]string{"key": key, "reply": reply})
		fmt.Println(string(b))
		return
	}
	fmt.Println(reply)
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "upload [text]",
		Short: "Store lecture text under a new key",
		Long:  "Store lecture text under a freshly generated key. Text can be a positional arg or piped via stdin.",
		Run:   runUpload,
	}

	RootCmd.AddCommand(cmd)
}

func runUpload(cmd *cobra.Command, args []string) {
	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("upload", fmt.Errorf("lecture text is required (positional arg or stdin)"))
	}

	a := newApp()
	defer a.close()

	key, err := a.gw.Upload(cmd.Context(), localRequest(), content)
	if err != nil {
		exitErr("upload", err)
	}

	if formatFlag == "json" {
		b, _ := json.Marshal(map[string]string{"key": key})
		fmt.Println(string(b))
		return
	}
	fmt.Println(key)
}

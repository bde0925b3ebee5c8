package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [lecture-key]",
		Short: "Export lectures as JSON",
		Long:  "Export stored lectures with their full chat histories as JSON. With a key, exports that one lecture.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := openStore(cfg)
	defer s.Close()

	if len(args) == 1 {
		record, err := s.GetLecture(cmd.Context(), args[0])
		if err != nil {
			exitErr("export", err)
		}
		b, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(b))
		return
	}

	records, err := s.ExportAll(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(records, "", "  ")
	fmt.Println(string(b))
}

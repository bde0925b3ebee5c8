package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"studyhall/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "limits [endpoint]",
		Short: "Show or reset rate-limit state",
		Long:  "Preview remaining rate-limit allowance without consuming a slot. With no endpoint, shows every configured endpoint.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runLimits,
	}

	cmd.Flags().Bool("reset", false, "Clear all stored windows for this caller")

	RootCmd.AddCommand(cmd)
}

func runLimits(cmd *cobra.Command, args []string) {
	reset, _ := cmd.Flags().GetBool("reset")

	a := newApp()
	defer a.close()

	if reset {
		if err := a.gw.ResetLimits(cmd.Context(), localRequest()); err != nil {
			exitErr("limits", err)
		}
		fmt.Println("rate-limit windows cleared")
		return
	}

	endpoints := args
	if len(endpoints) == 0 {
		for endpoint := range a.cfg.RateLimit.Endpoints {
			endpoints = append(endpoints, endpoint)
		}
		sort.Strings(endpoints)
	}

	status := make(map[string]model.Decision, len(endpoints))
	for _, endpoint := range endpoints {
		d, err := a.gw.LimitStatus(cmd.Context(), localRequest(), endpoint)
		if err != nil {
			exitErr("limits", err)
		}
		status[endpoint] = d
	}

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(b))
		return
	}
	for _, endpoint := range endpoints {
		d := status[endpoint]
		fmt.Printf("%s: %d/%d remaining\n", endpoint, d.Remaining, d.Limit)
	}
}

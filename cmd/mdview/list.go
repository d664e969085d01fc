package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdview-dev/mdview/internal/config"
	"github.com/mdview-dev/mdview/internal/registry"
)

func listCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List running background previews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON format")

	return cmd
}

func runList(jsonOut bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := registry.NewStore(cfg.Paths.DataDir)
	if err != nil {
		return err
	}
	reg, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	if stale := reg.CleanupStale(); len(stale) > 0 {
		if err := store.Save(reg); err != nil {
			warn("Could not save registry: %v", err)
		}
	}

	instances := make([]registry.Instance, 0, len(reg.Instances))
	for _, inst := range reg.Instances {
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].FilePath < instances[j].FilePath
	})

	if jsonOut {
		data, err := json.MarshalIndent(instances, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding instances: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(instances) == 0 {
		info("No running mdview instances")
		return nil
	}

	fmt.Printf("%-6s %-6s %-20s %s\n", "PID", "PORT", "STARTED", "FILE")
	fmt.Println(strings.Repeat("-", 70))
	for _, inst := range instances {
		status := ""
		if !registry.IsProcessRunning(inst.PID) {
			status = " (stale)"
		}
		fmt.Printf("%-6d %-6d %-20s %s%s\n",
			inst.PID,
			inst.Port,
			inst.StartedAt.Local().Format("2006-01-02 15:04:05"),
			inst.FilePath,
			status,
		)
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link MANIFEST",
	Short: "Register and instantiate every component named in a manifest, in dependency order",
	Args:  cobra.ExactArgs(1),
	RunE:  runLink,
}

func runLink(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig(cmd.Flags())
	if err != nil {
		return err
	}
	manifest, err := loadManifest(args[0])
	if err != nil {
		return err
	}
	linker, err := buildLinker(manifest, cfg)
	if err != nil {
		return err
	}

	ids, err := linker.LinkAll(context.Background(), instantiateConfig(manifest, cfg))
	if err != nil {
		return err
	}

	fmt.Printf("Linked %d component(s) from %s:\n", len(ids), manifest.Metadata.Name)
	for i, instanceID := range ids {
		inst, err := linker.Instance(instanceID)
		if err != nil {
			return err
		}
		fmt.Printf("  %d. %s -> instance #%d (%s)\n", i+1, inst.ComponentID, instanceID, inst.State())
	}
	return nil
}

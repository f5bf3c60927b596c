package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storyforge/internal/archive"
	"storyforge/internal/device"
	"storyforge/internal/registry"
)

func newDeviceCommand(ctx *commandContext) *cobra.Command {
	var rootFlag string

	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Manage the pack registry on a device root",
	}
	deviceCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Device root directory (default: paths.device_root from config)")

	manager := func() (*registry.Manager, error) {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return nil, err
		}
		root := strings.TrimSpace(rootFlag)
		if root == "" {
			root = cfg.Paths.DeviceRoot
		}
		if root == "" {
			return nil, fmt.Errorf("no device root: pass --root or set paths.device_root")
		}
		logger, err := ctx.ensureLogger()
		if err != nil {
			return nil, err
		}
		return registry.New(root, logger), nil
	}

	deviceCmd.AddCommand(newDeviceListCommand(manager))
	deviceCmd.AddCommand(newDeviceInstallCommand(ctx, manager))
	deviceCmd.AddCommand(newDeviceRemoveCommand(manager))
	deviceCmd.AddCommand(newDeviceReorderCommand(manager))

	return deviceCmd
}

func newDeviceListCommand(manager func() (*registry.Manager, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packs in menu order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := manager()
			if err != nil {
				return err
			}
			packs, err := mgr.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(packs) == 0 {
				fmt.Fprintln(out, "No packs installed")
				return nil
			}

			rows := make([][]string, 0, len(packs))
			for i, pack := range packs {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					pack.Meta.Title,
					pack.Ref,
					pack.UUID.String(),
					strconv.Itoa(pack.Meta.StageCount),
					humanize.Bytes(uint64(pack.SizeBytes)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Ref", "UUID", "Stages", "Size"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newDeviceInstallCommand(ctx *commandContext, manager func() (*registry.Manager, error)) *cobra.Command {
	var packUUID string

	cmd := &cobra.Command{
		Use:   "install <archive.zip>",
		Short: "Compile a portable archive onto the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			mgr, err := manager()
			if err != nil {
				return err
			}

			graph, assets, err := archive.Read(args[0])
			if err != nil {
				return err
			}

			opts := device.Options{CipherScheme: cfg.Device.CipherScheme}
			if trimmed := strings.TrimSpace(packUUID); trimmed != "" {
				id, err := uuid.Parse(trimmed)
				if err != nil {
					return fmt.Errorf("parse pack uuid: %w", err)
				}
				opts.PackUUID = id
			}

			bundle, err := device.Compile(graph, archiveAssets(assets), opts)
			if err != nil {
				return err
			}
			if err := mgr.Install(bundle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %q as %s (pack %s)\n", graph.Title, bundle.Ref, bundle.UUID)
			return nil
		},
	}

	cmd.Flags().StringVar(&packUUID, "uuid", "", "Pack UUID (default: minted)")
	return cmd
}

func newDeviceRemoveCommand(manager func() (*registry.Manager, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <uuid>",
		Short: "Remove an installed pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse pack uuid: %w", err)
			}
			mgr, err := manager()
			if err != nil {
				return err
			}
			if err := mgr.Remove(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			return nil
		},
	}
}

func newDeviceReorderCommand(manager func() (*registry.Manager, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <uuid> [uuid...]",
		Short: "Rewrite the menu order; every installed pack must be listed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("parse pack uuid %q: %w", arg, err)
				}
				order = append(order, id)
			}
			mgr, err := manager()
			if err != nil {
				return err
			}
			if err := mgr.Reorder(order); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d packs\n", len(order))
			return nil
		},
	}
}

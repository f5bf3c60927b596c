package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"storyforge/internal/archive"
	"storyforge/internal/device"
	"storyforge/internal/fileutil"
	"storyforge/internal/story"
)

// archiveAssets adapts an archive's in-memory payload map to the compiler's
// asset source.
type archiveAssets map[story.AssetRef][]byte

func (a archiveAssets) ReadNamed(name string) ([]byte, error) {
	payload, ok := a[story.AssetRef(name)]
	if !ok {
		return nil, fmt.Errorf("asset %s missing from archive", name)
	}
	return payload, nil
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		outPath  string
		packUUID string
	)

	cmd := &cobra.Command{
		Use:   "convert <archive.zip>",
		Short: "Convert a portable pack archive into a device-native bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if device.IsDeviceArchive(args[0]) {
				fmt.Fprintf(out, "%s is already a device bundle\n", args[0])
				return nil
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

			target := strings.TrimSpace(outPath)
			if target == "" {
				target = strings.TrimSuffix(args[0], ".zip") + ".pack.zip"
			}
			if err := writeBundleZip(target, bundle); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s (pack %s, ref %s)\n", target, bundle.UUID, bundle.Ref)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Bundle path (default: <archive>.pack.zip)")
	cmd.Flags().StringVar(&packUUID, "uuid", "", "Pack UUID (default: minted)")

	return cmd
}

// writeBundleZip stores a compiled bundle as a ZIP with the device file
// layout at the archive root, entries in sorted order.
func writeBundleZip(path string, bundle *device.Bundle) error {
	names := make([]string, 0, len(bundle.Files))
	for name := range bundle.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create bundle entry %s: %w", name, err)
		}
		if _, err := w.Write(bundle.Files[name]); err != nil {
			return fmt.Errorf("write bundle entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish bundle: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

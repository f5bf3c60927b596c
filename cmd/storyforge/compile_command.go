package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyforge/internal/archive"
	"storyforge/internal/asset"
	"storyforge/internal/builder"
	"storyforge/internal/device"
	"storyforge/internal/story"
)

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var (
		outPath     string
		bundlePath  string
		title       string
		description string
		embedPaths  []string
		nightMode   bool
		normalize   bool
		silencePad  bool
		trimLead    float64
	)

	cmd := &cobra.Command{
		Use:   "compile <source-dir>",
		Short: "Compile a content folder into a portable pack archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			tree, err := builder.ScanTree(args[0])
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			opts := asset.Options{
				GainNormalize: normalize,
				SilencePad:    silencePad,
				TrimLead:      time.Duration(trimLead * float64(time.Second)),
			}
			requests := builder.CollectAssets(tree, opts)
			refs, err := store.AdmitBatch(cmd.Context(), requests, cfg.Transcode.Workers,
				newProgress(len(requests), "processing assets"))
			if err != nil {
				return reportAssetErrors(cmd.ErrOrStderr(), err)
			}

			graph, err := builder.Build(tree, builder.Metadata{
				Title:       title,
				Description: description,
				NightMode:   nightMode,
			}, refNames(requests, refs))
			if err != nil {
				return err
			}

			src, err := embedArchives(graph, store, embedPaths)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outPath)
			if target == "" {
				target = filepath.Base(filepath.Clean(args[0])) + ".zip"
			}
			if err := archive.Write(target, graph, src); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%d stages, %d assets)\n", target, graph.StageCount(), len(requests))

			if strings.TrimSpace(bundlePath) != "" {
				bundle, err := device.Compile(graph, src, device.Options{
					CipherScheme: cfg.Device.CipherScheme,
				})
				if err != nil {
					return err
				}
				if err := writeBundleZip(bundlePath, bundle); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote device bundle %s (pack %s)\n", bundlePath, bundle.UUID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Archive path (default: <source-dir>.zip)")
	cmd.Flags().StringVar(&bundlePath, "device-bundle", "", "Also write a device-native bundle ZIP to this path")
	cmd.Flags().StringVar(&title, "title", "", "Pack title (default: source folder name)")
	cmd.Flags().StringVar(&description, "description", "", "Pack description")
	cmd.Flags().StringArrayVar(&embedPaths, "embed", nil, "Pack archive to inline as an additional top-level entry (repeatable)")
	cmd.Flags().BoolVar(&nightMode, "night-mode", false, "Autoplay stories for bedtime listening")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Normalize story loudness")
	cmd.Flags().BoolVar(&silencePad, "pad", false, "Pad stories with one second of silence")
	cmd.Flags().Float64Var(&trimLead, "trim-lead", 0, "Seconds to trim from the start of each story")

	return cmd
}

// embedArchives inlines each named pack archive into the graph as an
// additional top-level entry and returns the asset source covering both the
// local store and the embedded payloads.
func embedArchives(graph *story.Graph, store *asset.Store, paths []string) (archive.AssetSource, error) {
	if len(paths) == 0 {
		return store, nil
	}

	entry, ok := graph.Stage(graph.Entrypoint)
	if !ok || entry.OK == nil {
		return nil, fmt.Errorf("embed: graph has no entry action")
	}
	action, ok := graph.Action(entry.OK.Action)
	if !ok {
		return nil, fmt.Errorf("embed: graph has no entry action")
	}

	extra := archiveAssets{}
	for _, path := range paths {
		sub, payloads, err := archive.Read(path)
		if err != nil {
			return nil, err
		}
		menuID, err := graph.Embed(sub)
		if err != nil {
			return nil, err
		}
		action.Options = append(action.Options, menuID)
		for ref, payload := range payloads {
			extra[ref] = payload
		}
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return layeredAssets{store: store, extra: extra}, nil
}

// layeredAssets serves embedded archive payloads ahead of the local store.
type layeredAssets struct {
	store *asset.Store
	extra archiveAssets
}

func (l layeredAssets) ReadNamed(name string) ([]byte, error) {
	if payload, err := l.extra.ReadNamed(name); err == nil {
		return payload, nil
	}
	return l.store.ReadNamed(name)
}

// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package releasecmd

import (
	"time"

	"github.com/luxfi/hydra/pkg/application"
	"github.com/luxfi/hydra/pkg/node"
	"github.com/luxfi/hydra/pkg/release"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	app *application.Hydra

	releaseVersion string
)

// NewCmd creates the release command that publishes node binaries.
func NewCmd(injectedApp *application.Hydra) *cobra.Command {
	app = injectedApp
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Build and upload the node distribution",
		Long: `The release command suite publishes the node binary that
'hydra client bootstrap' downloads.

COMMANDS:

  make-dist    Copy release.build_binary_path into release.distdir with a manifest
  upload-dist  Upload the dist directory to archive/<version>/ and latest/
  dist         make-dist followed by upload-dist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:          "make-dist",
		Short:        "Prepare the dist directory from the built binary",
		Args:         cobra.NoArgs,
		RunE:         makeDist,
		SilenceUsage: true,
	})
	cmd.AddCommand(&cobra.Command{
		Use:          "upload-dist",
		Short:        "Upload the dist directory to the dist bucket",
		Args:         cobra.NoArgs,
		RunE:         uploadDist,
		SilenceUsage: true,
	})
	cmd.AddCommand(&cobra.Command{
		Use:          "dist",
		Short:        "Prepare and upload the dist directory",
		Args:         cobra.NoArgs,
		RunE:         dist,
		SilenceUsage: true,
	})
	cmd.PersistentFlags().StringVar(&releaseVersion, "version", "", "release version (default: reported by the built binary)")
	return cmd
}

func makeDist(cmd *cobra.Command, _ []string) error {
	conf := app.Conf.Release
	raw := releaseVersion
	if raw == "" {
		var err error
		raw, err = node.BinaryVersion(cmd.Context(), node.NewExecRunner(app.Log), conf.BuildBinaryPath)
		if err != nil {
			return err
		}
	}
	m, err := release.MakeDist(conf.BuildBinaryPath, conf.DistDir, raw, time.Now())
	if err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Prepared %s %s in %s", m.Version, m.Files, conf.DistDir)
	return nil
}

func uploadDist(cmd *cobra.Command, _ []string) error {
	conf := app.Conf.Release
	ctx := cmd.Context()
	store, err := app.DistStore(ctx, conf.DistBucket, conf.AWSProfile)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := release.NewUploader(store, ux.Logger, app.Log).Upload(ctx, conf.DistDir)
	if err != nil {
		return err
	}
	ux.Logger.GreenCheckmarkToUser("Uploaded %d files to %s", len(keys), store.Bucket())
	return nil
}

func dist(cmd *cobra.Command, args []string) error {
	if err := makeDist(cmd, args); err != nil {
		return err
	}
	return uploadDist(cmd, args)
}

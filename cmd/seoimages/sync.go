package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leca/seo-images/internal/app"
	"github.com/leca/seo-images/internal/model"
)

var syncFormatsCmd = &cobra.Command{
	Use:   "sync-formats",
	Short: "Rebuild the format index of images uploaded without one",
	Long: `Rebuild the format index of images uploaded without one.

For every image whose available formats are unknown, each format is probed
on its storage disk at the original size and at every configured width, and
the result is saved. Images that fail are reported and skipped.`,
	RunE: runSyncFormats,
}

func runSyncFormats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	fmt.Println(FormatInfo("Syncing available formats..."))
	start := time.Now()

	res, err := a.Converter.SyncFormats(ctx, func(done, total int, img *model.ImageAsset, err error) {
		progress := StyleMuted.Render(fmt.Sprintf("[%d/%d]", done, total))
		if err != nil {
			fmt.Println(progress, FormatError(fmt.Sprintf("%s: %v", img.FolderPath, err)))
			return
		}
		fmt.Println(progress, img.FolderPath)
	})
	if err != nil {
		fmt.Println(FormatError("Sync aborted"))
		return err
	}

	fmt.Println()
	if res.Total == 0 {
		fmt.Println(FormatSuccess("Every image already has a format index."))
		return nil
	}
	fmt.Println(FormatSuccess("Sync finished"))
	fmt.Println(RenderKeyValue("Processed", fmt.Sprint(res.Total)))
	fmt.Println(RenderKeyValue("Updated", fmt.Sprint(res.Updated)))
	fmt.Println(RenderKeyValue("Failed", fmt.Sprint(res.Failed)))
	fmt.Println(RenderKeyValue("Duration", time.Since(start).Round(time.Millisecond).String()))

	if res.Failed > 0 {
		fmt.Println(FormatWarning(fmt.Sprintf("%d image(s) could not be synced; see the log for details.", res.Failed)))
	}
	return nil
}

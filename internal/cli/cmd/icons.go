package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/touchicons/internal/domain/entity"
	domainurl "github.com/bnema/touchicons/internal/domain/url"
	"github.com/bnema/touchicons/internal/infrastructure/webui"
)

var (
	listJSON bool

	fetchURL  string
	fetchType string
	fetchSize int

	getSize int
	getOut  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the icons cached for a profile",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <origin>",
	Short: "Submit an icon candidate and wait for the result",
	Long: `Submit an icon candidate for an origin, exactly as a page load would.

Without --url the origin's /apple-touch-icon.png is tried. The command waits
for the download to finish, then prints what the cache holds for the origin.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var getCmd = &cobra.Command{
	Use:   "get <origin>",
	Short: "Write an origin's cached icon as PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <origin>",
	Aliases: []string{"rm"},
	Short:   "Delete an origin's cached icon",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(listCmd, fetchCmd, getCmd, deleteCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "print records as JSON")

	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "icon URL (default: the origin's apple-touch-icon.png)")
	fetchCmd.Flags().StringVar(&fetchType, "type", "touch", "icon type: favicon, fluid or touch")
	fetchCmd.Flags().IntVar(&fetchSize, "size", 0, "declared icon size, 0 if unknown")

	getCmd.Flags().IntVar(&getSize, "size", 0, "output edge in pixels, 0 keeps the stored size")
	getCmd.Flags().StringVarP(&getOut, "out", "o", "", "output file, - for stdout (default <host>.png)")
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	ctx := a.Ctx()
	storage, err := a.Cache(ctx, profileID)
	if err != nil {
		return err
	}
	records, err := storage.SerializeCachedIcons(ctx)
	if err != nil {
		return err
	}

	if listJSON {
		views := make([]webui.IconView, 0, len(records))
		for _, rec := range records {
			views = append(views, webui.NewIconView(rec))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(webui.IconListResponse{Profile: profileID, Capacity: storage.Capacity(), Icons: views})
	}

	fmt.Fprint(cmd.OutOrStdout(), renderer().RenderList(profileID, storage.Capacity(), records))
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	origin, err := domainurl.Origin(args[0])
	if err != nil {
		return err
	}
	iconType, err := entity.ParseIconType(fetchType)
	if err != nil {
		return err
	}

	ctx := a.Ctx()
	storage, err := a.Cache(ctx, profileID)
	if err != nil {
		return err
	}

	candidate := entity.NewCandidate(origin, fetchURL, iconType)
	if fetchSize > 0 {
		candidate.IconSize = fetchSize
	}
	if err := storage.FetchIconIfNeeded(ctx, candidate); err != nil {
		return err
	}
	if err := storage.Idle(cmd.Context()); err != nil {
		return err
	}

	records, err := storage.SerializeCachedIcons(ctx)
	if err != nil {
		return err
	}
	var stored *entity.IconRecord
	for _, rec := range records {
		if domainurl.SameSlot(rec.Origin, origin) {
			stored = rec
			break
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), renderer().RenderStored(stored))
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	origin, err := domainurl.Origin(args[0])
	if err != nil {
		return err
	}

	ctx := a.Ctx()
	storage, err := a.Cache(ctx, profileID)
	if err != nil {
		return err
	}
	img, err := storage.LoadIcon(ctx, origin, getSize)
	if err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("no icon cached for %s", origin)
	}
	data, err := a.Codec.EncodePNG(img)
	if err != nil {
		return fmt.Errorf("encode icon: %w", err)
	}

	out := getOut
	if out == "" {
		out = strings.ReplaceAll(domainurl.Host(origin), ":", "_") + ".png"
	}
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec // user-requested output file
		return fmt.Errorf("write icon: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderer().RenderSaved(origin, out, img.Bounds().Dx()))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	origin, err := domainurl.Origin(args[0])
	if err != nil {
		return err
	}

	ctx := a.Ctx()
	storage, err := a.Cache(ctx, profileID)
	if err != nil {
		return err
	}
	deleted, err := storage.DeleteIconForOrigin(ctx, origin)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderer().RenderDeleted(origin, deleted))
	return nil
}

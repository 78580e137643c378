package cli

import (
	"go-space/internal/orchestrator"

	"github.com/spf13/cobra"
)

type marsFlags struct {
	rover     string
	date      string
	camera    string
	page      int
	suggested bool
}

func newMarsCmd() *cobra.Command {
	var f marsFlags
	cmd := &cobra.Command{
		Use:   "mars",
		Short: "Browse one page of Mars rover photos from a running go-space service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := orchestrator.NewHTTPAPI(cfg.Client.PublicBaseURL, cfg.Upstream.Timeout)
			b := orchestrator.NewMarsBrowser(api)
			defer b.Close()

			if err := applyMarsFlags(cmd, b, f); err != nil {
				return err
			}
			return writeMarsView(cmd.OutOrStdout(), b.View())
		},
	}
	cmd.Flags().StringVar(&f.rover, "rover", "", "rover: curiosity or perseverance")
	cmd.Flags().StringVar(&f.date, "date", "", "earth date (YYYY-MM-DD), default is the rover's landing showcase date")
	cmd.Flags().StringVar(&f.camera, "camera", "", "camera abbreviation, e.g. MAST")
	cmd.Flags().IntVar(&f.page, "page", 1, "page to show")
	cmd.Flags().BoolVar(&f.suggested, "best", false, "jump to the date with the most photos")
	return cmd
}

// applyMarsFlags starts the session and walks it to the requested filter and page
func applyMarsFlags(cmd *cobra.Command, b *orchestrator.MarsBrowser, f marsFlags) error {
	if f.rover != "" {
		if err := b.SetRover(f.rover); err != nil {
			return err
		}
	}
	if f.date != "" {
		if err := b.SetDate(f.date); err != nil {
			return err
		}
	}

	b.Start(cmd.Context())
	b.Wait()

	if f.suggested {
		if s := b.View().Suggested; len(s) > 0 {
			if err := b.SelectSuggestedDate(s[0]); err != nil {
				return err
			}
			b.Wait()
		}
	}
	if f.camera != "" {
		b.SetCamera(f.camera)
		b.Wait()
	}
	for i := 1; i < f.page; i++ {
		b.NextPage()
	}
	return nil
}

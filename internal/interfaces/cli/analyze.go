package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/CyberTrace-Intelligence/internal/analysis"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		complaintFile string
		imagePath     string
		pdfPath       string
		audioPath     string
		videoPath     string
	)

	cmd := &cobra.Command{
		Use:   "analyze [complaint text]",
		Short: "Run the full analysis pipeline over a complaint and its evidence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}

			var complaint string
			switch {
			case len(args) == 1:
				complaint = args[0]
			case complaintFile != "":
				data, err := os.ReadFile(complaintFile)
				if err != nil {
					return apperrors.Wrap(err, apperrors.CodeInvalidParam, "complaint file unreadable")
				}
				complaint = string(data)
			default:
				return apperrors.InvalidParam("provide the complaint text or --complaint-file")
			}

			result, err := a.casework().Complete(cmd.Context(), analysis.CompleteRequest{
				Complaint: complaint,
				ImagePath: imagePath,
				PDFPath:   pdfPath,
				AudioPath: audioPath,
				VideoPath: videoPath,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&complaintFile, "complaint-file", "", "file containing the complaint text")
	cmd.Flags().StringVar(&imagePath, "image", "", "image evidence file")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF evidence file")
	cmd.Flags().StringVar(&audioPath, "audio", "", "audio evidence file")
	cmd.Flags().StringVar(&videoPath, "video", "", "video evidence file")
	return cmd
}

package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CyberTrace-Intelligence/internal/application/advisory"
)

func newChatCommand(a *app) *cobra.Command {
	var (
		contextText string
		topK        int
	)

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask the cybercrime guidance knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			q := advisory.Question{
				Query:   strings.Join(args, " "),
				Context: contextText,
				TopK:    topK,
			}

			svc := a.advisory()
			var (
				ans interface{}
				err error
			)
			if contextText != "" {
				ans, err = svc.AskEnhanced(cmd.Context(), q)
			} else {
				ans, err = svc.Ask(cmd.Context(), q)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ans)
		},
	}

	cmd.Flags().StringVar(&contextText, "context", "", "extra grounding context for the answer")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of corpus chunks to retrieve (0 uses the default)")
	return cmd
}

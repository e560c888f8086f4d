package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/service/dashboard"
	"github.com/memoria-app/memoria/internal/service/gate"
	"github.com/memoria-app/memoria/internal/service/wizard"
)

func newAvatarsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "avatars",
		Short: "List your avatars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.route(gate.PathDashboard); err != nil {
				return err
			}
			return a.printDashboard(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) printDashboard(ctx context.Context, out io.Writer) error {
	items, err := dashboard.NewService(a.api, a.logger).List(ctx)
	if err != nil {
		return displayError(err, dashboard.MsgLoadFailed)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No avatars yet. Create one with `memoria avatar create --name <name>`.")
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		chat := "-"
		if path, ok := dashboard.ChatPath(item); ok {
			chat = path
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Name,
			item.Relationship,
			string(item.Status),
			chat,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "RELATIONSHIP", "STATUS", "CHAT").
		Rows(rows...)
	fmt.Fprintln(out, t.Render())
	return nil
}

func newAvatarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Manage avatars",
	}
	cmd.AddCommand(newAvatarCreateCmd(a))
	return cmd
}

func newAvatarCreateCmd(a *app) *cobra.Command {
	var (
		fields    avatar.Fields
		gender    string
		imagePath string
		retries   int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an avatar and make it ready for chat",
		Long: `Create an avatar in two steps: the details are uploaded as a draft,
then the draft is finalized so it can be used for chat.

If finalizing fails the draft is kept; --retry-finalize retries it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.route(gate.PathAvatarCreate); err != nil {
				return err
			}
			g, err := avatar.ParseGender(gender)
			if err != nil {
				return err
			}
			fields.Gender = g

			navigated := make(chan string, 1)
			w := wizard.New(a.api,
				wizard.WithNavigateDelay(a.cfg.Client.NavigateDelay),
				wizard.WithNavigator(func(path string) { navigated <- path }),
				wizard.WithLogger(a.logger),
			)

			w.SetFields(fields)
			if err := w.Advance(); err != nil {
				return displayError(err, wizard.MsgCreateFailed)
			}
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				if err := w.AttachImage(imagePath, data); err != nil {
					return displayError(err, wizard.MsgCreateFailed)
				}
			}

			out := cmd.OutOrStdout()
			err = w.Submit(cmd.Context())
			for attempt := 0; attempt < retries && isPartial(err) && !apperr.IsAuth(err); attempt++ {
				fmt.Fprintf(out, "%s\nRetrying finalize (%d/%d)...\n", w.Error(), attempt+1, retries)
				err = w.RetryFinalize(cmd.Context())
			}
			if apperr.IsAuth(err) {
				return errNotLoggedIn
			}
			if err != nil {
				if id, ok := w.DraftID(); ok {
					return &userError{msg: fmt.Sprintf("%s (draft id %d)", w.Error(), id), err: err}
				}
				return &userError{msg: w.Error(), err: err}
			}

			fmt.Fprintln(out, w.Success())
			select {
			case path := <-navigated:
				if path == gate.PathDashboard {
					return a.printDashboard(cmd.Context(), out)
				}
				return nil
			case <-cmd.Context().Done():
				return nil
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&fields.Name, "name", "n", "", "name of the person (required)")
	flags.StringVarP(&fields.Relationship, "relationship", "r", "", "your relationship, e.g. grandfather")
	flags.StringVarP(&fields.Description, "description", "d", "", "personality, memories, way of speaking")
	flags.StringVarP(&gender, "gender", "g", "other", "male, female or other")
	flags.StringVarP(&imagePath, "image", "i", "", "path to a profile photo")
	flags.IntVar(&retries, "retry-finalize", 0, "times to retry activating a saved draft")
	return cmd
}

func isPartial(err error) bool {
	var partial *apperr.PartialSuccessError
	return errors.As(err, &partial)
}

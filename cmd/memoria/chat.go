package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/model/conversation"
	convsvc "github.com/memoria-app/memoria/internal/service/conversation"
	"github.com/memoria-app/memoria/internal/service/gate"
	"github.com/memoria-app/memoria/internal/tui"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		message string
		plain   bool
	)

	cmd := &cobra.Command{
		Use:   "chat <avatar-id>",
		Short: "Chat with an avatar",
		Long: `Open the chat screen for an avatar.

With --message a single message is sent and the reply printed, without
opening the interactive screen.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := a.route(gate.PathChatPrefix + args[0])
			if err != nil {
				return err
			}
			if decision.Render != gate.ViewChat {
				return fmt.Errorf("invalid avatar id %q", args[0])
			}

			session := convsvc.NewSession(a.api, a.logger)
			if message == "" {
				opts := []tui.Option{tui.WithLogger(a.logger)}
				if plain {
					opts = append(opts, tui.WithPlainText())
				}
				return tui.Run(cmd.Context(), session, decision.AvatarID, opts...)
			}

			if err := session.Initialize(cmd.Context(), decision.AvatarID); err != nil {
				if errors.Is(err, convsvc.ErrAvatarNotReady) {
					return errors.New("this avatar is still a draft and cannot chat yet")
				}
				return displayError(err, "Failed to load conversation")
			}

			accepted, err := session.SendMessage(cmd.Context(), message)
			if !accepted {
				return errors.New("message is empty")
			}
			if err != nil {
				return displayError(err, "Failed to send message")
			}

			msgs := session.Messages()
			av, _ := session.Avatar()
			out := cmd.OutOrStdout()
			for _, m := range msgs[len(msgs)-2:] {
				who := "You"
				if m.SenderType == conversation.SenderAvatar {
					who = av.Name
				}
				fmt.Fprintf(out, "%s: %s\n", who, m.TextContent)
			}
			a.logger.Debug("one-shot message sent", zap.Int64("avatar_id", decision.AvatarID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and print the reply")
	cmd.Flags().BoolVar(&plain, "plain", false, "do not render replies as markdown")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"insightai/internal/model"
	"insightai/internal/render"
	"insightai/internal/service"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const startFailed = "Survey not found or server error."

// sessionConversation drives one in-process session from the terminal
type sessionConversation struct {
	svc *service.SessionService
	id  string
}

func (c *sessionConversation) Submit(ctx context.Context, text string) error {
	_, err := c.svc.Submit(ctx, c.id, text)
	return err
}

func (c *sessionConversation) Snapshot() *model.Snapshot {
	snap, err := c.svc.Get(context.Background(), c.id)
	if err != nil {
		return &model.Snapshot{}
	}
	return snap
}

// feedBroadcaster hands transcript updates to the terminal model
type feedBroadcaster struct {
	feed func(*model.Snapshot)
}

func (b feedBroadcaster) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	if snap, ok := payload.(*model.Snapshot); ok {
		b.feed(snap)
	}
}

func (b feedBroadcaster) DisconnectSession(string) {}

func (c *cli) respondCmd() *cobra.Command {
	var skin, logFile string
	cmd := &cobra.Command{
		Use:   "respond <surveyId>",
		Short: "Answer a survey as a chat in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// the chat owns the screen; log lines go to a file or nowhere
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "insightai")
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
			} else {
				log.SetOutput(io.Discard)
			}

			svc := service.NewSessionService(c.api, nil, nil, nil, nil, c.cfg.Chat, c.cfg.APITimeout)
			svc.SetChannel(model.ChannelTerminal)
			updates := make(chan *model.Snapshot, 16)
			svc.SetBroadcaster(feedBroadcaster{feed: render.Feed(updates)})

			view, err := svc.Start(cmd.Context(), args[0], skin)
			if err != nil {
				if errors.Is(err, service.ErrUnknownSkin) {
					return err
				}
				return errors.New(startFailed)
			}
			conv := &sessionConversation{svc: svc, id: view.SessionID}
			return render.Run(cmd.Context(), conv, updates, c.cfg.Chat.SeenDelay)
		},
	}
	cmd.Flags().StringVar(&skin, "skin", "chat", "chat skin: chat or whatsapp")
	cmd.Flags().StringVar(&logFile, "log", "", "write logs to this file while chatting")
	return cmd
}

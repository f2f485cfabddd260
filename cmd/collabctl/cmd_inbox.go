package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dashboard"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Unread messages and notifications",
}

var inboxWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print unread counts as they change until interrupted",
	RunE:  runInboxWatch,
}

func init() {
	inboxCmd.AddCommand(inboxWatchCmd)
}

func runInboxWatch(cmd *cobra.Command, args []string) error {
	viewer, err := viewerFromToken(token)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	sess := dashboard.New(newClient(), viewer, logger())
	var mu sync.Mutex
	last := [2]int{-1, -1}
	sess.OnChange(func(s dashboard.Summary) {
		mu.Lock()
		defer mu.Unlock()
		counts := [2]int{s.UnreadMessages, s.UnreadNotifications}
		if counts == last {
			return
		}
		last = counts
		fmt.Fprintf(out, "messages: %d  notifications: %d\n", counts[0], counts[1])
		for _, e := range s.Messages {
			fmt.Fprintf(out, "  %s  %s: %s\n", e.At.Format("Jan 2 15:04"), e.SenderName, e.Snippet)
		}
	})

	if err := sess.Connect(cmd.Context()); err != nil {
		return err
	}
	defer sess.Disconnect()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit
	return nil
}

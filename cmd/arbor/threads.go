package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/arbor/pkg/conversation"
	"github.com/go-go-golems/arbor/pkg/store"
)

// loadThreadOrLast loads the named thread, or the most recently saved one
// when id is empty.
func loadThreadOrLast(s store.ThreadStore, id string) (*store.ThreadState, error) {
	var state *store.ThreadState
	var ok bool
	var err error
	if id == "" {
		state, ok, err = s.LoadLastThread()
	} else {
		state, ok, err = s.LoadThread(id)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		if id == "" {
			return nil, errors.New("no threads saved")
		}
		return nil, errors.Errorf("thread %s not found", id)
	}
	return state, nil
}

func newThreadsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List saved threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			infos, err := s.ListThreads()
			if err != nil {
				return err
			}
			for _, info := range infos {
				title := info.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("%s  %-30s  %d messages  updated %s\n",
					info.ID, title, info.Messages, info.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the visible transcript of a thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			state, err := loadThreadOrLast(s, threadID)
			if err != nil {
				return err
			}

			path := conversation.DerivePath(state.Messages, state.Selection)
			fmt.Print(path.View())
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "thread id (default: last saved)")
	return cmd
}

func newBranchesCommand() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "branches <message-id>",
		Short: "List the branch siblings of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			state, err := loadThreadOrLast(s, threadID)
			if err != nil {
				return err
			}

			msgID := conversation.NodeID(args[0])
			var msg *conversation.Message
			for _, m := range state.Messages {
				if m != nil && m.ID == msgID {
					msg = m
					break
				}
			}
			if msg == nil {
				return errors.Errorf("message %s not found in thread %s", msgID, state.ID)
			}

			ss := conversation.SiblingsOf(state.Messages, msg)
			fmt.Printf("parent key: %s\n", ss.ParentKey)
			for i, sibling := range ss.Siblings {
				marker := " "
				if i == ss.Index {
					marker = "*"
				}
				provenance := ""
				if sibling.EditedFrom != conversation.NullNode {
					provenance = fmt.Sprintf("  (edited from %s)", sibling.EditedFrom)
				}
				fmt.Printf("%s [%d] %s  %s%s\n", marker, i, sibling.ID, sibling.Content.View(), provenance)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "thread id (default: last saved)")
	return cmd
}

func newSelectCommand() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "select <parent-key> <index>",
		Short: "Select which branch is visible under a parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var index int
			if _, err := fmt.Sscanf(args[1], "%d", &index); err != nil {
				return errors.Wrapf(err, "invalid index %s", args[1])
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			state, err := loadThreadOrLast(s, threadID)
			if err != nil {
				return err
			}

			key := conversation.ParentKey(args[0])
			n := len(conversation.BuildIndex(state.Messages)[key])
			if n == 0 {
				return errors.Errorf("no branches under %s", key)
			}
			clamped := conversation.Selection{key: index}.Resolve(key, n)
			state.Selection = state.Selection.With(key, clamped)

			if err := s.SaveThread(state); err != nil {
				return err
			}

			path := conversation.DerivePath(state.Messages, state.Selection)
			fmt.Print(path.View())
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "thread id (default: last saved)")
	return cmd
}

func newMergeCommand() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "merge <messages.json>",
		Short: "Reconcile a JSON message list into a thread",
		Long: `Reads a flat JSON list of messages and merges it into the thread:
ids already present are refreshed with the incoming copy, new ids are
appended in order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "could not read %s", args[0])
			}
			var incoming conversation.Conversation
			if err := json.Unmarshal(data, &incoming); err != nil {
				return errors.Wrapf(err, "could not decode %s", args[0])
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			state, err := loadThreadOrLast(s, threadID)
			if err != nil {
				return err
			}

			before := len(state.Messages)
			state.Messages = conversation.Merge(state.Messages, incoming)
			if err := s.SaveThread(state); err != nil {
				return err
			}

			fmt.Printf("thread %s: %d messages (%d before merge)\n", state.ID, len(state.Messages), before)
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "thread id (default: last saved)")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a saved thread (no-op when absent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := s.DeleteThread(args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/shared/cmdutils"
)

var chatsJSON bool

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Inspect stored conversations",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recently updated chats",
	RunE:  runChatsList,
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Print one chat with its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsShow,
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a chat and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsDelete,
}

func init() {
	chatsCmd.PersistentFlags().BoolVar(&chatsJSON, "json", false, "Print JSON")
	chatsCmd.AddCommand(chatsListCmd)
	chatsCmd.AddCommand(chatsShowCmd)
	chatsCmd.AddCommand(chatsDeleteCmd)
}

// openStore opens only the conversation database.
func openStore() (*session.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.NewManager(cfg.DatabasePath())
}

func runChatsList(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(context.Background(), session.ListLimit)
	if err != nil {
		return err
	}
	if chatsJSON {
		return cmdutils.PrintJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("No chats.")
		return nil
	}

	fmt.Printf("%-36s  %-8s  %-20s  %4s  %s\n", "ID", "TYPE", "MODEL", "MSGS", "UPDATED")
	for _, s := range list {
		fmt.Printf("%-36s  %-8s  %-20s  %4d  %s\n",
			s.ID, s.ChatType, s.ModelName, s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runChatsShow(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := store.Find(context.Background(), args[0])
	if err != nil {
		return err
	}
	view := c.View()
	if chatsJSON {
		return cmdutils.PrintJSON(view)
	}

	fmt.Printf("%s chat %s (%s, %s)\n", logo, view.ID, view.ChatType, view.ModelName)
	if view.CourseID != "" {
		fmt.Printf("Course: %s\n", view.CourseID)
	}
	for _, m := range view.Messages {
		fmt.Printf("\n[%s] %s\n", strings.ToUpper(m.Role), m.Content)
	}
	return nil
}

func runChatsDelete(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted chat %s\n", args[0])
	return nil
}

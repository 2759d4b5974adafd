package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/config"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/mcp"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tutorchat configuration and MCP reachability",
	RunE:  runStatus,
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	fmt.Printf("%s tutorchat Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	fmt.Printf("Config:    %s %s\n", cfgPath, mark(statErr == nil))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	dbPath := cfg.DatabasePath()
	_, dbErr := os.Stat(dbPath)
	fmt.Printf("Database:  %s %s\n", dbPath, mark(dbErr == nil))
	fmt.Printf("Listen:    %s\n", cfg.ListenAddr())
	fmt.Printf("Courses:   %s\n", cfg.Courses.BaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client := mcp.NewClient(mcp.ServerConfig{URL: cfg.MCP.ServerURL, Timeout: 10 * time.Second})
	defer client.Close()
	if tools, err := client.ListTools(ctx); err != nil {
		fmt.Printf("MCP:       %s ✗ (%v)\n", cfg.MCP.ServerURL, err)
	} else {
		fmt.Printf("MCP:       %s ✓ (%d tools)\n", cfg.MCP.ServerURL, len(tools))
	}

	fmt.Println("\nProviders:")
	for _, spec := range providers.PROVIDERS {
		label := spec.Label()
		if spec.IsLocal {
			fmt.Printf("  %-12s ✓ %s (%s)\n", label, cfg.Providers.Ollama.Host, cfg.Providers.Ollama.Model)
			continue
		}
		p := providerConfig(cfg, spec.Name)
		if p != nil && p.APIKey != "" {
			fmt.Printf("  %-12s ✓ %s\n", label, p.DefaultModel)
		} else {
			fmt.Printf("  %-12s (not set, %s)\n", label, spec.EnvKey)
		}
	}
	return nil
}

func providerConfig(cfg *config.Config, name string) *config.ProviderConfig {
	switch name {
	case "openai":
		return &cfg.Providers.OpenAI
	case "gemini":
		return &cfg.Providers.Gemini
	case "anthropic":
		return &cfg.Providers.Anthropic
	}
	return nil
}

package cmd

import (
	"context"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/courses"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/dependency"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve generate_course and list_chats as an MCP server over stdio",
	RunE:  runMCP,
}

func runMCP(_ *cobra.Command, _ []string) error {
	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	s := mcpserver.NewMCPServer("tutorchat", version, mcpserver.WithLogging())
	registerMCPTools(s, container)
	return mcpserver.ServeStdio(s)
}

func registerMCPTools(s *mcpserver.MCPServer, c *dependency.ServiceContainer) {
	s.AddTool(mcpgo.NewTool("generate_course",
		mcpgo.WithDescription("Run the course agent and create a complete course from a description"),
		mcpgo.WithString("prompt", mcpgo.Required(), mcpgo.Description("What the course should teach")),
		mcpgo.WithString("provider", mcpgo.Enum("openai", "gemini"), mcpgo.Description("Agent provider")),
		mcpgo.WithString("model", mcpgo.Description("Model override")),
		mcpgo.WithString("instructor_id", mcpgo.Description("Instructor id for the created course")),
	), func(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		prompt, _ := args["prompt"].(string)
		if prompt == "" {
			return mcpgo.NewToolResultError("prompt is required"), nil
		}
		provider, _ := args["provider"].(string)
		if provider == "" {
			provider = c.Config().Agent.DefaultProvider
		}
		model, _ := args["model"].(string)
		instructor, _ := args["instructor_id"].(string)

		result, err := c.Courses().GenerateCourse(ctx, courses.GenerateRequest{
			Prompt:       prompt,
			Provider:     provider,
			Model:        model,
			InstructorID: instructor,
		}, nil)
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		return mcpgo.NewToolResultStructuredOnly(result), nil
	})

	s.AddTool(mcpgo.NewTool("list_chats",
		mcpgo.WithDescription("List the most recently updated tutor chats"),
		mcpgo.WithNumber("limit", mcpgo.Description("Maximum number of chats (1-100)")),
	), func(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		limit := session.ListLimit
		if n, ok := args["limit"].(float64); ok && n > 0 {
			limit = int(n)
		}
		list, err := c.Store().List(ctx, limit)
		if err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		return mcpgo.NewToolResultStructuredOnly(map[string]any{"chats": list}), nil
	})
}

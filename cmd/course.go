package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/courses"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/shared/cmdutils"
)

var (
	coursePrompt     string
	courseProvider   string
	courseModel      string
	courseInstructor string
	courseJSON       bool
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Run the course agent once for a prompt",
	RunE:  runCourse,
}

func init() {
	courseCmd.Flags().StringVarP(&coursePrompt, "prompt", "p", "", "Course description for the agent")
	courseCmd.Flags().StringVar(&courseProvider, "provider", "", "Agent provider: openai or gemini (default agent.defaultProvider)")
	courseCmd.Flags().StringVarP(&courseModel, "model", "m", "", "Model override")
	courseCmd.Flags().StringVar(&courseInstructor, "instructor", "", "Instructor id for the created course")
	courseCmd.Flags().BoolVar(&courseJSON, "json", false, "Print the full run result as JSON")
	_ = courseCmd.MarkFlagRequired("prompt")
}

func runCourse(_ *cobra.Command, _ []string) error {
	container, err := openContainer()
	if err != nil {
		return err
	}
	defer container.Close()

	provider := courseProvider
	if provider == "" {
		provider = container.Config().Agent.DefaultProvider
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "  ↳ generating with %s...\n", provider)
	result, err := container.Courses().GenerateCourse(ctx, courses.GenerateRequest{
		Prompt:       coursePrompt,
		Provider:     provider,
		Model:        courseModel,
		InstructorID: courseInstructor,
	}, func(msg string) {
		fmt.Fprintf(os.Stderr, "  ↳ %s\n", msg)
	})
	if err != nil {
		return err
	}

	if courseJSON {
		return cmdutils.PrintJSON(result)
	}
	if !result.Success {
		return fmt.Errorf("course generation failed after %d iterations: %s", result.Iterations, result.Error)
	}
	cmdutils.PrintResponse(result.FinalResponse)
	fmt.Printf("Iterations: %d, tools executed: %d\n", result.Iterations, result.ToolsExecuted)
	return nil
}

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/schema"
)

func TestFactory_Defaults(t *testing.T) {
	f := NewFactory(FactorySettings{}, Clients{}, staticCatalog{}, &courseExecutor{}, nil)

	assert.Equal(t, "gpt-4o", f.DefaultModel(ProviderOpenAI))
	assert.Equal(t, "gemini-2.0-flash", f.DefaultModel(ProviderGemini))
}

func TestFactory_MissingKey(t *testing.T) {
	f := NewFactory(FactorySettings{}, Clients{}, staticCatalog{}, &courseExecutor{}, nil)

	_, err := f.NewRunner(context.Background(), ProviderOpenAI, "")
	assert.EqualError(t, err, "OPENAI_API_KEY is not configured")

	_, err = f.NewRunner(context.Background(), ProviderGemini, "")
	assert.EqualError(t, err, "GEMINI_API_KEY is not configured")
}

func TestFactory_RunnersShareClients(t *testing.T) {
	oa := testOpenAIClient("k", "http://127.0.0.1:1/")
	gm, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: "k", Backend: genai.BackendGeminiAPI})
	require.NoError(t, err)
	f := NewFactory(FactorySettings{}, Clients{OpenAI: oa, Gemini: gm}, staticCatalog{}, &courseExecutor{}, nil)

	r1, err := f.NewRunner(context.Background(), ProviderOpenAI, "")
	require.NoError(t, err)
	r2, err := f.NewRunner(context.Background(), ProviderOpenAI, "gpt-4o-mini")
	require.NoError(t, err)
	assert.Same(t, oa, r1.dialect.(*OpenAIDialect).client)
	assert.Same(t, oa, r2.dialect.(*OpenAIDialect).client)
	assert.Equal(t, "gpt-4o-mini", r2.dialect.(*OpenAIDialect).model)

	g1, err := f.NewRunner(context.Background(), ProviderGemini, "")
	require.NoError(t, err)
	g2, err := f.NewRunner(context.Background(), ProviderGemini, "")
	require.NoError(t, err)
	assert.Same(t, gm, g1.dialect.(*GeminiDialect).client)
	assert.Same(t, gm, g2.dialect.(*GeminiDialect).client)
}

func TestCourseAgent_Generate(t *testing.T) {
	d := &scriptedDialect{name: "Gemini", replies: []Reply{{Text: "done"}}}
	var gotModel string
	f := NewFactory(FactorySettings{}, Clients{}, staticCatalog{}, &courseExecutor{}, nil).
		WithDialect(ProviderGemini, DialectSettings{DefaultModel: "gemini-x", MaxIterations: 60}, func(_ context.Context, model string) (Dialect, error) {
			gotModel = model
			return d, nil
		})

	res, err := NewCourseAgent(f).Generate(context.Background(), CourseRequest{
		Provider:     ProviderGemini,
		Prompt:       "Build it",
		InstructorID: "inst-1",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, schema.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "gemini-x", gotModel)
	assert.Equal(t, "Build it\n\nInstructor ID: inst-1", d.task)
}

func TestCourseAgent_BuildFailureIsLoopError(t *testing.T) {
	f := NewFactory(FactorySettings{}, Clients{}, staticCatalog{}, &courseExecutor{}, nil)

	_, err := NewCourseAgent(f).Generate(context.Background(), CourseRequest{Prompt: "x"}, nil)

	assert.EqualError(t, err, "Agent Loop Error (OpenAI): OPENAI_API_KEY is not configured")
}

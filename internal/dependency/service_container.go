// Package dependency wires the tutor chat services using go.uber.org/dig.
package dependency

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/openai/openai-go"
	"go.uber.org/dig"
	"google.golang.org/genai"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/agent"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/chat"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/config"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/courseapi"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/courses"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/cron"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/heartbeat"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/logging"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/mcp"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/providers"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/server"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/session"
	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/tools"
)

// CatalogRefreshJob is the cron job name of the MCP catalog refresher.
const CatalogRefreshJob = "mcp-catalog-refresh"

// ServiceContainer holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type ServiceContainer struct {
	cfg       *config.Config
	store     *session.Manager
	mcpClient *mcp.Client
	catalog   *mcp.Catalog
	executor  *tools.Executor
	agent     *agent.CourseAgent
	chats     *chat.Service
	courses   *courses.Service
	health    *heartbeat.Service
	cronSvc   *cron.Service
	server    *server.Server
}

func (c *ServiceContainer) Config() *config.Config          { return c.cfg }
func (c *ServiceContainer) Store() *session.Manager         { return c.store }
func (c *ServiceContainer) MCPClient() *mcp.Client          { return c.mcpClient }
func (c *ServiceContainer) Catalog() *mcp.Catalog           { return c.catalog }
func (c *ServiceContainer) Executor() *tools.Executor       { return c.executor }
func (c *ServiceContainer) CourseAgent() *agent.CourseAgent { return c.agent }
func (c *ServiceContainer) Chats() *chat.Service            { return c.chats }
func (c *ServiceContainer) Courses() *courses.Service       { return c.courses }
func (c *ServiceContainer) Health() *heartbeat.Service      { return c.health }
func (c *ServiceContainer) CronService() *cron.Service      { return c.cronSvc }
func (c *ServiceContainer) Server() *server.Server          { return c.server }

// Close releases the database and the MCP session.
func (c *ServiceContainer) Close() error {
	return errors.Join(c.mcpClient.Close(), c.store.Close())
}

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*ServiceContainer, error) {
	d := dig.New()

	for _, ctor := range []any{
		func() *config.Config { return cfg },
		newSessionManager,
		newMCPClient,
		newCatalog,
		newCourseAPI,
		newExecutor,
		newTracer,
		newOpenAIClient,
		newGeminiClient,
		newAgentFactory,
		agent.NewCourseAgent,
		newProviderRouter,
		newChatService,
		newCourseService,
		newHealthMonitor,
		newCronService,
		newServer,
	} {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *ServiceContainer
	err := d.Invoke(func(
		store *session.Manager,
		client *mcp.Client,
		catalog *mcp.Catalog,
		executor *tools.Executor,
		courseAgent *agent.CourseAgent,
		chats *chat.Service,
		courseSvc *courses.Service,
		health *heartbeat.Service,
		cronSvc *cron.Service,
		srv *server.Server,
	) {
		result = &ServiceContainer{
			cfg:       cfg,
			store:     store,
			mcpClient: client,
			catalog:   catalog,
			executor:  executor,
			agent:     courseAgent,
			chats:     chats,
			courses:   courseSvc,
			health:    health,
			cronSvc:   cronSvc,
			server:    srv,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.DatabasePath())
}

func newMCPClient(cfg *config.Config) *mcp.Client {
	return mcp.NewClient(mcp.ServerConfig{
		URL:     cfg.MCP.ServerURL,
		Timeout: seconds(cfg.MCP.CallTimeoutSeconds),
	})
}

func newCatalog(client *mcp.Client) *mcp.Catalog {
	return mcp.NewCatalog(client)
}

func newCourseAPI(cfg *config.Config) *courseapi.Client {
	return courseapi.New(cfg.Courses.BaseURL, seconds(cfg.Courses.TimeoutSeconds))
}

func newExecutor(client *mcp.Client, api *courseapi.Client) *tools.Executor {
	return tools.NewCourseExecutor(client, api)
}

func newTracer() agent.Tracer {
	return logging.NewZerologTracer(os.Stderr)
}

// newOpenAIClient is nil without an API key; both the agent and the plain
// chat provider then report the missing key per request.
func newOpenAIClient(cfg *config.Config) *openai.Client {
	return providers.NewOpenAIClient(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase)
}

func newGeminiClient(cfg *config.Config) (*genai.Client, error) {
	return providers.NewGeminiClient(context.Background(), cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.APIBase)
}

func newAgentFactory(
	cfg *config.Config,
	oa *openai.Client,
	gm *genai.Client,
	catalog *mcp.Catalog,
	executor *tools.Executor,
	tracer agent.Tracer,
) *agent.AgentFactory {
	a := cfg.Agent
	return agent.NewFactory(agent.FactorySettings{
		OpenAI: agent.DialectSettings{
			DefaultModel:  a.OpenAIModel,
			MaxIterations: a.OpenAIMaxIterations,
		},
		Gemini: agent.DialectSettings{
			DefaultModel:  a.GeminiModel,
			MaxIterations: a.GeminiMaxIterations,
		},
		RunTimeout:    seconds(a.RunTimeoutSeconds),
		ParallelTools: a.ParallelTools,
	}, agent.Clients{OpenAI: oa, Gemini: gm}, catalog, executor, tracer)
}

func newProviderRouter(cfg *config.Config, oa *openai.Client, gm *genai.Client) (*providers.Router, error) {
	p := cfg.Providers
	return providers.NewRouter(providers.Clients{OpenAI: oa, Gemini: gm},
		providers.Params{ProviderName: "openai", DefaultModel: p.OpenAI.DefaultModel},
		providers.Params{ProviderName: "gemini", DefaultModel: p.Gemini.DefaultModel},
		providers.Params{ProviderName: "anthropic", APIKey: p.Anthropic.APIKey, APIBase: p.Anthropic.APIBase, DefaultModel: p.Anthropic.DefaultModel},
		providers.Params{ProviderName: "ollama", APIBase: p.Ollama.Host, DefaultModel: p.Ollama.Model},
	)
}

func newChatService(cfg *config.Config, store *session.Manager, router *providers.Router, courseAgent *agent.CourseAgent) *chat.Service {
	return chat.NewService(store, router, courseAgent, cfg.Providers.Ollama.Model)
}

func newCourseService(courseAgent *agent.CourseAgent, executor *tools.Executor, store *session.Manager) *courses.Service {
	return courses.NewService(courseAgent, executor, store)
}

func newHealthMonitor(cfg *config.Config, client *mcp.Client) *heartbeat.Service {
	return heartbeat.NewService(func(ctx context.Context) error {
		_, err := client.ListTools(ctx)
		return err
	}, seconds(cfg.MCP.HealthIntervalSeconds))
}

func newCronService(cfg *config.Config, catalog *mcp.Catalog) (*cron.Service, error) {
	svc := cron.NewService()
	if err := svc.AddJob(CatalogRefreshJob, cfg.MCP.RefreshSchedule, catalog.Refresh); err != nil {
		return nil, err
	}
	return svc, nil
}

func newServer(
	cfg *config.Config,
	chats *chat.Service,
	courseSvc *courses.Service,
	catalog *mcp.Catalog,
	executor *tools.Executor,
	health *heartbeat.Service,
) *server.Server {
	return server.New(server.Deps{
		Chats:   chats,
		Courses: courseSvc,
		Catalog: catalog,
		Tools:   executor,
		Health:  health,
	}, server.Options{
		Addr:         cfg.ListenAddr(),
		ReadTimeout:  seconds(cfg.Server.ReadTimeoutSeconds),
		WriteTimeout: seconds(cfg.Server.WriteTimeoutSeconds),
	})
}

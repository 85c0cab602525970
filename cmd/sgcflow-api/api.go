// Package main provides the SGC workflow API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/sgcbr/sgcflow/pkg/notifier"
	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/web"
	"github.com/sgcbr/sgcflow/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	client      notifier.Client
	adminSigla  string
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	client notifier.Client,
	adminSigla string,
) *API {
	return &API{
		logger:      logger,
		persistence: p,
		client:      client,
		adminSigla:  adminSigla,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	dispatcher := notifier.NewDispatcher(a.client, a.logger)
	executor := workflow.NewExecutor(a.persistence, dispatcher, a.logger)
	perms := workflow.NewHierarchyPermissions(a.adminSigla)
	impact := workflow.NewMapSyncImpactChecker(a.persistence)
	orchestrator := workflow.NewOrchestrator(a.persistence, executor, perms, impact, a.logger).
		WithAdminSigla(a.adminSigla)

	handlers := web.NewAPIHandlers(orchestrator, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("SGC Flow API")
	})

	s := app.Group("/subprocesses")
	s.Get("/:id", handlers.GetSubprocess)
	s.Get("/:id/movements", handlers.GetMovements)
	s.Get("/:id/analyses", handlers.GetAnalyses)

	s.Post("/:id/cadastro/atividades", handlers.RegistrarAtividade)
	s.Post("/:id/cadastro/disponibilizar", handlers.DisponibilizarCadastro)
	s.Post("/:id/cadastro/devolver", handlers.DevolverCadastro)
	s.Post("/:id/cadastro/aceitar", handlers.AceitarCadastro)
	s.Post("/:id/cadastro/homologar", handlers.HomologarCadastro)
	s.Post("/:id/cadastro/homologar-revisao", handlers.HomologarRevisaoCadastro)

	s.Post("/:id/mapa/criar", handlers.CriarMapa)
	s.Post("/:id/mapa/competencias", handlers.RegistrarCompetencia)
	s.Post("/:id/mapa/ajustar", handlers.AjustarMapa)
	s.Post("/:id/mapa/disponibilizar", handlers.DisponibilizarMapa)
	s.Post("/:id/mapa/sugestoes", handlers.ApresentarSugestoes)
	s.Post("/:id/mapa/validar", handlers.ValidarMapa)

	s.Post("/:id/validacao/devolver", handlers.DevolverValidacao)
	s.Post("/:id/validacao/aceitar", handlers.AceitarValidacao)
	s.Post("/:id/validacao/homologar", handlers.HomologarValidacao)

	p := app.Group("/processes")
	p.Get("/:id/subprocesses", handlers.GetProcessSubprocesses)
	p.Post("/:id/cadastro/aceitar-bloco", handlers.AceitarCadastroEmBloco)
	p.Post("/:id/cadastro/homologar-bloco", handlers.HomologarCadastroEmBloco)
	p.Post("/:id/validacao/aceitar-bloco", handlers.AceitarValidacaoEmBloco)
	p.Post("/:id/validacao/homologar-bloco", handlers.HomologarValidacaoEmBloco)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

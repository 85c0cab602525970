// Package web provides the HTTP handlers for the competency-mapping workflow
// operations and their read surfaces.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/sgcbr/sgcflow/pkg/models"
	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/workflow"
)

// APIHandlers exposes one endpoint per workflow operation plus the read
// endpoints for subprocess detail, movement history and analyses.
type APIHandlers struct {
	orchestrator *workflow.Orchestrator
	persistence  persistence.Persistence
	validator    *validator.Validate
}

// NewAPIHandlers creates the handler set.
func NewAPIHandlers(
	orchestrator *workflow.Orchestrator,
	p persistence.Persistence,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		persistence:  p,
		validator:    validate,
	}
}

// caller reads the pre-validated identity headers. Authentication happens
// upstream; a request without a user title never legitimately reaches us.
func (h *APIHandlers) caller(c fiber.Ctx) (models.Caller, bool) {
	title := c.Get(HeaderUserTitle)
	if title == "" {
		return models.Caller{}, false
	}

	return models.Caller{
		Title: title,
		Name:  c.Get(HeaderUserName),
	}, true
}

func (h *APIHandlers) subprocessID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// transitionOp is the signature shared by the plain single-subprocess
// operations.
type transitionOp func(ctx fiber.Ctx, subprocessID int64, caller models.Caller, observacoes string) error

func (h *APIHandlers) runTransition(c fiber.Ctx, op transitionOp) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	caller, ok := h.caller(c)
	if !ok {
		return badRequest(c, "Missing "+HeaderUserTitle+" header")
	}

	var req TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	err := op(c, subprocessID, caller, req.Observacoes)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return h.subprocessDetail(c, subprocessID)
}

func (h *APIHandlers) DisponibilizarCadastro(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.DisponibilizarCadastro(c.Context(), id, caller, obs)
	})
}

// RegistrarAtividade records a cadastre activity; the first registration
// creates the subprocess's competency map.
func (h *APIHandlers) RegistrarAtividade(c fiber.Ctx) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	caller, ok := h.caller(c)
	if !ok {
		return badRequest(c, "Missing "+HeaderUserTitle+" header")
	}

	var req RegistrarAtividadeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	activity, err := h.orchestrator.RegistrarAtividade(c.Context(), subprocessID, caller, req.Descricao, req.Conhecimentos)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"activity": activity})
}

// RegistrarCompetencia records a competency on the drafted map.
func (h *APIHandlers) RegistrarCompetencia(c fiber.Ctx) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	caller, ok := h.caller(c)
	if !ok {
		return badRequest(c, "Missing "+HeaderUserTitle+" header")
	}

	var req RegistrarCompetenciaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	competency, err := h.orchestrator.RegistrarCompetencia(c.Context(), subprocessID, caller, req.Descricao, req.AtividadeIDs)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"competency": competency})
}

func (h *APIHandlers) DevolverCadastro(c fiber.Ctx) error {
	return h.runDevolucao(c, h.orchestrator.DevolverCadastro)
}

func (h *APIHandlers) AceitarCadastro(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.AceitarCadastro(c.Context(), id, caller, obs)
	})
}

func (h *APIHandlers) HomologarCadastro(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.HomologarCadastro(c.Context(), id, caller, obs)
	})
}

func (h *APIHandlers) HomologarRevisaoCadastro(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.HomologarRevisaoCadastro(c.Context(), id, caller, obs)
	})
}

func (h *APIHandlers) CriarMapa(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.CriarMapa(c.Context(), id, caller, obs)
	})
}

func (h *APIHandlers) AjustarMapa(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.AjustarMapa(c.Context(), id, caller, obs)
	})
}

func (h *APIHandlers) DisponibilizarMapa(c fiber.Ctx) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	caller, ok := h.caller(c)
	if !ok {
		return badRequest(c, "Missing "+HeaderUserTitle+" header")
	}

	var req DisponibilizarMapaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.orchestrator.DisponibilizarMapa(c.Context(), subprocessID, caller, req.Prazo, req.Observacoes)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return h.subprocessDetail(c, subprocessID)
}

func (h *APIHandlers) ApresentarSugestoes(c fiber.Ctx) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	caller, ok := h.caller(c)
	if !ok {
		return badRequest(c, "Missing "+HeaderUserTitle+" header")
	}

	var req SugestoesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.orchestrator.ApresentarSugestoes(c.Context(), subprocessID, caller, req.Sugestoes)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return h.subprocessDetail(c, subprocessID)
}

func (h *APIHandlers) ValidarMapa(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.ValidarMapa(c.Context(), id, caller, obs)
	})
}

func (h *APIHandlers) DevolverValidacao(c fiber.Ctx) error {
	return h.runDevolucao(c, h.orchestrator.DevolverValidacao)
}

func (h *APIHandlers) AceitarValidacao(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.AceitarValidacao(c.Context(), id, caller, obs)
	})
}

func (h *APIHandlers) HomologarValidacao(c fiber.Ctx) error {
	return h.runTransition(c, func(c fiber.Ctx, id int64, caller models.Caller, obs string) error {
		return h.orchestrator.HomologarValidacao(c.Context(), id, caller, obs)
	})
}

// runDevolucao handles the two return operations, whose justification is
// mandatory.
func (h *APIHandlers) runDevolucao(
	c fiber.Ctx,
	op func(ctx context.Context, subprocessID int64, caller models.Caller, justificativa string) error,
) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	caller, ok := h.caller(c)
	if !ok {
		return badRequest(c, "Missing "+HeaderUserTitle+" header")
	}

	var req DevolverRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := op(c.Context(), subprocessID, caller, req.Justificativa)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return h.subprocessDetail(c, subprocessID)
}

// bulkOp is the signature shared by the *EmBloco operations.
type bulkOp func(ctx fiber.Ctx, processID int64, unitCodes []int64, caller models.Caller, observacoes string) error

func (h *APIHandlers) runBulk(c fiber.Ctx, op bulkOp) error {
	processID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || processID <= 0 {
		return badRequest(c, "Process ID must be a positive integer")
	}

	caller, ok := h.caller(c)
	if !ok {
		return badRequest(c, "Missing "+HeaderUserTitle+" header")
	}

	var req BulkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err = op(c, processID, req.UnitCodes, caller, req.Observacoes)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AceitarCadastroEmBloco(c fiber.Ctx) error {
	return h.runBulk(c, func(c fiber.Ctx, processID int64, codes []int64, caller models.Caller, obs string) error {
		return h.orchestrator.AceitarCadastroEmBloco(c.Context(), processID, codes, caller, obs)
	})
}

func (h *APIHandlers) HomologarCadastroEmBloco(c fiber.Ctx) error {
	return h.runBulk(c, func(c fiber.Ctx, processID int64, codes []int64, caller models.Caller, obs string) error {
		return h.orchestrator.HomologarCadastroEmBloco(c.Context(), processID, codes, caller, obs)
	})
}

func (h *APIHandlers) AceitarValidacaoEmBloco(c fiber.Ctx) error {
	return h.runBulk(c, func(c fiber.Ctx, processID int64, codes []int64, caller models.Caller, obs string) error {
		return h.orchestrator.AceitarValidacaoEmBloco(c.Context(), processID, codes, caller, obs)
	})
}

func (h *APIHandlers) HomologarValidacaoEmBloco(c fiber.Ctx) error {
	return h.runBulk(c, func(c fiber.Ctx, processID int64, codes []int64, caller models.Caller, obs string) error {
		return h.orchestrator.HomologarValidacaoEmBloco(c.Context(), processID, codes, caller, obs)
	})
}

// GetSubprocess returns the subprocess together with its current location.
func (h *APIHandlers) GetSubprocess(c fiber.Ctx) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	return h.subprocessDetail(c, subprocessID)
}

func (h *APIHandlers) subprocessDetail(c fiber.Ctx, subprocessID int64) error {
	subprocess, err := h.persistence.Subprocesses().GetByID(c.Context(), subprocessID)
	if err != nil {
		if persistence.IsSubprocessNotFound(err) {
			return notFound(c, "Subprocess not found")
		}

		return internalError(c, err)
	}

	latest, err := h.persistence.Movements().Latest(c.Context(), subprocessID)
	if err != nil {
		return internalError(c, err)
	}

	response := fiber.Map{"subprocess": subprocess}
	if latest != nil {
		response["current_unit_id"] = latest.DestinationUnitID
	} else {
		response["current_unit_id"] = subprocess.UnitID
	}

	return c.JSON(response)
}

// GetMovements returns the movement history, newest first.
func (h *APIHandlers) GetMovements(c fiber.Ctx) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	_, err := h.persistence.Subprocesses().GetByID(c.Context(), subprocessID)
	if err != nil {
		if persistence.IsSubprocessNotFound(err) {
			return notFound(c, "Subprocess not found")
		}

		return internalError(c, err)
	}

	movements, err := h.persistence.Movements().BySubprocess(c.Context(), subprocessID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"movements": movements})
}

// GetAnalyses returns the accept/return decision records, newest first.
func (h *APIHandlers) GetAnalyses(c fiber.Ctx) error {
	subprocessID, ok := h.subprocessID(c)
	if !ok {
		return badRequest(c, "Subprocess ID must be a positive integer")
	}

	_, err := h.persistence.Subprocesses().GetByID(c.Context(), subprocessID)
	if err != nil {
		if persistence.IsSubprocessNotFound(err) {
			return notFound(c, "Subprocess not found")
		}

		return internalError(c, err)
	}

	analyses, err := h.persistence.Analyses().BySubprocess(c.Context(), subprocessID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"analyses": analyses})
}

// GetProcessSubprocesses lists a process's subprocesses.
func (h *APIHandlers) GetProcessSubprocesses(c fiber.Ctx) error {
	processID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || processID <= 0 {
		return badRequest(c, "Process ID must be a positive integer")
	}

	_, err = h.persistence.Processes().GetByID(c.Context(), processID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return notFound(c, "Process not found")
		}

		return internalError(c, err)
	}

	subprocesses, err := h.persistence.Subprocesses().ByProcess(c.Context(), processID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"subprocesses": subprocesses})
}

// HealthCheck reports storage health.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

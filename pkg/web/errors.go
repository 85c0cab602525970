package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/sgcbr/sgcflow/pkg/persistence"
	"github.com/sgcbr/sgcflow/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleWorkflowError maps the workflow error taxonomy to HTTP problem
// responses: rejected operations and unmet preconditions are client errors,
// authorization failures are 403, missing aggregates are 404, and structural
// invariant defects stay opaque 500s.
func handleWorkflowError(c fiber.Ctx, err error) error {
	var bulkErr *workflow.BulkError
	if errors.As(err, &bulkErr) {
		return bulkFailure(c, bulkErr)
	}

	switch {
	case workflow.IsInvalidState(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("invalid_state").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case workflow.IsValidationFailed(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("precondition_failed").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case workflow.IsAccessDenied(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("access_denied").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case persistence.IsNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}

// bulkFailure reports a partially-failed bulk operation: the successes stand,
// so the response enumerates only the units that failed.
func bulkFailure(c fiber.Ctx, bulkErr *workflow.BulkError) error {
	failures := make(map[int64]string, len(bulkErr.Failures))
	for code, unitErr := range bulkErr.Failures {
		failures[code] = unitErr.Error()
	}

	problem := problems.NewStatusProblem(422).
		WithInstance(c.Path()).
		WithType("bulk_partial_failure").
		WithDetail(bulkErr.Error())

	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"problem":  problem,
		"failures": failures,
	})
}

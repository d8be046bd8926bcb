package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/profile-service/internal/api/dto"
	"github.com/spec-kit/profile-service/internal/observability"
	apperrors "github.com/spec-kit/profile-service/pkg/util"
)

// ProblemContentType is the media type of error bodies.
const ProblemContentType = "application/problem+json"

// RegisterMiddlewares attaches global middlewares. The request logger wraps the
// error middleware so logged statuses match the rendered problem.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: observability.RequestIDKey,
	}))
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				problem := apperrors.ToProblem(err)
				metrics.RecordError(c.Route().Path, c.Method(), problem.Status)
				if problem.Status >= 500 {
					logger.Error("request failed", zap.Error(problem))
				}
				err = writeProblem(c, problem)
			}
		}()
		return c.Next()
	}
}

func writeProblem(c *fiber.Ctx, problem *apperrors.Problem) error {
	return c.Status(problem.Status).JSON(dto.ProblemResponse{
		Status: problem.Status,
		Title:  problem.Title,
		Detail: problem.Detail,
	}, ProblemContentType)
}

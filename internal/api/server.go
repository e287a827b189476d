// Package api exposes the guardrail check, fact planner, answer pipeline and
// the composed conversation turn over HTTP.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	commonerrors "commerce-answers/internal/common/errors"
	"commerce-answers/internal/common/validation"
	"commerce-answers/internal/turn"
	answerquestion "commerce-answers/internal/workers/answering/answer-question"
	guardrailcheck "commerce-answers/internal/workers/answering/guardrail-check"
	planfactanswer "commerce-answers/internal/workers/answering/plan-fact-answer"
)

type GuardrailChecker interface {
	Execute(ctx context.Context, input *guardrailcheck.Input) (*guardrailcheck.Output, error)
}

type FactPlanner interface {
	Execute(ctx context.Context, input *planfactanswer.Input) (*planfactanswer.Output, error)
}

type Answerer interface {
	Execute(ctx context.Context, input *answerquestion.Input) (*answerquestion.Output, error)
}

type TurnHandler interface {
	Handle(ctx context.Context, req turn.Request) (*turn.Response, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Deps struct {
	Guardrail GuardrailChecker
	Planner   FactPlanner
	Answerer  Answerer
	Turns     TurnHandler
	Logger    Logger

	// RequestTimeout bounds every handler. Defaults to 30s.
	RequestTimeout time.Duration
	Version        string
}

const localeKey = "locale"

type server struct {
	deps Deps
}

// New builds the fiber app with every route registered.
func New(deps Deps) *fiber.App {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	s := &server{deps: deps}

	app := fiber.New(fiber.Config{
		AppName:               "answer-api",
		BodyLimit:             64 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(s.accessLog)

	app.Get("/health", s.health)

	v1 := app.Group("/v1")
	v1.Post("/guardrail/check", s.guardrailCheck)
	v1.Post("/facts/plan", s.planFacts)
	v1.Post("/answer", s.answer)
	v1.Post("/turn", s.turn)

	return app
}

func (s *server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": s.deps.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func (s *server) guardrailCheck(c *fiber.Ctx) error {
	var input guardrailcheck.Input
	if err := s.bind(c, validation.SchemaGuardrailCheck, &input); err != nil {
		return err
	}
	c.Locals(localeKey, input.Lang)

	ctx, cancel := s.context(c)
	defer cancel()

	out, err := s.deps.Guardrail.Execute(ctx, &input)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *server) planFacts(c *fiber.Ctx) error {
	var input planfactanswer.Input
	if err := s.bind(c, validation.SchemaPlanFactAnswer, &input); err != nil {
		return err
	}
	c.Locals(localeKey, input.Lang)

	ctx, cancel := s.context(c)
	defer cancel()

	out, err := s.deps.Planner.Execute(ctx, &input)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *server) answer(c *fiber.Ctx) error {
	var input answerquestion.Input
	if err := s.bind(c, validation.SchemaAnswerQuestion, &input); err != nil {
		return err
	}
	c.Locals(localeKey, input.UserLang)

	ctx, cancel := s.context(c)
	defer cancel()

	out, err := s.deps.Answerer.Execute(ctx, &input)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *server) turn(c *fiber.Ctx) error {
	var req turn.Request
	if err := s.bind(c, validation.SchemaTurn, &req); err != nil {
		return err
	}
	c.Locals(localeKey, req.Lang)

	ctx, cancel := s.context(c)
	defer cancel()

	resp, err := s.deps.Turns.Handle(ctx, req)
	if err != nil {
		return answerquestion.ToStandardError(err)
	}
	return c.JSON(resp)
}

// bind validates the raw body against a schema before decoding it into dst.
func (s *server) bind(c *fiber.Ctx, schema string, dst interface{}) error {
	body := c.Body()
	if len(body) == 0 {
		return commonerrors.NewInvalidInputError("request body is empty")
	}
	res, err := validation.Validate(schema, body)
	if err != nil {
		return commonerrors.NewInvalidInputError(err.Error())
	}
	if !res.Valid {
		return commonerrors.NewInvalidInputError(res.Summary())
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return commonerrors.NewInvalidInputError(err.Error())
	}
	return nil
}

func (s *server) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.deps.RequestTimeout)
}

func (s *server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	s.deps.Logger.Info("request handled", map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     status,
		"latency_ms": time.Since(start).Milliseconds(),
		"requestId":  c.GetRespHeader(fiber.HeaderXRequestID),
	})
	return err
}

// handleError renders every failure as {code, message} with a message in the
// caller's language. Internal details are logged, never returned.
func (s *server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	code := "INTERNAL_ERROR"
	details := err.Error()

	var fe *fiber.Error
	var stdErr *commonerrors.StandardError
	switch {
	case stderrors.As(err, &fe):
		code = fiberCode(fe.Code)
	case stderrors.As(err, &stdErr):
		code = string(stdErr.Code)
		details = stdErr.Details
	}

	if status >= fiber.StatusInternalServerError {
		s.deps.Logger.Error("request failed", map[string]interface{}{
			"path":      c.Path(),
			"code":      code,
			"details":   details,
			"requestId": c.GetRespHeader(fiber.HeaderXRequestID),
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"code":    code,
		"message": userMessage(messageKey(code, status), s.locale(c)),
	})
}

func (s *server) locale(c *fiber.Ctx) string {
	if l, ok := c.Locals(localeKey).(string); ok && l != "" {
		return l
	}
	return acceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
}

func statusFor(err error) int {
	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	var stdErr *commonerrors.StandardError
	if !stderrors.As(err, &stdErr) {
		return fiber.StatusInternalServerError
	}
	switch commonerrors.GetErrorCategory(stdErr.Code) {
	case "VALIDATION":
		return fiber.StatusBadRequest
	case "TIMEOUT":
		return fiber.StatusGatewayTimeout
	case "STORE":
		return fiber.StatusServiceUnavailable
	case "RETRIEVAL", "MODEL", "EXTERNAL":
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return string(commonerrors.ErrCodeInvalidInput)
	}
	if status < fiber.StatusInternalServerError {
		return string(commonerrors.ErrCodeInvalidInput)
	}
	return "INTERNAL_ERROR"
}

func messageKey(code string, status int) string {
	switch {
	case status == fiber.StatusNotFound || status == fiber.StatusMethodNotAllowed:
		return "NOT_FOUND"
	case status < fiber.StatusInternalServerError:
		return string(commonerrors.ErrCodeInvalidInput)
	case code == string(commonerrors.ErrCodeStageTimeout):
		return code
	default:
		return "UNAVAILABLE"
	}
}

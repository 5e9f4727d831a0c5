package server

import (
	"errors"
	"log/slog"

	"maizedigest/app/service/composer"

	"github.com/gofiber/fiber/v2"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxDisposition = `attachment; filename=maize_digest.docx`
)

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing query"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing query"})
	}

	result, err := s.conversationSvc.Answer(c.Context(), req.Query)
	if err != nil {
		slog.Error("Chat request failed", "query", req.Query, "error", err)
		return c.JSON(chatResponse{Error: "Sorry, I couldn't process your request. Please try again."})
	}

	return c.JSON(chatResponse{
		OK:              true,
		Response:        result.Response,
		Sources:         result.Sources,
		HasDigestOption: true,
	})
}

func (s *Server) handleDigest(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing query"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing query"})
	}

	result, err := s.conversationSvc.BuildDigest(c.Context(), req.Query)
	if err != nil {
		var invalid *composer.InvalidOutputError
		if errors.As(err, &invalid) {
			// raw text goes back for diagnostics instead of being discarded
			return c.JSON(digestResponse{Error: invalid.Error(), Raw: invalid.Raw})
		}

		slog.Error("Digest request failed", "query", req.Query, "error", err)
		return c.JSON(digestResponse{Error: "Sorry, there was an error generating the digest."})
	}

	return c.JSON(digestResponse{
		OK:      true,
		Result:  result.Digest,
		Sources: result.Sources,
	})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	blob, err := s.exportSvc.Render(&composer.Digest{
		Executive: req.Executive,
		Opening:   req.Opening,
		Main:      req.Main,
	})
	if err != nil {
		slog.Error("Export request failed", "error", err)
		return c.JSON(fiber.Map{"error": "Sorry, there was an error generating the Word document. Please try again."})
	}

	c.Set(fiber.HeaderContentType, docxContentType)
	c.Set(fiber.HeaderContentDisposition, docxDisposition)

	return c.Send(blob)
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	sess := s.conversationSvc.CreateSession()

	return c.JSON(sessionResponse{
		SessionID: sess.ID(),
		State:     sess.State().String(),
		Messages:  sess.Messages(),
	})
}

func (s *Server) handleSessionMessages(c *fiber.Ctx) error {
	sess, found := s.conversationSvc.Session(c.Params("id"))
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown session"})
	}

	return c.JSON(sessionResponse{
		SessionID: sess.ID(),
		State:     sess.State().String(),
		Messages:  sess.Messages(),
	})
}

func (s *Server) handleSessionMessage(c *fiber.Ctx) error {
	sess, found := s.conversationSvc.Session(c.Params("id"))
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown session"})
	}

	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing text"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing text"})
	}

	turn := s.conversationSvc.HandleUtterance(c.Context(), sess, req.Text)

	return c.JSON(turnResponse{
		State:    sess.State().String(),
		Messages: turn.Messages,
		Document: turn.Document,
	})
}

package server

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/rcliao/memdigest/internal/model"
	"github.com/rcliao/memdigest/internal/store"
)

type createRequest struct {
	Content    string         `json:"content"`
	Importance *int           `json:"importance"`
	Tags       []string       `json:"tags"`
	Metadata   model.Metadata `json:"metadata"`
}

type expandRequest struct {
	Template string `json:"template"`
}

func decodeBody(c *fiber.Ctx, v any) error {
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", model.ErrValidation, err)
	}
	return nil
}

// decodePatch reads a partial update. Absent keys are left unchanged; an
// explicit null clears tags or metadata.
func decodePatch(body []byte) (model.Patch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return model.Patch{}, fmt.Errorf("%w: invalid request body: %v", model.ErrValidation, err)
	}

	var p model.Patch
	for key, raw := range fields {
		var err error
		switch key {
		case "content":
			var v string
			err = json.Unmarshal(raw, &v)
			p.Content = &v
		case "importance":
			var v int
			err = json.Unmarshal(raw, &v)
			p.Importance = &v
		case "tags":
			v := []string{}
			if string(raw) != "null" {
				err = json.Unmarshal(raw, &v)
			}
			p.Tags = &v
		case "metadata":
			var v model.Metadata
			err = json.Unmarshal(raw, &v)
			p.Metadata = &v
		}
		if err != nil {
			return model.Patch{}, fmt.Errorf("%w: field %s: %v", model.ErrValidation, key, err)
		}
	}
	return p, nil
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listMemories(c *fiber.Ctx) error {
	memories, err := s.svc.ListMemories(c.UserContext(), ownerOf(c))
	if err != nil {
		return err
	}
	return c.JSON(memories)
}

func (s *Server) createMemory(c *fiber.Ctx) error {
	var req createRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	m, err := s.svc.AddMemory(c.UserContext(), store.CreateParams{
		Owner:      ownerOf(c),
		Content:    req.Content,
		Importance: req.Importance,
		Tags:       req.Tags,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *Server) getMemory(c *fiber.Ctx) error {
	m, err := s.svc.GetMemory(c.UserContext(), ownerOf(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *Server) updateMemory(c *fiber.Ctx) error {
	patch, err := decodePatch(c.Body())
	if err != nil {
		return err
	}
	m, err := s.svc.UpdateMemory(c.UserContext(), ownerOf(c), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *Server) deleteMemory(c *fiber.Ctx) error {
	if err := s.svc.DeleteMemory(c.UserContext(), ownerOf(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) clearMemories(c *fiber.Ctx) error {
	n, err := s.svc.ClearMemories(c.UserContext(), ownerOf(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": n})
}

func (s *Server) digest(c *fiber.Ctx) error {
	text, err := s.svc.Digest(c.UserContext(), ownerOf(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"digest": text})
}

func (s *Server) expand(c *fiber.Ctx) error {
	var req expandRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	text, err := s.svc.Expand(c.UserContext(), ownerOf(c), req.Template)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"text": text})
}

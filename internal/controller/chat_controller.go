package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"origami-be/internal/dto"
	"origami-be/internal/pkg/serverutils"
	"origami-be/internal/service"
	"origami-be/pkg/agent"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Stream(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("", c.Stream)
}

// Stream runs a research session and streams agent events to the client as
// server-sent events in the AI SDK data stream dialect.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The stream writer runs after the handler returns, so the request
	// context cannot be used; the agent run gets its own.
	runCtx, cancel := context.WithCancel(context.Background())
	events := c.chatService.Stream(runCtx, &req)

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		streamEvents(w, events)
	}))

	return nil
}

// streamEvents translates agent events into the wire protocol the frontend
// speaks: reasoning parts for intermediate steps, one text part for the
// final answer, and data parts for note actions.
func streamEvents(w *bufio.Writer, events <-chan agent.Event) {
	writePart(w, map[string]interface{}{"type": "start"})

	for event := range events {
		switch event.Type {
		case agent.EventSearching, agent.EventReasoning, agent.EventNoteTaking:
			id := uuid.NewString()
			writePart(w, map[string]interface{}{"type": "reasoning-start", "id": id})
			writePart(w, map[string]interface{}{
				"type":  "reasoning-delta",
				"id":    id,
				"delta": fmt.Sprintf("%v", event.Content),
			})
			writePart(w, map[string]interface{}{"type": "reasoning-end", "id": id})

		case agent.EventText:
			id := uuid.NewString()
			writePart(w, map[string]interface{}{"type": "text-start", "id": id})
			writePart(w, map[string]interface{}{
				"type":  "text-delta",
				"id":    id,
				"delta": fmt.Sprintf("%v", event.Content),
			})
			writePart(w, map[string]interface{}{"type": "text-end", "id": id})

		case agent.EventAction:
			writePart(w, map[string]interface{}{
				"type": "data-action",
				"data": event.Content,
			})
		}
		w.Flush()
	}

	writePart(w, map[string]interface{}{"type": "finish"})
	fmt.Fprint(w, "data: [DONE]\n\n")
	w.Flush()
}

func writePart(w *bufio.Writer, part map[string]interface{}) {
	data, err := json.Marshal(part)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

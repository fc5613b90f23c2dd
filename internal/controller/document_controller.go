package controller

import (
	"origami-be/internal/dto"
	"origami-be/internal/pkg/serverutils"
	"origami-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Chunks(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Tags(ctx *fiber.Ctx) error
	SearchChunks(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Get("", c.List)
	h.Get("tags", c.Tags)
	h.Post("search", c.SearchChunks)
	h.Get(":id/chunks", c.Chunks)
	h.Patch(":id", c.Update)
	h.Delete(":id", c.Delete)
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	res, err := c.documentService.List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) Chunks(ctx *fiber.Ctx) error {
	fileId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file id")
	}

	res, err := c.documentService.Chunks(ctx.Context(), fileId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list document chunks", res))
}

func (c *documentController) Update(ctx *fiber.Ctx) error {
	fileId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file id")
	}

	var req dto.UpdateDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := c.documentService.Update(ctx.Context(), fileId, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success update document", nil))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	fileId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file id")
	}

	if err := c.documentService.Delete(ctx.Context(), fileId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete document", nil))
}

func (c *documentController) Tags(ctx *fiber.Ctx) error {
	res, err := c.documentService.Tags(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list tags", res))
}

func (c *documentController) SearchChunks(ctx *fiber.Ctx) error {
	var req dto.SearchChunksRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.SearchChunks(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search chunks", res))
}

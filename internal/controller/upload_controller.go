package controller

import (
	"io"

	"origami-be/internal/dto"
	"origami-be/internal/pkg/serverutils"
	"origami-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUploadController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Confirm(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type uploadController struct {
	uploadService service.IUploadService
}

func NewUploadController(uploadService service.IUploadService) IUploadController {
	return &uploadController{
		uploadService: uploadService,
	}
}

func (c *uploadController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/upload/v1")
	h.Post("", c.Upload)
	h.Post("confirm", c.Confirm)
	h.Get("status/:fileId", c.Status)
}

func (c *uploadController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
	}

	res, err := c.uploadService.Upload(ctx.Context(), fileHeader.Filename, data)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success upload file", res))
}

func (c *uploadController) Confirm(ctx *fiber.Ctx) error {
	var req dto.ConfirmUploadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.uploadService.Confirm(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success confirm upload", res))
}

func (c *uploadController) Status(ctx *fiber.Ctx) error {
	fileId, err := uuid.Parse(ctx.Params("fileId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file id")
	}

	res, err := c.uploadService.Status(ctx.Context(), fileId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get ingest status", res))
}

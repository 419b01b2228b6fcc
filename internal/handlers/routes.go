package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/layersdb/internal/middleware"
	"github.com/localnerve/layersdb/internal/services"
)

// Register mounts the table, field, data and file routes on api. Every route
// resolves the session; all of them require an authenticated user.
func Register(api fiber.Router, svc *services.Service, resolver services.SessionResolver) {
	tables := &TableHandler{Service: svc}
	data := &DataHandler{Service: svc}

	api.Use(middleware.VersionMiddleware())
	api.Use(middleware.Authenticate(resolver))
	api.Use(middleware.RequireUser())

	api.Get("/tables", tables.ListTables)
	api.Post("/tables", tables.CreateTable)
	api.Post("/tables/import", tables.ImportTable)
	api.Get("/tables/:id", tables.GetTable)
	api.Put("/tables/:id", tables.UpdateTable)
	api.Delete("/tables/:id", tables.DeleteTable)
	api.Get("/tables/:id/fields", tables.ListFields)
	api.Post("/tables/:id/fields", tables.AddField)

	api.Get("/fields/:id", tables.GetField)
	api.Put("/fields/:id", tables.RenameField)
	api.Delete("/fields/:id", tables.DeleteField)

	api.Get("/tablesdata/:id/data", data.ListRows)
	api.Post("/tablesdata/:id/data", data.InsertRow)
	api.Get("/tablesdata/:id/data/:row", data.GetRow)
	api.Put("/tablesdata/:id/data/:row", data.UpdateRow)
	api.Delete("/tablesdata/:id/data/:row", data.DeleteRow)
	api.Get("/tablesdata/:id/data/:row/files", data.ListFiles)
	api.Post("/tablesdata/:id/data/:row/files", data.AttachFile)

	api.Get("/files/:id", data.DownloadFile)
	api.Delete("/files/:id", data.DeleteFile)
}

// NotFound answers requests no route matched.
func NotFound(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound, "[404] Resource Not Found")
}

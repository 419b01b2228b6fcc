// data.go
//
// User defined spatial tables over a relational database
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersdb.
// layersdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/layersdb/internal/middleware"
	"github.com/localnerve/layersdb/internal/services"
	"github.com/localnerve/layersdb/internal/utils"
)

// DataHandler handles row and attached file routes
type DataHandler struct {
	Service *services.Service
}

// ListRows handles GET /api/tablesdata/:id/data
// @Summary List rows
// @Tags Data
// @Produce json
// @Param id path int true "Table ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} services.RowPage
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tablesdata/{id}/data [get]
func (h *DataHandler) ListRows(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	page, err := h.Service.ListRows(c.UserContext(), middleware.User(c), id, pageQuery(c))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, page, fiber.StatusOK)
}

// InsertRow handles POST /api/tablesdata/:id/data
// @Summary Insert a row
// @Description Geometry values are GeoJSON geometries
// @Tags Data
// @Accept json
// @Produce json
// @Param id path int true "Table ID"
// @Param row body map[string]interface{} true "Column values"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tablesdata/{id}/data [post]
func (h *DataHandler) InsertRow(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	values := map[string]interface{}{}
	if err := c.BodyParser(&values); err != nil {
		return bodyError(err)
	}
	row, err := h.Service.InsertRow(c.UserContext(), middleware.User(c), id, values)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, row, fiber.StatusCreated)
}

// GetRow handles GET /api/tablesdata/:id/data/:row
// @Summary Get a row
// @Tags Data
// @Produce json
// @Param id path int true "Table ID"
// @Param row path int true "Row ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tablesdata/{id}/data/{row} [get]
func (h *DataHandler) GetRow(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rowID, err := rowParam(c)
	if err != nil {
		return err
	}
	row, err := h.Service.GetRow(c.UserContext(), middleware.User(c), id, rowID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, row, fiber.StatusOK)
}

// UpdateRow handles PUT /api/tablesdata/:id/data/:row
// @Summary Update a row
// @Tags Data
// @Accept json
// @Produce json
// @Param id path int true "Table ID"
// @Param row path int true "Row ID"
// @Param values body map[string]interface{} true "Column values to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tablesdata/{id}/data/{row} [put]
func (h *DataHandler) UpdateRow(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rowID, err := rowParam(c)
	if err != nil {
		return err
	}
	values := map[string]interface{}{}
	if err := c.BodyParser(&values); err != nil {
		return bodyError(err)
	}
	row, err := h.Service.UpdateRow(c.UserContext(), middleware.User(c), id, rowID, values)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, row, fiber.StatusOK)
}

// DeleteRow handles DELETE /api/tablesdata/:id/data/:row
// @Summary Delete a row
// @Description Delete a row and its attached files
// @Tags Data
// @Produce json
// @Param id path int true "Table ID"
// @Param row path int true "Row ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tablesdata/{id}/data/{row} [delete]
func (h *DataHandler) DeleteRow(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rowID, err := rowParam(c)
	if err != nil {
		return err
	}
	if err := h.Service.DeleteRow(c.UserContext(), middleware.User(c), id, rowID); err != nil {
		return err
	}
	return utils.DeletedResponse(c, "row", rowID)
}

// ListFiles handles GET /api/tablesdata/:id/data/:row/files
// @Summary List the files attached to a row
// @Tags Files
// @Produce json
// @Param id path int true "Table ID"
// @Param row path int true "Row ID"
// @Success 200 {array} models.AttachedFile
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tablesdata/{id}/data/{row}/files [get]
func (h *DataHandler) ListFiles(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rowID, err := rowParam(c)
	if err != nil {
		return err
	}
	files, err := h.Service.ListFiles(c.UserContext(), middleware.User(c), id, rowID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, files, fiber.StatusOK)
}

// AttachFile handles POST /api/tablesdata/:id/data/:row/files
// @Summary Attach a file to a row
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Table ID"
// @Param row path int true "Row ID"
// @Param file formData file true "File contents"
// @Success 201 {object} models.AttachedFile
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tablesdata/{id}/data/{row}/files [post]
func (h *DataHandler) AttachFile(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	rowID, err := rowParam(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return bodyError(err)
	}
	body, err := header.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := h.Service.AttachFile(c.UserContext(), middleware.User(c), id, rowID, services.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Body:        body,
	})
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, f, fiber.StatusCreated)
}

// DownloadFile handles GET /api/files/:id
// @Summary Download an attached file
// @Tags Files
// @Produce octet-stream
// @Param id path int true "File ID"
// @Success 200 {file} file
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id} [get]
func (h *DataHandler) DownloadFile(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	f, err := h.Service.GetFile(c.UserContext(), middleware.User(c), id)
	if err != nil {
		return err
	}
	if f.ContentType != "" {
		c.Set(fiber.HeaderContentType, f.ContentType)
	}
	return c.Download(h.Service.FilePath(f), f.OriginalName)
}

// DeleteFile handles DELETE /api/files/:id
// @Summary Delete an attached file
// @Tags Files
// @Produce json
// @Param id path int true "File ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /files/{id} [delete]
func (h *DataHandler) DeleteFile(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.DeleteFile(c.UserContext(), middleware.User(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c, "file", id)
}

// tables.go
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
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/services"
	"github.com/localnerve/layersdb/internal/types"
	"github.com/localnerve/layersdb/internal/utils"
)

// TableHandler handles table and field routes
type TableHandler struct {
	Service *services.Service
}

// TableResponse is a table definition with its resource locators.
type TableResponse struct {
	*models.TableDefinition
	models.Locators
}

func tableResponse(def *models.TableDefinition) TableResponse {
	return TableResponse{TableDefinition: def, Locators: def.Locators()}
}

// ImportRequest is the body of a feature collection import. Features may be
// a single feature or an array.
type ImportRequest struct {
	Name     string                           `json:"name"`
	Type     string                           `json:"type,omitempty"`
	Features types.FlexList[services.Feature] `json:"features"`
}

// ListTables handles GET /api/tables
// @Summary List tables
// @Description List the tables visible to the caller
// @Tags Tables
// @Produce json
// @Success 200 {array} TableResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables [get]
func (h *TableHandler) ListTables(c *fiber.Ctx) error {
	tables, err := h.Service.ListTables(c.UserContext(), middleware.User(c))
	if err != nil {
		return err
	}
	out := make([]TableResponse, len(tables))
	for i := range tables {
		out[i] = tableResponse(&tables[i])
	}
	return utils.SuccessResponse(c, out, fiber.StatusOK)
}

// CreateTable handles POST /api/tables
// @Summary Create a table
// @Description Create a table owned by the caller. A geometry field is added unless one is requested.
// @Tags Tables
// @Accept json
// @Produce json
// @Param table body services.CreateTableInput true "Table definition"
// @Success 201 {object} TableResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables [post]
func (h *TableHandler) CreateTable(c *fiber.Ctx) error {
	var in services.CreateTableInput
	if err := c.BodyParser(&in); err != nil {
		return bodyError(err)
	}
	def, err := h.Service.CreateTableForUser(c.UserContext(), middleware.User(c), in)
	if err != nil {
		return err
	}
	c.Location(def.Locators().ResourceURI)
	return utils.SuccessResponse(c, tableResponse(def), fiber.StatusCreated)
}

// GetTable handles GET /api/tables/:id
// @Summary Get a table
// @Tags Tables
// @Produce json
// @Param id path int true "Table ID"
// @Success 200 {object} TableResponse
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{id} [get]
func (h *TableHandler) GetTable(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	def, err := h.Service.GetTable(c.UserContext(), middleware.User(c), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, tableResponse(def), fiber.StatusOK)
}

// UpdateTable handles PUT /api/tables/:id
// @Summary Rename a table
// @Tags Tables
// @Accept json
// @Produce json
// @Param id path int true "Table ID"
// @Param table body services.UpdateTableInput true "New name"
// @Success 200 {object} TableResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{id} [put]
func (h *TableHandler) UpdateTable(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.UpdateTableInput
	if err := c.BodyParser(&in); err != nil {
		return bodyError(err)
	}
	def, err := h.Service.UpdateTable(c.UserContext(), middleware.User(c), id, in)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, tableResponse(def), fiber.StatusOK)
}

// DeleteTable handles DELETE /api/tables/:id
// @Summary Delete a table
// @Description Drop a table with its fields, rows and attached files
// @Tags Tables
// @Produce json
// @Param id path int true "Table ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{id} [delete]
func (h *TableHandler) DeleteTable(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.DeleteTable(c.UserContext(), middleware.User(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c, "table", id)
}

// ImportTable handles POST /api/tables/import
// @Summary Import a feature collection
// @Description Create a table from GeoJSON features, inferring columns from their properties
// @Tags Tables
// @Accept json
// @Produce json
// @Param collection body ImportRequest true "Feature collection"
// @Param name query string false "Table name, defaults to the collection name"
// @Success 201 {object} services.ImportResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/import [post]
func (h *TableHandler) ImportTable(c *fiber.Ctx) error {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(err)
	}
	fc := services.FeatureCollection{Name: req.Name, Features: req.Features.Slice()}
	res, err := h.Service.ImportCollection(c.UserContext(), middleware.User(c), c.Query("name"), fc)
	if err != nil {
		return err
	}
	c.Location(res.Table.Locators().ResourceURI)
	return utils.SuccessResponse(c, res, fiber.StatusCreated)
}

// ListFields handles GET /api/tables/:id/fields
// @Summary List the fields of a table
// @Tags Fields
// @Produce json
// @Param id path int true "Table ID"
// @Success 200 {array} models.FieldDefinition
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{id}/fields [get]
func (h *TableHandler) ListFields(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	fields, err := h.Service.ListFields(c.UserContext(), middleware.User(c), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fields, fiber.StatusOK)
}

// AddField handles POST /api/tables/:id/fields
// @Summary Add a field
// @Tags Fields
// @Accept json
// @Produce json
// @Param id path int true "Table ID"
// @Param field body services.FieldInput true "Field definition"
// @Success 201 {object} models.FieldDefinition
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{id}/fields [post]
func (h *TableHandler) AddField(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.FieldInput
	if err := c.BodyParser(&in); err != nil {
		return bodyError(err)
	}
	f, err := h.Service.AddField(c.UserContext(), middleware.User(c), id, in)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, f, fiber.StatusCreated)
}

// GetField handles GET /api/fields/:id
// @Summary Get a field
// @Tags Fields
// @Produce json
// @Param id path int true "Field ID"
// @Success 200 {object} models.FieldDefinition
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /fields/{id} [get]
func (h *TableHandler) GetField(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	f, err := h.Service.GetField(c.UserContext(), middleware.User(c), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, f, fiber.StatusOK)
}

// RenameField handles PUT /api/fields/:id
// @Summary Rename a field
// @Tags Fields
// @Accept json
// @Produce json
// @Param id path int true "Field ID"
// @Param field body services.RenameFieldInput true "New name"
// @Success 200 {object} models.FieldDefinition
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /fields/{id} [put]
func (h *TableHandler) RenameField(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.RenameFieldInput
	if err := c.BodyParser(&in); err != nil {
		return bodyError(err)
	}
	f, err := h.Service.RenameField(c.UserContext(), middleware.User(c), id, in)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, f, fiber.StatusOK)
}

// DeleteField handles DELETE /api/fields/:id
// @Summary Delete a field
// @Tags Fields
// @Produce json
// @Param id path int true "Field ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /fields/{id} [delete]
func (h *TableHandler) DeleteField(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.DeleteField(c.UserContext(), middleware.User(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c, "field", id)
}

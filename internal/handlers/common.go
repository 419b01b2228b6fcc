// common.go
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
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"
	"github.com/rs/zerolog/log"

	layererrors "github.com/localnerve/layersdb/internal/errors"
	"github.com/localnerve/layersdb/internal/materializer"
	"github.com/localnerve/layersdb/internal/types"
	"github.com/localnerve/layersdb/internal/utils"
)

// maxPageSize bounds row listings.
const maxPageSize = 1000

// statusFor maps a core error to its HTTP status and error type.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, layererrors.Unauthorized):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, layererrors.Forbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, layererrors.NotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, layererrors.DuplicateName):
		return fiber.StatusConflict, "duplicate_name"
	case errors.Is(err, layererrors.ColumnExists):
		return fiber.StatusConflict, "column_exists"
	case layererrors.IsValidation(err):
		return fiber.StatusBadRequest, "validation"
	}
	return fiber.StatusInternalServerError, "internal"
}

// ErrorHandler renders every error returned by a handler or middleware in
// the JSON error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		ce    *types.CustomError
		fe    *fiber.Error
		ve    *layererrors.ValidationError
		field string
	)
	switch {
	case errors.As(err, &ce):
		return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type, ce.Field)
	case errors.As(err, &fe):
		return utils.ErrorResponse(c, fe.Message, fe.Code, "http", "")
	}

	code, errorType := statusFor(err)
	if errors.As(err, &ve) {
		field = ve.Field
	}
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("url", c.OriginalURL()).Msg("request failed")
		message = "internal error"
	}
	return utils.ErrorResponse(c, message, code, errorType, field)
}

// idParam parses a positive numeric path parameter.
func idParam(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &types.CustomError{
			Code:    fiber.StatusBadRequest,
			Message: "invalid " + name,
			Type:    "validation",
			Field:   name,
		}
	}
	return id, nil
}

// rowParam parses the row identifier path parameter.
func rowParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("row"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &types.CustomError{
			Code:    fiber.StatusBadRequest,
			Message: "invalid row",
			Type:    "validation",
			Field:   "row",
		}
	}
	return id, nil
}

// pageQuery reads limit and offset from the query string.
func pageQuery(c *fiber.Ctx) materializer.Page {
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return materializer.Page{Limit: limit, Offset: offset}
}

// bodyError reports a request body that cannot be decoded.
func bodyError(err error) error {
	return &types.CustomError{
		Code:    fiber.StatusBadRequest,
		Message: "invalid request body: " + err.Error(),
		Type:    "validation",
	}
}

// common.go
//
// Business process backend for immigration and company formation services
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of bizflow.
// bizflow is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// bizflow is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with bizflow.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/bizflow/internal/middleware"
	"github.com/localnerve/bizflow/internal/services"
	"github.com/localnerve/bizflow/internal/types"
)

// identity returns the authenticated caller; routes are mounted behind Authenticate
func identity(c *fiber.Ctx) (services.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return services.Identity{}, types.Unauthorized("Authentication required")
	}
	return id, nil
}

// parsePage reads page and limit query parameters
func parsePage(c *fiber.Ctx) services.Page {
	return services.Page{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 20),
	}
}

// parseIndex reads a non-negative integer path parameter
func parseIndex(c *fiber.Ctx, name string) (int, error) {
	idx, err := strconv.Atoi(c.Params(name))
	if err != nil || idx < 0 {
		return 0, types.NotFound("Installment not found")
	}
	return idx, nil
}

// bindJSON decodes the request body into out, mapping syntax errors to a 400
func bindJSON(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return types.Validation("validation.body", "Request body is required", nil)
	}
	if err := json.Unmarshal(c.Body(), out); err != nil {
		return types.Validation("validation.body", "Request body is not valid JSON", nil)
	}
	return nil
}

// isMultipart reports whether the request carries a multipart form
func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// openUploads opens every file header; the returned closer releases them all
func openUploads(files []*multipart.FileHeader) ([]services.Upload, func(), error) {
	opened := make([]io.Closer, 0, len(files))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, types.Validation("validation.file", "Unreadable upload",
				map[string]string{fh.Filename: "could not be read"})
		}
		opened = append(opened, f)
		uploads = append(uploads, services.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Reader:      f,
		})
	}
	return uploads, closeAll, nil
}

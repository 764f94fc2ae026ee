// data_service.go
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

package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page is a 1-based page request
type Page struct {
	Page  int
	Limit int
}

// normalize clamps the request to sane bounds
func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

// PageResult is a page of items plus the total count before paging
type PageResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// paginate applies offset and limit for p
func paginate(p Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
	}
}

// validID reports whether id is a well formed UUID; malformed ids are treated as not found
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// lockRows takes an update lock on the rows read from table until the transaction ends.
// SQL Server has no FOR UPDATE and takes a table hint instead; sqlite locks the whole
// database on write so it gets nothing.
func lockRows(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch db.Dialector.Name() {
		case "sqlite":
			return db
		case "sqlserver":
			return db.Table(table + " WITH (UPDLOCK, ROWLOCK)")
		default:
			return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
		}
	}
}

// loadApplication fetches an application with its assignments, optionally locking the row
func loadApplication(tx *gorm.DB, id string, lock bool) (*models.Application, error) {
	if !validID(id) {
		return nil, types.NotFound("Application not found")
	}

	q := tx.Preload("Assignments")
	if lock {
		q = q.Scopes(lockRows("applications"))
	}

	var app models.Application
	if err := q.Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Application not found")
		}
		return nil, types.Internal("load application", err)
	}
	return &app, nil
}

// loadPayment fetches a payment with its installments ordered by index
func loadPayment(tx *gorm.DB, id string, lock bool) (*models.Payment, error) {
	if !validID(id) {
		return nil, types.NotFound("Payment not found")
	}

	q := tx.Preload("Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	})
	if lock {
		q = q.Scopes(lockRows("payments"))
	}

	var payment models.Payment
	if err := q.Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Payment not found")
		}
		return nil, types.Internal("load payment", err)
	}
	return &payment, nil
}

// staffIDs returns the ids of every user holding role
func staffIDs(db *gorm.DB, role models.Role) ([]string, error) {
	var ids []string
	err := db.Model(&models.User{}).Where("role = ?", role).Pluck("id", &ids).Error
	return ids, err
}

// scopeApplications restricts an application query to what caller may see
func scopeApplications(caller Identity) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch caller.Role {
		case models.RoleAdmin:
			return db
		case models.RoleEmployee:
			return db.Where("id IN (?)",
				db.Session(&gorm.Session{NewDB: true}).
					Model(&models.Assignment{}).
					Select("application_id").
					Where("employee_id = ?", caller.ID))
		default:
			return db.Where("client_id = ?", caller.ID)
		}
	}
}

// uniqueIDs drops empties and duplicates while keeping order
func uniqueIDs(groups ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, group := range groups {
		for _, id := range group {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// without returns ids minus exclude
func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}

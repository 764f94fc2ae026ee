// timeline.go
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
	"context"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/localnerve/bizflow/internal/types"
	"gorm.io/gorm"
)

// Timeline appends and reads the per-application audit trail
type Timeline struct {
	db *gorm.DB
}

// NewTimeline creates a timeline recorder
func NewTimeline(db *gorm.DB) *Timeline {
	return &Timeline{db: db}
}

// Record appends one entry inside the caller's transaction
func (t *Timeline) Record(tx *gorm.DB, applicationID string, status models.ApplicationStatus, note string, progress int, authorID string) (*models.TimelineEntry, error) {
	entry := &models.TimelineEntry{
		ApplicationID: applicationID,
		Status:        status,
		Note:          note,
		Progress:      progress,
		AuthorID:      authorID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the entries for an application, oldest first
func (t *Timeline) List(ctx context.Context, applicationID string) ([]models.TimelineEntry, error) {
	entries := make([]models.TimelineEntry, 0)
	err := t.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, types.Internal("list timeline", err)
	}
	return entries, nil
}

// data_delete.go
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
	"github.com/localnerve/bizflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DeleteCounts reports rows removed by a cascading delete
type DeleteCounts struct {
	Applications  int64 `json:"applications"`
	Documents     int64 `json:"documents"`
	Timeline      int64 `json:"timeline"`
	Installments  int64 `json:"installments"`
	Payments      int64 `json:"payments"`
	Tasks         int64 `json:"tasks"`
	Messages      int64 `json:"messages"`
	Assignments   int64 `json:"assignments"`
	Notifications int64 `json:"notifications"`
	Tickets       int64 `json:"tickets"`
}

// deleteApplications removes applications and every dependent row.
// Children go first so foreign keys never dangle; tx must be a transaction.
func deleteApplications(tx *gorm.DB, applicationIDs []string, counts *DeleteCounts) error {
	if len(applicationIDs) == 0 {
		return nil
	}

	quiet := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)})

	var paymentIDs []string
	if err := quiet.Model(&models.Payment{}).
		Where("application_id IN ?", applicationIDs).
		Pluck("id", &paymentIDs).Error; err != nil {
		return err
	}

	steps := []struct {
		model   interface{}
		column  string
		ids     []string
		counter *int64
	}{
		{&models.Document{}, "application_id", applicationIDs, &counts.Documents},
		{&models.TimelineEntry{}, "application_id", applicationIDs, &counts.Timeline},
		{&models.Installment{}, "payment_id", paymentIDs, &counts.Installments},
		{&models.Payment{}, "application_id", applicationIDs, &counts.Payments},
		{&models.Task{}, "application_id", applicationIDs, &counts.Tasks},
		{&models.Message{}, "application_id", applicationIDs, &counts.Messages},
		{&models.Assignment{}, "application_id", applicationIDs, &counts.Assignments},
		{&models.Application{}, "id", applicationIDs, &counts.Applications},
	}

	for _, step := range steps {
		if len(step.ids) == 0 {
			continue
		}
		result := tx.Where(step.column+" IN ?", step.ids).Delete(step.model)
		if result.Error != nil {
			return result.Error
		}
		*step.counter += result.RowsAffected
	}

	return nil
}

// deleteUserCascade removes a user and everything that belongs to them.
// A client's applications go with them; a staff member loses assignments and tasks only.
func deleteUserCascade(tx *gorm.DB, user *models.User) (DeleteCounts, error) {
	var counts DeleteCounts

	if user.Role == models.RoleClient {
		var applicationIDs []string
		if err := tx.Model(&models.Application{}).
			Where("client_id = ?", user.ID).
			Pluck("id", &applicationIDs).Error; err != nil {
			return counts, err
		}
		if err := deleteApplications(tx, applicationIDs, &counts); err != nil {
			return counts, err
		}

		result := tx.Where("client_id = ?", user.ID).Delete(&models.Ticket{})
		if result.Error != nil {
			return counts, result.Error
		}
		counts.Tickets = result.RowsAffected
	} else {
		result := tx.Where("employee_id = ?", user.ID).Delete(&models.Assignment{})
		if result.Error != nil {
			return counts, result.Error
		}
		counts.Assignments = result.RowsAffected

		result = tx.Where("employee_id = ?", user.ID).Delete(&models.Task{})
		if result.Error != nil {
			return counts, result.Error
		}
		counts.Tasks = result.RowsAffected
	}

	result := tx.Where("user_id = ?", user.ID).Delete(&models.Notification{})
	if result.Error != nil {
		return counts, result.Error
	}
	counts.Notifications = result.RowsAffected

	if err := tx.Delete(user).Error; err != nil {
		return counts, err
	}

	return counts, nil
}

// application.go
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

package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExternalCompany is a shareholder company attached to a formation request
type ExternalCompany struct {
	Name         string  `json:"name"`
	Country      string  `json:"country,omitempty"`
	SharePercent float64 `json:"sharePercent,omitempty"`
}

// FamilyMember is a dependant included in a visa request
type FamilyMember struct {
	Name           string `json:"name"`
	Relationship   string `json:"relationship,omitempty"`
	PassportNumber string `json:"passportNumber,omitempty"`
}

// ServiceDetails holds the service-specific part of an application
type ServiceDetails struct {
	CompanyName       string            `json:"companyName,omitempty"`
	Activities        []string          `json:"activities,omitempty"`
	NeedVirtualOffice bool              `json:"needVirtualOffice"`
	ExternalCompanies []ExternalCompany `json:"externalCompanies,omitempty"`
	FamilyMembers     []FamilyMember    `json:"familyMembers,omitempty"`
	Notes             string            `json:"notes,omitempty"`
}

// Application is a client's service request moving through the status lifecycle
type Application struct {
	Base
	ClientID            string                             `gorm:"type:char(36);not null;index" json:"clientId"`
	Client              *User                              `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ServiceType         ServiceType                        `gorm:"size:32;not null;index" json:"serviceType"`
	Status              ApplicationStatus                  `gorm:"size:32;not null;index" json:"status"`
	Progress            int                                `gorm:"not null" json:"progress"`
	Priority            Priority                           `gorm:"size:16;not null" json:"priority"`
	ApprovedBy          *string                            `gorm:"type:char(36)" json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time                         `json:"approvedAt,omitempty"`
	RejectionReason     string                             `gorm:"type:text" json:"rejectionReason,omitempty"`
	InternalNotes       string                             `gorm:"type:text" json:"internalNotes,omitempty"`
	EstimatedCompletion *time.Time                         `json:"estimatedCompletion,omitempty"`
	Details             datatypes.JSONType[ServiceDetails] `json:"details"`
	Assignments         []Assignment                       `gorm:"foreignKey:ApplicationID" json:"assignedEmployees"`
}

// TableName overrides the table name for Application
func (Application) TableName() string {
	return "applications"
}

// AssigneeIDs returns the ids of the currently assigned employees
func (a *Application) AssigneeIDs() []string {
	ids := make([]string, 0, len(a.Assignments))
	for _, as := range a.Assignments {
		ids = append(ids, as.EmployeeID)
	}
	return ids
}

// IsAssigned reports whether userID is on the assigned-employee list
func (a *Application) IsAssigned(userID string) bool {
	for _, as := range a.Assignments {
		if as.EmployeeID == userID {
			return true
		}
	}
	return false
}

// Assignment attaches a staff user to an application
type Assignment struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	ApplicationID string    `gorm:"type:char(36);not null;index:idx_assignment_pair,unique" json:"applicationId"`
	EmployeeID    string    `gorm:"type:char(36);not null;index:idx_assignment_pair,unique;index" json:"employeeId"`
	Employee      *User     `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Task          string    `gorm:"size:255" json:"task"`
	AssignedBy    string    `gorm:"type:char(36)" json:"assignedBy"`
	AssignedAt    time.Time `gorm:"not null" json:"assignedAt"`
}

// TableName overrides the table name for Assignment
func (Assignment) TableName() string {
	return "application_assignments"
}

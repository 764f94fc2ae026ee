// payment.go
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

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is the single logical payment attached to an application
type Payment struct {
	Base
	ApplicationID   string          `gorm:"type:char(36);not null;index" json:"applicationId"`
	ClientID        string          `gorm:"type:char(36);not null;index" json:"clientId"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"totalAmount"`
	Plan            PaymentPlan     `gorm:"size:16" json:"plan,omitempty"`
	Status          PaymentStatus   `gorm:"size:16;not null;index" json:"status"`
	Method          string          `gorm:"size:64" json:"method,omitempty"`
	ReceiptURL      string          `gorm:"size:1024" json:"receiptUrl,omitempty"`
	DueDate         time.Time       `json:"dueDate"`
	SubmittedAt     *time.Time      `json:"submittedAt,omitempty"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	VerifiedBy      *string         `gorm:"type:char(36)" json:"verifiedBy,omitempty"`
	VerifiedAt      *time.Time      `json:"verifiedAt,omitempty"`
	RejectionReason string          `gorm:"type:text" json:"rejectionReason,omitempty"`
	LastRemindedAt  *time.Time      `json:"-"`
	Installments    []Installment   `gorm:"foreignKey:PaymentID" json:"installments,omitempty"`
}

// TableName overrides the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// AllInstallmentsApproved reports whether every installment is approved
func (p *Payment) AllInstallmentsApproved() bool {
	if len(p.Installments) == 0 {
		return false
	}
	for _, inst := range p.Installments {
		if inst.Status != PaymentApproved {
			return false
		}
	}
	return true
}

// Installment is one partial payment under the installments plan
type Installment struct {
	ID              string          `gorm:"type:char(36);primaryKey" json:"id"`
	PaymentID       string          `gorm:"type:char(36);not null;index:idx_installment_seq,unique" json:"paymentId"`
	Index           int             `gorm:"column:seq;not null;index:idx_installment_seq,unique" json:"index"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status          PaymentStatus   `gorm:"size:16;not null" json:"status"`
	ReceiptURL      string          `gorm:"size:1024" json:"receiptUrl,omitempty"`
	DueDate         time.Time       `json:"dueDate"`
	SubmittedAt     *time.Time      `json:"submittedAt,omitempty"`
	VerifiedBy      *string         `gorm:"type:char(36)" json:"verifiedBy,omitempty"`
	VerifiedAt      *time.Time      `json:"verifiedAt,omitempty"`
	RejectionReason string          `gorm:"type:text" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// TableName overrides the table name for Installment
func (Installment) TableName() string {
	return "payment_installments"
}

// BeforeCreate assigns a UUID when the caller did not
func (i *Installment) BeforeCreate(_ *gorm.DB) error {
	newID(&i.ID)
	return nil
}

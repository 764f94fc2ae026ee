package models

// ApplicationStatus is the lifecycle position of an Application
type ApplicationStatus string

const (
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusInProcess   ApplicationStatus = "in_process"
	StatusCompleted   ApplicationStatus = "completed"
	StatusRejected    ApplicationStatus = "rejected"
)

// AllStatuses lists every lifecycle status in order
var AllStatuses = []ApplicationStatus{
	StatusSubmitted, StatusUnderReview, StatusApproved, StatusInProcess, StatusCompleted, StatusRejected,
}

// progressByStatus is the single progress table for timeline entries
var progressByStatus = map[ApplicationStatus]int{
	StatusSubmitted:   10,
	StatusUnderReview: 25,
	StatusApproved:    50,
	StatusInProcess:   75,
	StatusCompleted:   100,
	StatusRejected:    0,
}

// manualTransitions are the moves staff may make by hand.
// approved -> in_process is reserved for payment verification.
var manualTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusSubmitted:   {StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusInProcess:   {StatusCompleted},
}

// Valid reports whether s is one of the six lifecycle values
func (s ApplicationStatus) Valid() bool {
	_, ok := progressByStatus[s]
	return ok
}

// Progress returns the percentage recorded on timeline entries for s
func (s ApplicationStatus) Progress() int {
	return progressByStatus[s]
}

// Terminal reports whether no further transition is possible
func (s ApplicationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Reviewable reports whether s may move to approved or rejected
func (s ApplicationStatus) Reviewable() bool {
	return s == StatusSubmitted || s == StatusUnderReview
}

// CanTransitionTo reports whether staff may move an application from s to next.
// Rewriting the current status is allowed so employees can log progress notes.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range manualTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ServiceType is one of the firm's service offerings
type ServiceType string

const (
	ServiceCommercial   ServiceType = "commercial"
	ServiceIndustrial   ServiceType = "industrial"
	ServiceProfessional ServiceType = "professional"
	ServiceFreezone     ServiceType = "freezone"
	ServiceInvestorVisa ServiceType = "investor_visa"
	ServiceFamilyVisa   ServiceType = "family_visa"
	ServiceGoldenVisa   ServiceType = "golden_visa"
)

// AllServiceTypes lists the seven offerings
var AllServiceTypes = []ServiceType{
	ServiceCommercial, ServiceIndustrial, ServiceProfessional, ServiceFreezone,
	ServiceInvestorVisa, ServiceFamilyVisa, ServiceGoldenVisa,
}

// Valid reports whether t is a known service type
func (t ServiceType) Valid() bool {
	for _, known := range AllServiceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Role gates which endpoints and transitions a user may use
type Role string

const (
	RoleClient   Role = "client"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleEmployee || r == RoleAdmin
}

// IsStaff reports whether r may be assigned to applications
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// PaymentStatus tracks a payment or installment through verification
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSubmitted PaymentStatus = "submitted"
	PaymentApproved  PaymentStatus = "approved"
	PaymentRejected  PaymentStatus = "rejected"
)

// PaymentPlan is how the client settles the total
type PaymentPlan string

const (
	PlanFull         PaymentPlan = "full"
	PlanInstallments PaymentPlan = "installments"
)

// Valid reports whether p is a known plan
func (p PaymentPlan) Valid() bool {
	return p == PlanFull || p == PlanInstallments
}

// NotificationType is the dashboard severity of a notification
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Priority controls whether a notification also goes out by email/SMS
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTable(t *testing.T) {
	expected := map[ApplicationStatus]int{
		StatusSubmitted:   10,
		StatusUnderReview: 25,
		StatusApproved:    50,
		StatusInProcess:   75,
		StatusCompleted:   100,
		StatusRejected:    0,
	}
	for status, progress := range expected {
		assert.Equal(t, progress, status.Progress(), string(status))
	}
	assert.Len(t, AllStatuses, 6)
}

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, ApplicationStatus("done").Valid())
	assert.False(t, ApplicationStatus("").Valid())
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to ApplicationStatus
		allowed  bool
	}{
		{StatusSubmitted, StatusUnderReview, true},
		{StatusSubmitted, StatusApproved, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusUnderReview, StatusSubmitted, false},
		{StatusApproved, StatusInProcess, false},
		{StatusApproved, StatusRejected, false},
		{StatusInProcess, StatusCompleted, true},
		{StatusCompleted, StatusInProcess, false},
		{StatusRejected, StatusApproved, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusSubmitted, ApplicationStatus("bogus"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestServiceTypesAndRoles(t *testing.T) {
	assert.Len(t, AllServiceTypes, 7)
	assert.True(t, ServiceGoldenVisa.Valid())
	assert.False(t, ServiceType("llc").Valid())

	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleEmployee.IsStaff())
	assert.False(t, RoleClient.IsStaff())
	assert.False(t, Role("root").Valid())
}

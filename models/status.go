package models

import "fmt"

// ReportStatus is the lifecycle state of a rescue case.
type ReportStatus string

const (
	StatusSubmitted      ReportStatus = "SUBMITTED"
	StatusSearchingHelp  ReportStatus = "SEARCHING_FOR_HELP"
	StatusHelpOnTheWay   ReportStatus = "HELP_ON_THE_WAY"
	StatusTeamDispatched ReportStatus = "TEAM_DISPATCHED"
	StatusAnimalRescued  ReportStatus = "ANIMAL_RESCUED"
	StatusCaseResolved   ReportStatus = "CASE_RESOLVED"
)

// StatusOrder lists the lifecycle states in their forward order.
var StatusOrder = []ReportStatus{
	StatusSubmitted,
	StatusSearchingHelp,
	StatusHelpOnTheWay,
	StatusTeamDispatched,
	StatusAnimalRescued,
	StatusCaseResolved,
}

var statusDisplayNames = map[ReportStatus]string{
	StatusSubmitted:      "Report Submitted",
	StatusSearchingHelp:  "Searching for Help",
	StatusHelpOnTheWay:   "Help is on the Way",
	StatusTeamDispatched: "Team Dispatched",
	StatusAnimalRescued:  "Animal Rescued",
	StatusCaseResolved:   "Case Resolved",
}

// ParseReportStatus converts a wire string into a ReportStatus. Unknown
// values are rejected rather than round-tripped.
func ParseReportStatus(s string) (ReportStatus, error) {
	for _, st := range StatusOrder {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown report status %q", s)
}

// Ordinal returns the position of the status in the forward order.
func (s ReportStatus) Ordinal() int {
	for i, st := range StatusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// DisplayName returns the human readable form of the status.
func (s ReportStatus) DisplayName() string {
	return statusDisplayNames[s]
}

// Claimable reports with one of these statuses are still open for
// acceptance by an organization.
func (s ReportStatus) Claimable() bool {
	return s == StatusSubmitted || s == StatusSearchingHelp
}

// VerificationStatus is the admin review state of an organization.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// ParseVerificationStatus converts a wire string into a VerificationStatus.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch VerificationStatus(s) {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return VerificationStatus(s), nil
	}
	return "", fmt.Errorf("unknown verification status %q", s)
}

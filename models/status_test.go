package models

import "testing"

func TestParseReportStatus(t *testing.T) {
	testCases := []struct {
		name  string
		input string

		want        ReportStatus
		expectError bool
	}{
		{name: "Submitted", input: "SUBMITTED", want: StatusSubmitted},
		{name: "Case resolved", input: "CASE_RESOLVED", want: StatusCaseResolved},
		{name: "Lowercase rejected", input: "submitted", expectError: true},
		{name: "Unknown rejected", input: "LOST", expectError: true},
		{name: "Empty rejected", input: "", expectError: true},
	}

	for _, testCase := range testCases {
		got, err := ParseReportStatus(testCase.input)
		if testCase.expectError != (err != nil) {
			t.Errorf("%s: expected error: %v, got error: %v", testCase.name, testCase.expectError, err)
		}
		if err == nil && got != testCase.want {
			t.Errorf("%s: ParseReportStatus(%q) = %q, want %q", testCase.name, testCase.input, got, testCase.want)
		}
	}
}

func TestStatusOrdinalOrder(t *testing.T) {
	for i, st := range StatusOrder {
		if st.Ordinal() != i {
			t.Errorf("Ordinal(%s) = %d, want %d", st, st.Ordinal(), i)
		}
	}
	if ReportStatus("LOST").Ordinal() != -1 {
		t.Errorf("Ordinal of unknown status should be -1")
	}
}

func TestClaimable(t *testing.T) {
	claimable := map[ReportStatus]bool{
		StatusSubmitted:     true,
		StatusSearchingHelp: true,
	}
	for _, st := range StatusOrder {
		if st.Claimable() != claimable[st] {
			t.Errorf("Claimable(%s) = %v, want %v", st, st.Claimable(), claimable[st])
		}
	}
}

func TestDisplayNames(t *testing.T) {
	for _, st := range StatusOrder {
		if st.DisplayName() == "" {
			t.Errorf("DisplayName(%s) is empty", st)
		}
	}
}

func TestParseVerificationStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "APPROVED", "REJECTED"} {
		if _, err := ParseVerificationStatus(s); err != nil {
			t.Errorf("ParseVerificationStatus(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseVerificationStatus("MAYBE"); err == nil {
		t.Errorf("ParseVerificationStatus accepted an unknown value")
	}
}

package services

import (
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
)

// CanViewDepartmentResults decides whether requester may read every result of
// the department the assignment targets. Admins always may; managers only for
// their own department and only when the assignment allows manager view.
func CanViewDepartmentResults(requester models.Requester, assignment *models.Assignment) error {
	if requester.IsAdmin() {
		return nil
	}

	var (
		resourceID uint
		reason     string
	)
	if assignment != nil {
		resourceID = assignment.AssessmentID
	}

	switch {
	case !requester.IsManager():
		reason = "only managers and admins may view department results"
	case assignment == nil:
		reason = "assessment is not assigned to the manager's department"
	case !requester.InDepartment(assignment.DepartmentID):
		reason = "department belongs to another manager"
	case !assignment.AllowManagerView:
		reason = "manager view is disabled for this assignment"
	default:
		return nil
	}
	return NewPermissionError(requester.UserID, resourceID, "results", "view", reason)
}

// CanViewResult reports whether requester may see a single result row owned by
// ownerID. assignment is the owner department's assignment of the assessment,
// nil when there is none.
func CanViewResult(requester models.Requester, ownerID string, ownerDepartmentID *uint, assignment *models.Assignment) bool {
	if requester.IsAdmin() || requester.UserID == ownerID {
		return true
	}
	if !requester.IsManager() || ownerDepartmentID == nil || assignment == nil {
		return false
	}
	return assignment.DepartmentID == *ownerDepartmentID && CanViewDepartmentResults(requester, assignment) == nil
}

// OwnRecordsOnly reports whether requester is limited to their own results
// when listing an assessment. Managers without a department fall back to it.
func OwnRecordsOnly(requester models.Requester) bool {
	return !requester.IsAdmin() && (!requester.IsManager() || requester.DepartmentID == nil)
}

// ResultPayloadVisible gates score and payload on the completer's own view
func ResultPayloadVisible(assessment *models.Assessment) bool {
	return assessment != nil && assessment.ShowResults
}

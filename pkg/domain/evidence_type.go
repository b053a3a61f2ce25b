package domain

// EvidenceType names a category of input record delivered by an external
// integration sync. The set is closed: values outside the registry map to
// CategoryUnknown and are ignored by the correlation engine, because
// integrations introduce new types faster than this engine is updated.
type EvidenceType string

const (
	EvidenceEmployeeRoster     EvidenceType = "employee_roster"
	EvidenceOrgChart           EvidenceType = "org_chart"
	EvidenceEmploymentStatus   EvidenceType = "employment_status"
	EvidenceOnboardingStatus   EvidenceType = "onboarding_status"
	EvidenceOffboardingStatus  EvidenceType = "offboarding_status"
	EvidenceBackgroundChecks   EvidenceType = "background_check_results"
	EvidenceScreeningStatus    EvidenceType = "screening_status"
	EvidenceTrainingAssigned   EvidenceType = "training_assignments"
	EvidenceTrainingCompleted  EvidenceType = "training_completions"
	EvidencePhishingResults    EvidenceType = "phishing_test_results"
	EvidenceSecurityAwareness  EvidenceType = "security_awareness_score"
	EvidenceUserTrainingStatus EvidenceType = "user_training_status"
	EvidenceDeviceInventory    EvidenceType = "device_inventory"
	EvidenceDeviceAssignments  EvidenceType = "device_assignments"
	EvidenceDeviceCompliance   EvidenceType = "device_compliance"
	EvidenceUserAccessList     EvidenceType = "user_access_list"
	EvidenceAccessReviewStatus EvidenceType = "access_review_status"
	EvidenceAppAssignments     EvidenceType = "app_assignments"
	EvidenceMFAStatus          EvidenceType = "mfa_status"
)

// EvidenceCategory groups evidence types by the handler that consumes them.
type EvidenceCategory string

const (
	CategoryUnknown         EvidenceCategory = ""
	CategoryRoster          EvidenceCategory = "roster"
	CategoryBackgroundCheck EvidenceCategory = "background_check"
	CategoryTraining        EvidenceCategory = "training"
	CategoryDevice          EvidenceCategory = "device"
	CategoryAccess          EvidenceCategory = "access"
	CategorySecurityScore   EvidenceCategory = "security_score"
)

// evidenceCategories is the single source of truth for the evidence registry.
var evidenceCategories = map[EvidenceType]EvidenceCategory{
	EvidenceEmployeeRoster:     CategoryRoster,
	EvidenceOrgChart:           CategoryRoster,
	EvidenceEmploymentStatus:   CategoryRoster,
	EvidenceOnboardingStatus:   CategoryRoster,
	EvidenceOffboardingStatus:  CategoryRoster,
	EvidenceBackgroundChecks:   CategoryBackgroundCheck,
	EvidenceScreeningStatus:    CategoryBackgroundCheck,
	EvidenceTrainingAssigned:   CategoryTraining,
	EvidenceTrainingCompleted:  CategoryTraining,
	EvidenceUserTrainingStatus: CategoryTraining,
	EvidencePhishingResults:    CategorySecurityScore,
	EvidenceSecurityAwareness:  CategorySecurityScore,
	EvidenceDeviceInventory:    CategoryDevice,
	EvidenceDeviceAssignments:  CategoryDevice,
	EvidenceDeviceCompliance:   CategoryDevice,
	EvidenceUserAccessList:     CategoryAccess,
	EvidenceAccessReviewStatus: CategoryAccess,
	EvidenceAppAssignments:     CategoryAccess,
	EvidenceMFAStatus:          CategoryAccess,
}

// Category returns the handler category for an evidence type, or
// CategoryUnknown when the type is not in the registry.
func (t EvidenceType) Category() EvidenceCategory {
	return evidenceCategories[t]
}

// IsRecognized reports whether the evidence type is part of the registry.
func (t EvidenceType) IsRecognized() bool {
	_, ok := evidenceCategories[t]
	return ok
}

func (t EvidenceType) String() string {
	return string(t)
}

package domain

// ComplianceBucket classifies an employee's compliance score for filtering
// and reporting. The 80 threshold is the single "compliant" line used across
// the listing filters and the organization compliance rate.
type ComplianceBucket string

const (
	BucketCompliant    ComplianceBucket = "compliant"     // score >= 80
	BucketAtRisk       ComplianceBucket = "at_risk"       // 60 <= score < 80
	BucketNonCompliant ComplianceBucket = "non_compliant" // score < 60
)

// CompliantThreshold is the minimum score considered compliant.
const CompliantThreshold = 80

// BucketForScore maps a 0-100 score to its compliance bucket.
func BucketForScore(score int) ComplianceBucket {
	switch {
	case score >= CompliantThreshold:
		return BucketCompliant
	case score >= 60:
		return BucketAtRisk
	default:
		return BucketNonCompliant
	}
}

// IsValid checks if the bucket is one of the supported enum values.
func (b ComplianceBucket) IsValid() bool {
	switch b {
	case BucketCompliant, BucketAtRisk, BucketNonCompliant:
		return true
	}
	return false
}

func (b ComplianceBucket) String() string {
	return string(b)
}

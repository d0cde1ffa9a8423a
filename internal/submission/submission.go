// Package submission holds the typed model of the three benefit-application
// variants the gateway accepts, the parser that turns raw payloads into it,
// and the validation rules applied before a submission enters the pipeline.
package submission

// SubmissionID identifies one submission for its whole lifetime. It is minted
// at the intake boundary and doubles as the broker partition key.
type SubmissionID string

// ApplicantID is the internal actor identifier of the applicant, resolved
// upstream from the national identity number. The gateway only checks that it
// is well formed.
type ApplicantID string

// Role names an attachment-bearing field of a submission payload.
type Role string

// Attachment roles across the three variants.
const (
	RoleMedicalCertificate    Role = "medicalCertificate"
	RoleCohabitationAgreement Role = "cohabitationAgreement"
	RoleAttachments           Role = "attachments"
)

// Payload keys shared by all variants.
const (
	keySubmissionID = "submissionId"
	keyApplicant    = "applicant"
	keyActorID      = "actorId"
	keyContent      = "content"
	keyContentType  = "contentType"
	keyTitle        = "title"
)

// DefaultAttachmentTitle replaces caller-supplied titles on the follow-up
// variant. Callers on that path are not expected to supply meaningful titles.
const DefaultAttachmentTitle = "Follow-up attachment"

// Attachment is one caller-supplied binary document. Identity is structural:
// two attachments with equal content, content type and title are the same
// document.
type Attachment struct {
	Content     []byte `json:"content"`
	ContentType string `json:"contentType"`
	Title       string `json:"title"`
}

// Equal reports structural equality over all three fields.
func (a Attachment) Equal(b Attachment) bool {
	if a.ContentType != b.ContentType || a.Title != b.Title || len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if a.Content[i] != b.Content[i] {
			return false
		}
	}
	return true
}

// RoleSpec describes one attachment role of a variant. Mandatory roles must
// carry at least one attachment to pass validation; every role must be present
// as an array in the payload to parse at all.
type RoleSpec struct {
	Key       Role
	Mandatory bool
}

// Variant describes one of the three submission kinds the gateway accepts.
// The three instances below are the only ones; everything variant-specific in
// the pipeline is driven by this descriptor.
type Variant struct {
	Name  string
	Topic string
	Roles []RoleSpec

	// NormalizeTitles rewrites every attachment title to
	// DefaultAttachmentTitle before the submission is processed.
	NormalizeTitles bool
}

var (
	// Primary is the main benefit application.
	Primary = Variant{
		Name:  "primary",
		Topic: "primary-submission-topic",
		Roles: []RoleSpec{
			{Key: RoleMedicalCertificate, Mandatory: true},
			{Key: RoleCohabitationAgreement},
		},
	}

	// DayTransfer is the care-day transfer application. It carries no
	// attachments.
	DayTransfer = Variant{
		Name:  "day-transfer",
		Topic: "day-transfer-submission-topic",
	}

	// Followup is the supplementary submission for an earlier application.
	Followup = Variant{
		Name:  "followup",
		Topic: "followup-submission-topic",
		Roles: []RoleSpec{
			{Key: RoleAttachments, Mandatory: true},
		},
		NormalizeTitles: true,
	}
)

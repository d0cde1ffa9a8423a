package submission

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func attachmentJSON(content, contentType, title string) string {
	return fmt.Sprintf(
		`{"content": %q, "contentType": %q, "title": %q}`,
		base64.StdEncoding.EncodeToString([]byte(content)), contentType, title,
	)
}

func primaryPayload() []byte {
	return []byte(`{
		"applicant": {"actorId": "1234567890", "nationalIdentityNumber": "29099012345"},
		"medicalCertificate": [` + attachmentJSON("certificate-bytes", "application/pdf", "Medical certificate") + `],
		"cohabitationAgreement": [],
		"languageCode": "nb"
	}`)
}

func TestParsePrimary(t *testing.T) {
	in, err := Parse(Primary, primaryPayload())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := in.Applicant(); got != "1234567890" {
		t.Errorf("Applicant() = %q, want %q", got, "1234567890")
	}
	if got := len(in.Attachments(RoleMedicalCertificate)); got != 1 {
		t.Fatalf("medical certificate count = %d, want 1", got)
	}
	attachment := in.Attachments(RoleMedicalCertificate)[0]
	if string(attachment.Content) != "certificate-bytes" {
		t.Errorf("content = %q, want decoded bytes", attachment.Content)
	}
	if attachment.ContentType != "application/pdf" || attachment.Title != "Medical certificate" {
		t.Errorf("attachment = %+v", attachment)
	}
	if got := len(in.Attachments(RoleCohabitationAgreement)); got != 0 {
		t.Errorf("cohabitation agreement count = %d, want 0", got)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		payload string
	}{
		{"invalid JSON", Primary, `{`},
		{"null payload", Primary, `null`},
		{"payload not an object", Primary, `[1, 2]`},
		{"missing applicant block", DayTransfer, `{"languageCode": "nb"}`},
		{"applicant block not an object", DayTransfer, `{"applicant": "1234567890"}`},
		{"missing actor id", DayTransfer, `{"applicant": {"nationalIdentityNumber": "29099012345"}}`},
		{"empty actor id", DayTransfer, `{"applicant": {"actorId": ""}}`},
		{"missing attachment array", Followup, `{"applicant": {"actorId": "123"}}`},
		{"attachment array not an array", Followup, `{"applicant": {"actorId": "123"}, "attachments": {}}`},
		{"attachment entry not an object", Followup, `{"applicant": {"actorId": "123"}, "attachments": ["x"]}`},
		{"attachment without content", Followup, `{"applicant": {"actorId": "123"}, "attachments": [{"contentType": "image/png", "title": "t"}]}`},
		{"attachment content not base64", Followup, `{"applicant": {"actorId": "123"}, "attachments": [{"content": "!!!", "contentType": "image/png", "title": "t"}]}`},
		{"attachment without content type", Followup, `{"applicant": {"actorId": "123"}, "attachments": [{"content": "aGVp", "title": "t"}]}`},
		{"attachment without title", Followup, `{"applicant": {"actorId": "123"}, "attachments": [{"content": "aGVp", "contentType": "image/png"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.variant, []byte(tt.payload))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Parse() error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestCallerSuppliedSubmissionIDIsDiscarded(t *testing.T) {
	in, err := Parse(DayTransfer, []byte(`{
		"applicant": {"actorId": "123456"},
		"submissionId": "caller-chosen"
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// Without WithSubmissionID the transform must fail even though the
	// caller supplied an id.
	if _, err := in.ToOutgoing(); !errors.Is(err, ErrIncompleteTransform) {
		t.Errorf("ToOutgoing() error = %v, want ErrIncompleteTransform", err)
	}

	out, err := in.WithSubmissionID("assigned").ToOutgoing()
	if err != nil {
		t.Fatalf("ToOutgoing() error = %v", err)
	}
	if got := out.SubmissionID(); got != "assigned" {
		t.Errorf("SubmissionID() = %q, want %q", got, "assigned")
	}
	if got := out.Payload()["submissionId"]; got != "assigned" {
		t.Errorf("payload submissionId = %v, want %q", got, "assigned")
	}
}

func TestToOutgoingRequiresConvertedRoles(t *testing.T) {
	in, err := Parse(Primary, primaryPayload())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, err = in.
		WithSubmissionID("id-1").
		WithAttachmentURLs(RoleMedicalCertificate, []string{"https://documents/1"}).
		ToOutgoing()
	if !errors.Is(err, ErrIncompleteTransform) {
		t.Errorf("ToOutgoing() error = %v, want ErrIncompleteTransform (cohabitation agreement unconverted)", err)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	in, err := Parse(Primary, primaryPayload())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	transform := func() map[string]any {
		out, err := in.
			WithAttachmentURLs(RoleMedicalCertificate, []string{"https://documents/1"}).
			WithAttachmentURLs(RoleCohabitationAgreement, []string{}).
			WithSubmissionID("id-1").
			ToOutgoing()
		if err != nil {
			t.Fatalf("ToOutgoing() error = %v", err)
		}
		return out.Payload()
	}

	want := map[string]any{
		"applicant":             map[string]any{"actorId": "1234567890", "nationalIdentityNumber": "29099012345"},
		"languageCode":          "nb",
		"medicalCertificate":    []string{"https://documents/1"},
		"cohabitationAgreement": []string{},
		"submissionId":          "id-1",
	}

	first := transform()
	if !reflect.DeepEqual(first, want) {
		t.Errorf("outgoing payload = %#v, want %#v", first, want)
	}

	// Re-deriving from the same incoming value with the same inputs must be
	// field-for-field identical.
	if second := transform(); !reflect.DeepEqual(first, second) {
		t.Errorf("transform is not idempotent: %#v vs %#v", first, second)
	}
}

func TestWithersDoNotMutateReceiver(t *testing.T) {
	in, err := Parse(Followup, []byte(`{
		"applicant": {"actorId": "123"},
		"attachments": [`+attachmentJSON("bytes", "image/png", "Holiday photo")+`]
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	normalized := in.WithNormalizedTitles()
	if got := in.Attachments(RoleAttachments)[0].Title; got != "Holiday photo" {
		t.Errorf("receiver title mutated to %q", got)
	}
	if got := normalized.Attachments(RoleAttachments)[0].Title; got != DefaultAttachmentTitle {
		t.Errorf("normalized title = %q, want %q", got, DefaultAttachmentTitle)
	}

	converted := in.WithAttachmentURLs(RoleAttachments, []string{"https://documents/1"})
	if _, err := in.WithSubmissionID("id-1").ToOutgoing(); !errors.Is(err, ErrIncompleteTransform) {
		t.Errorf("receiver gained URL conversion through a derived value")
	}
	if _, err := converted.WithSubmissionID("id-1").ToOutgoing(); err != nil {
		t.Errorf("ToOutgoing() on converted value error = %v", err)
	}
}

func TestNormalizedTitlesApplyToEveryAttachment(t *testing.T) {
	in, err := Parse(Followup, []byte(`{
		"applicant": {"actorId": "123"},
		"attachments": [`+
		attachmentJSON("a", "image/png", "First title")+`,`+
		attachmentJSON("b", "application/pdf", "Second title")+
		`]
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	for i, a := range in.WithNormalizedTitles().Attachments(RoleAttachments) {
		if a.Title != DefaultAttachmentTitle {
			t.Errorf("attachment %d title = %q, want %q", i, a.Title, DefaultAttachmentTitle)
		}
	}
}

func TestDayTransferNeedsOnlySubmissionID(t *testing.T) {
	in, err := Parse(DayTransfer, []byte(`{"applicant": {"actorId": "123456"}, "days": 5}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out, err := in.WithSubmissionID("id-1").ToOutgoing()
	if err != nil {
		t.Fatalf("ToOutgoing() error = %v", err)
	}
	if got := out.Payload()["days"]; got != float64(5) {
		t.Errorf("days = %v, want 5", got)
	}
}

func TestAttachmentEqual(t *testing.T) {
	a := Attachment{Content: []byte("x"), ContentType: "image/png", Title: "t"}
	tests := []struct {
		name  string
		other Attachment
		want  bool
	}{
		{"identical", Attachment{Content: []byte("x"), ContentType: "image/png", Title: "t"}, true},
		{"different content", Attachment{Content: []byte("y"), ContentType: "image/png", Title: "t"}, false},
		{"different content type", Attachment{Content: []byte("x"), ContentType: "application/pdf", Title: "t"}, false},
		{"different title", Attachment{Content: []byte("x"), ContentType: "image/png", Title: "u"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

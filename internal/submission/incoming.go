package submission

import (
	"encoding/base64"

	"github.com/navikt/omsorgspenger-mottak/internal/jsoncodec"
)

// Incoming is an immutable view of a parsed submission. Attachment roles are
// extracted out of the payload during parsing; the remaining payload fields
// pass through to the broker untouched. Every With* method returns a new
// value, leaving the receiver as it was.
type Incoming struct {
	variant     Variant
	payload     map[string]any
	applicant   ApplicantID
	attachments map[Role][]Attachment
	urls        map[Role][]string
	id          SubmissionID
}

// Parse turns a raw payload into an Incoming for the given variant. A missing
// or mis-shaped applicant block, or a missing attachment-role array, fails
// with an error wrapping ErrMalformedPayload. A submission id supplied by the
// caller is discarded; the id set via WithSubmissionID wins.
func Parse(variant Variant, raw []byte) (Incoming, error) {
	var payload map[string]any
	if err := jsoncodec.Unmarshal(raw, &payload); err != nil {
		return Incoming{}, malformedf("not a JSON object: %v", err)
	}
	if payload == nil {
		return Incoming{}, malformedf("payload is null")
	}

	applicant, err := parseApplicant(payload)
	if err != nil {
		return Incoming{}, err
	}

	attachments := make(map[Role][]Attachment, len(variant.Roles))
	for _, role := range variant.Roles {
		parsed, err := parseAttachments(payload, role.Key)
		if err != nil {
			return Incoming{}, err
		}
		attachments[role.Key] = parsed
		delete(payload, string(role.Key))
	}

	delete(payload, keySubmissionID)

	return Incoming{
		variant:     variant,
		payload:     payload,
		applicant:   applicant,
		attachments: attachments,
		urls:        map[Role][]string{},
	}, nil
}

func parseApplicant(payload map[string]any) (ApplicantID, error) {
	block, ok := payload[keyApplicant].(map[string]any)
	if !ok {
		return "", malformedf("missing applicant block")
	}
	actorID, ok := block[keyActorID].(string)
	if !ok || actorID == "" {
		return "", malformedf("missing applicant actor id")
	}
	return ApplicantID(actorID), nil
}

func parseAttachments(payload map[string]any, role Role) ([]Attachment, error) {
	array, ok := payload[string(role)].([]any)
	if !ok {
		return nil, malformedf("missing attachment array %q", role)
	}

	attachments := make([]Attachment, 0, len(array))
	for i, entry := range array {
		object, ok := entry.(map[string]any)
		if !ok {
			return nil, malformedf("%s[%d] is not an object", role, i)
		}
		encoded, ok := object[keyContent].(string)
		if !ok {
			return nil, malformedf("%s[%d] has no content", role, i)
		}
		content, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, malformedf("%s[%d] content is not base64: %v", role, i, err)
		}
		contentType, ok := object[keyContentType].(string)
		if !ok {
			return nil, malformedf("%s[%d] has no content type", role, i)
		}
		title, ok := object[keyTitle].(string)
		if !ok {
			return nil, malformedf("%s[%d] has no title", role, i)
		}
		attachments = append(attachments, Attachment{
			Content:     content,
			ContentType: contentType,
			Title:       title,
		})
	}
	return attachments, nil
}

// Variant returns the descriptor this submission was parsed as.
func (in Incoming) Variant() Variant { return in.variant }

// Applicant returns the applicant's actor id.
func (in Incoming) Applicant() ApplicantID { return in.applicant }

// Attachments returns the attachments extracted for the given role.
func (in Incoming) Attachments(role Role) []Attachment { return in.attachments[role] }

// WithAttachmentURLs returns a copy with the role's attachments replaced by
// stored-document URLs. Must be called once per attachment-bearing role before
// ToOutgoing, also when the role carried no attachments.
func (in Incoming) WithAttachmentURLs(role Role, urls []string) Incoming {
	converted := make(map[Role][]string, len(in.urls)+1)
	for k, v := range in.urls {
		converted[k] = v
	}
	if urls == nil {
		urls = []string{}
	}
	converted[role] = urls
	in.urls = converted
	return in
}

// WithSubmissionID returns a copy carrying the given id. Last write wins; any
// id the caller put in the raw payload was already discarded during parsing.
func (in Incoming) WithSubmissionID(id SubmissionID) Incoming {
	in.id = id
	return in
}

// WithNormalizedTitles returns a copy in which every attachment title is
// replaced by DefaultAttachmentTitle, so the documents offloaded for the
// follow-up variant carry the canonical label instead of caller input.
func (in Incoming) WithNormalizedTitles() Incoming {
	normalized := make(map[Role][]Attachment, len(in.attachments))
	for role, attachments := range in.attachments {
		copied := make([]Attachment, len(attachments))
		for i, a := range attachments {
			a.Title = DefaultAttachmentTitle
			copied[i] = a
		}
		normalized[role] = copied
	}
	in.attachments = normalized
	return in
}

// ToOutgoing seals the submission into the exact record that gets published.
// It fails with ErrIncompleteTransform until the submission id is set and
// every attachment role has been converted to URLs; raw attachment bytes never
// reach the broker.
func (in Incoming) ToOutgoing() (Outgoing, error) {
	if in.id == "" {
		return Outgoing{}, errIncomplete("submission id not set")
	}

	payload := make(map[string]any, len(in.payload)+len(in.variant.Roles)+1)
	for k, v := range in.payload {
		payload[k] = v
	}
	for _, role := range in.variant.Roles {
		urls, ok := in.urls[role.Key]
		if !ok {
			return Outgoing{}, errIncomplete("attachment role %q not converted to URLs", role.Key)
		}
		payload[string(role.Key)] = urls
	}
	payload[keySubmissionID] = string(in.id)

	return Outgoing{id: in.id, payload: payload}, nil
}

// Outgoing is the immutable record published to the broker: the original
// payload with attachment roles holding URL arrays and the submission id set.
type Outgoing struct {
	id      SubmissionID
	payload map[string]any
}

// SubmissionID returns the id injected into the record.
func (o Outgoing) SubmissionID() SubmissionID { return o.id }

// AttachmentURLs returns the stored-document URLs published for the role.
func (o Outgoing) AttachmentURLs(role Role) []string {
	urls, _ := o.payload[string(role)].([]string)
	return urls
}

// Payload returns the structured payload exactly as it is published.
func (o Outgoing) Payload() map[string]any { return o.payload }
